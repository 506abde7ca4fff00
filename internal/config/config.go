package config

import "time"

// Config holds runtime settings for the photoslot demo binary.
//
// Fields group into three concerns: which slot to drive (SlotID and the
// upload shaping options), where the engine persists (S3 connection
// settings), and where confirmed results are recorded (HistoryDSN).
//
// Units: ProgressInterval and UploadTimeout are time.Durations.
type Config struct {
	SlotID string

	S3Region       string
	S3Bucket       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	PublicBaseURL  string

	HistoryDSN string
	ThumbDir   string

	PathPrefix string
	Naming     string
	AutoStart  bool

	ThumbWidth  int
	ThumbHeight int

	ResizeWidth   int
	ResizeHeight  int
	ResizeQuality int

	ProgressInterval time.Duration
	UploadTimeout    time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.SlotID = "photo"
	c.S3Region = "us-east-1"
	c.S3Bucket = "photoslot"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3AccessKey = "minioadmin"
	c.S3SecretKey = "minioadmin"
	c.HistoryDSN = "photoslot.db"
	c.Naming = "random"
	c.AutoStart = true
	c.ThumbWidth = 128
	c.ThumbHeight = 128
	c.ResizeWidth = 1024
	c.ResizeHeight = 1024
	c.ResizeQuality = 85
	c.ProgressInterval = 200 * time.Millisecond
	c.UploadTimeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays
// values from JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
