package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photoslot/internal/flagx"
	"github.com/dmitrijs2005/photoslot/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "200ms" or as integer nanoseconds. After parsing,
// values are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	SlotID string `json:"slot_id"`

	S3Region       string `json:"s3_region"`
	S3Bucket       string `json:"s3_bucket"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	PublicBaseURL  string `json:"public_base_url"`

	HistoryDSN string `json:"history_dsn"`
	ThumbDir   string `json:"thumb_dir"`

	PathPrefix string `json:"path_prefix"`
	Naming     string `json:"naming"`
	AutoStart  *bool  `json:"auto_start"`

	ThumbWidth  int `json:"thumb_width"`
	ThumbHeight int `json:"thumb_height"`

	ResizeWidth   int `json:"resize_width"`
	ResizeHeight  int `json:"resize_height"`
	ResizeQuality int `json:"resize_quality"`

	ProgressInterval timex.Duration `json:"progress_interval"`
	UploadTimeout    timex.Duration `json:"upload_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields present in the file override the current Config values;
// read and unmarshal errors panic (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.SlotID != "" {
		cfg.SlotID = jc.SlotID
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
	if jc.PublicBaseURL != "" {
		cfg.PublicBaseURL = jc.PublicBaseURL
	}
	if jc.HistoryDSN != "" {
		cfg.HistoryDSN = jc.HistoryDSN
	}
	if jc.ThumbDir != "" {
		cfg.ThumbDir = jc.ThumbDir
	}
	if jc.PathPrefix != "" {
		cfg.PathPrefix = jc.PathPrefix
	}
	if jc.Naming != "" {
		cfg.Naming = jc.Naming
	}
	if jc.AutoStart != nil {
		cfg.AutoStart = *jc.AutoStart
	}
	if jc.ThumbWidth != 0 {
		cfg.ThumbWidth = jc.ThumbWidth
	}
	if jc.ThumbHeight != 0 {
		cfg.ThumbHeight = jc.ThumbHeight
	}
	if jc.ResizeWidth != 0 {
		cfg.ResizeWidth = jc.ResizeWidth
	}
	if jc.ResizeHeight != 0 {
		cfg.ResizeHeight = jc.ResizeHeight
	}
	if jc.ResizeQuality != 0 {
		cfg.ResizeQuality = jc.ResizeQuality
	}
	if jc.ProgressInterval != 0 {
		cfg.ProgressInterval = time.Duration(jc.ProgressInterval)
	}
	if jc.UploadTimeout != 0 {
		cfg.UploadTimeout = time.Duration(jc.UploadTimeout)
	}
}
