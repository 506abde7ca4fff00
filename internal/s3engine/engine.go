package s3engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/dmitrijs2005/photoslot/internal/logging"
	"github.com/dmitrijs2005/photoslot/internal/slot"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3API is the subset of the S3 client used by the engine.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Picker supplies the file for a Select command. It stands in for the
// user interaction a hosting surface would provide.
type Picker interface {
	Pick(ctx context.Context) (name string, r io.ReadCloser, err error)
}

// PathPicker returns the same local file for every Select.
type PathPicker string

func (p PathPicker) Pick(ctx context.Context) (string, io.ReadCloser, error) {
	f, err := os.Open(string(p))
	if err != nil {
		return "", nil, err
	}
	return string(p), f, nil
}

// Config holds the engine-wide settings; per-slot behavior comes from
// slot.UploadConfig.
type Config struct {
	Region       string
	Bucket       string
	BaseEndpoint string // e.g. a MinIO endpoint; empty for AWS proper
	AccessKey    string // MINIO_ROOT_USER
	SecretKey    string // MINIO_ROOT_PASSWORD

	// PublicBaseURL is the prefix persisted values are built from. When
	// empty, values use the s3://bucket/key form.
	PublicBaseURL string

	// ThumbDir is where transient thumbnails are cached.
	ThumbDir string

	// ProgressInterval throttles progress emissions per slot.
	ProgressInterval time.Duration
}

func (c Config) progressInterval() time.Duration {
	if c.ProgressInterval <= 0 {
		return 200 * time.Millisecond
	}
	return c.ProgressInterval
}

func (c Config) thumbDir() string {
	if c.ThumbDir == "" {
		return filepath.Join(os.TempDir(), "photoslot-thumbs")
	}
	return c.ThumbDir
}

// Engine is the reference slot.Engine: thumbnails locally, persists to
// an S3-compatible object store.
type Engine struct {
	cfg    Config
	api    S3API
	picker Picker
	log    logging.Logger

	mu    sync.Mutex
	slots map[string]*session
}

// New builds an Engine with a real S3 client from the given config.
func New(cfg Config, picker Picker, log logging.Logger) (*Engine, error) {
	awsCfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(cfg, client, picker, log), nil
}

// NewWithClient builds an Engine around an injected S3 client.
func NewWithClient(cfg Config, api S3API, picker Picker, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Engine{
		cfg:    cfg,
		api:    api,
		picker: picker,
		log:    log,
		slots:  make(map[string]*session),
	}
}

// Open acquires the slot registered under id. An id that is still held
// is rejected with common.ErrSlotBusy.
func (e *Engine) Open(ctx context.Context, id string, cfg slot.UploadConfig) (slot.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.slots[id]; ok {
		return nil, fmt.Errorf("slot %q: %w", id, common.ErrSlotBusy)
	}
	s := newSession(e, id, cfg)
	e.slots[id] = s
	return s, nil
}

func (e *Engine) drop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.slots, id)
}

func (e *Engine) objectURL(key string) string {
	if e.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(e.cfg.PublicBaseURL, "/") + "/" + key
	}
	return "s3://" + e.cfg.Bucket + "/" + key
}
