package s3engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/dmitrijs2005/photoslot/internal/slot"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// session is one engine slot. Commands are fire-and-forget: they spawn
// worker goroutines and report failures as error events. Every
// emission goes through the single events channel, so the consumer
// sees them in production order; the channel is closed exactly once,
// by Release, after every worker has drained.
type session struct {
	eng  *Engine
	id   string
	gate *gate

	mu        sync.Mutex
	cfg       slot.UploadConfig // pending config, picked up by the next Select
	cycleCfg  slot.UploadConfig // config latched when the current selection was made
	file      *slot.FileInfo
	src       image.Image
	raw       []byte
	uploading bool
	released  bool
	cancel    context.CancelFunc

	events chan slot.Event

	done        chan struct{}
	wg          sync.WaitGroup
	releaseOnce sync.Once
}

func newSession(eng *Engine, id string, cfg slot.UploadConfig) *session {
	return &session{
		eng:    eng,
		id:     id,
		gate:   newGate(),
		cfg:    cfg,
		events: make(chan slot.Event, 64),
		done:   make(chan struct{}),
	}
}

func (s *session) Configure(cfg slot.UploadConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The selected cycle keeps the config it was selected with; a
	// replacement only affects future selections.
	s.cfg = cfg
}

func (s *session) Events() <-chan slot.Event { return s.events }

func (s *session) Select() {
	s.mu.Lock()
	if s.released || s.uploading {
		s.mu.Unlock()
		return
	}
	cfg := s.cfg
	s.wg.Add(1)
	s.mu.Unlock()
	go s.runSelect(cfg)
}

func (s *session) runSelect(cfg slot.UploadConfig) {
	defer s.wg.Done()

	ctx := context.Background()

	if s.eng.picker == nil {
		s.emitErr(common.ErrNoPicker)
		return
	}
	name, r, err := s.eng.picker.Pick(ctx)
	if err != nil {
		s.emitErr(fmt.Errorf("pick: %w", err))
		return
	}
	raw, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		s.emitErr(fmt.Errorf("read %s: %w", name, err))
		return
	}

	// The slot accepts images only.
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		s.emitErr(fmt.Errorf("%s (%s): %w", name, mime, common.ErrUnsupportedImage))
		return
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		s.emitErr(fmt.Errorf("decode %s: %w", name, common.ErrUnsupportedImage))
		return
	}

	f := slot.FileInfo{
		ID:   uuid.NewString(),
		Name: filepath.Base(name),
		Size: int64(len(raw)),
		MIME: mime,
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.file = &f
	s.src = img
	s.raw = raw
	s.cycleCfg = cfg
	s.mu.Unlock()

	s.eng.log.Debug(ctx, "file selected", "slot", s.id, "file", f.Name, "size", f.Size)
	s.emit(slot.Event{Kind: slot.EventFiles, Files: []slot.FileInfo{f}})
	s.emitItem(slot.ItemState{FileID: f.ID, Status: slot.StatusSelected})

	thumb, err := renderThumb(s.eng.cfg.thumbDir(), f.ID, img, cfg.Thumb)
	if err != nil {
		s.emitErr(fmt.Errorf("thumbnail %s: %w", f.Name, err))
	} else if thumb != "" {
		s.emitItem(slot.ItemState{FileID: f.ID, Status: slot.StatusThumbnail, Thumbnail: thumb})
	}

	if cfg.AutoStart {
		s.Start()
	}
}

func (s *session) Start() {
	s.mu.Lock()
	if s.released || s.uploading {
		s.mu.Unlock()
		return
	}
	if s.file == nil {
		s.mu.Unlock()
		s.emitErr(common.ErrNoSelection)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.uploading = true
	cfg := s.cycleCfg
	f := *s.file
	img := s.src
	raw := s.raw
	s.wg.Add(1)
	s.mu.Unlock()
	go s.runUpload(ctx, cfg, f, img, raw)
}

func (s *session) runUpload(ctx context.Context, cfg slot.UploadConfig, f slot.FileInfo, img image.Image, raw []byte) {
	defer s.wg.Done()

	s.emitActive(true)
	defer s.emitActive(false)
	// Runs before the deferred active=false emission (LIFO), so a
	// consumer that observed the flag drop can start the next command
	// without hitting a still-busy slot.
	defer func() {
		s.mu.Lock()
		s.uploading = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	payload, contentType, err := buildPayload(img, raw, f.MIME, cfg.Resize)
	if err != nil {
		s.emitErr(fmt.Errorf("encode %s: %w", f.Name, err))
		return
	}

	key := storageKey(cfg, f.Name)
	limiter := rate.NewLimiter(rate.Every(s.eng.cfg.progressInterval()), 1)
	total := int64(len(payload))

	s.emitItem(slot.ItemState{FileID: f.ID, Status: slot.StatusUploading})

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		body := &progressReader{
			r:      bytes.NewReader(payload),
			ctx:    ctx,
			gate:   s.gate,
			fileID: f.ID,
			total:  total,
			report: func(p slot.Progress) {
				if limiter.Allow() || p.Written == p.Total {
					s.emitProgress(p)
				}
			},
		}
		_, err := s.eng.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.eng.cfg.Bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentType:   aws.String(contentType),
			ContentLength: aws.Int64(total),
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			s.eng.log.Debug(context.Background(), "upload cancelled", "slot", s.id, "key", key)
			return
		}
		s.emitErr(fmt.Errorf("upload %s: %w", key, err))
		return
	}

	url := s.eng.objectURL(key)
	s.eng.log.Info(context.Background(), "upload complete", "slot", s.id, "key", key, "bytes", total)

	s.emitItem(slot.ItemState{FileID: f.ID, Status: slot.StatusComplete})
	s.emit(slot.Event{Kind: slot.EventValues, Values: []string{url}})
	s.emit(slot.Event{Kind: slot.EventCompleted, File: f})
}

func (s *session) Pause()  { s.gate.pause() }
func (s *session) Resume() { s.gate.resume() }

// Reset cancels any in-flight transfer and rearms the slot for the
// next selection. The stream stays open.
func (s *session) Reset() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.file = nil
	s.src = nil
	s.raw = nil
	s.cycleCfg = slot.UploadConfig{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.gate.resume()
}

// Release terminates the stream and unregisters the slot. Idempotent.
func (s *session) Release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.released = true
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.gate.resume()
		close(s.done)
		s.wg.Wait()
		close(s.events)

		s.eng.drop(s.id)
	})
}

// emit delivers ev in production order, blocking until it is queued or
// the slot is released.
func (s *session) emit(ev slot.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *session) emitItem(st slot.ItemState) {
	s.emit(slot.Event{Kind: slot.EventItem, Item: st})
}

func (s *session) emitActive(v bool) {
	s.emit(slot.Event{Kind: slot.EventActive, Active: v})
}

func (s *session) emitErr(err error) {
	s.eng.log.Error(context.Background(), "engine error", "slot", s.id, "error", err)
	s.emit(slot.Event{Kind: slot.EventError, Err: err})
}

// emitProgress drops when the consumer lags; progress is unbounded and
// carries no replay guarantee.
func (s *session) emitProgress(p slot.Progress) {
	select {
	case s.events <- slot.Event{Kind: slot.EventProgress, Progress: p}:
	default:
	}
}
