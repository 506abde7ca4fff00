// Command photoslot drives one upload slot end to end: it selects the
// image given on the command line, uploads it through the S3 engine,
// and records the persisted URL in the local history database.
//
// Usage:
//
//	photoslot [-c config.json] [-s slot] [-b bucket] [-e endpoint] [-r region] [-d dsn] <image file>
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/photoslot/internal/buildinfo"
	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/dmitrijs2005/photoslot/internal/config"
	"github.com/dmitrijs2005/photoslot/internal/history"
	"github.com/dmitrijs2005/photoslot/internal/logging"
	"github.com/dmitrijs2005/photoslot/internal/s3engine"
	"github.com/dmitrijs2005/photoslot/internal/slot"

	_ "modernc.org/sqlite"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	file := pickFileArg(os.Args[1:])
	if file == "" {
		log.Fatal("usage: photoslot [flags] <image file>")
	}

	if err := run(ctx, cfg, file); err != nil {
		log.Fatalf("%v", err)
	}
}

// pickFileArg returns the first argument that is not a flag or a flag
// value (the config flag parsers ignore positionals).
func pickFileArg(args []string) string {
	skip := false
	for _, a := range args {
		if skip {
			skip = false
			continue
		}
		if strings.HasPrefix(a, "-") {
			skip = !strings.Contains(a, "=")
			continue
		}
		return a
	}
	return ""
}

func run(ctx context.Context, cfg *config.Config, file string) error {

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := history.InitDatabase(ctx, cfg.HistoryDSN)
	if err != nil {
		return fmt.Errorf("init history db: %w", err)
	}
	defer db.Close()
	repo := history.NewSQLiteRepository(db)

	baseline, err := repo.LastValue(ctx, cfg.SlotID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("load baseline: %w", err)
	}

	engine, err := s3engine.New(s3engine.Config{
		Region:           cfg.S3Region,
		Bucket:           cfg.S3Bucket,
		BaseEndpoint:     cfg.S3BaseEndpoint,
		AccessKey:        cfg.S3AccessKey,
		SecretKey:        cfg.S3SecretKey,
		PublicBaseURL:    cfg.PublicBaseURL,
		ThumbDir:         cfg.ThumbDir,
		ProgressInterval: cfg.ProgressInterval,
	}, s3engine.PathPicker(file), logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	done := make(chan struct{})
	selected := make(chan struct{}, 1)
	var once sync.Once

	notify := slot.Notifier{
		OnSelected: func(f slot.FileInfo) {
			logger.Info(ctx, "selected", "file", f.Name, "size", f.Size, "mime", f.MIME)
			select {
			case selected <- struct{}{}:
			default:
			}
		},
		OnProgress: func(p slot.Progress) {
			logger.Info(ctx, "progress", "written", p.Written, "total", p.Total)
		},
		OnValue: func(v string) {
			if err := repo.Add(ctx, &history.Upload{SlotID: cfg.SlotID, Value: v, FileName: file}); err != nil {
				logger.Error(ctx, "record history", "error", err)
			}
		},
		OnComplete: func(f slot.FileInfo) {
			once.Do(func() { close(done) })
		},
		OnError: func(err error) {
			logger.Error(ctx, "upload error", "error", err)
			once.Do(func() { close(done) })
		},
	}

	s, err := slot.Open(ctx, engine, cfg.SlotID, slot.Options{
		Config: slot.UploadConfig{
			PathPrefix: cfg.PathPrefix,
			Naming:     slot.NamingPolicy(cfg.Naming),
			AutoStart:  cfg.AutoStart,
			Thumb:      slot.Transform{Width: cfg.ThumbWidth, Height: cfg.ThumbHeight},
			Resize:     slot.Transform{Width: cfg.ResizeWidth, Height: cfg.ResizeHeight, Quality: cfg.ResizeQuality},
		},
		Value:  baseline,
		Logger: logger,
	}, notify)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Select(); err != nil {
		return err
	}
	if !cfg.AutoStart {
		select {
		case <-selected:
		case <-time.After(cfg.UploadTimeout):
			return fmt.Errorf("selection timed out after %s", cfg.UploadTimeout)
		}
		if err := s.Start(); err != nil {
			return err
		}
	}

	select {
	case <-done:
	case <-time.After(cfg.UploadTimeout):
		return fmt.Errorf("upload timed out after %s", cfg.UploadTimeout)
	}

	st := s.State()
	logger.Info(ctx, "finished", "photo", st.Photo, "success", st.Success)
	if !st.Success {
		return fmt.Errorf("upload did not complete")
	}
	return nil
}
