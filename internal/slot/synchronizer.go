package slot

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/dmitrijs2005/photoslot/internal/logging"
)

// Options configures a Synchronizer at Open time.
type Options struct {
	// Config is the initial engine configuration for the slot.
	Config UploadConfig

	// Value seeds PhotoState.Photo and the reset baseline (e.g. the
	// previously persisted photo, or a placeholder).
	Value string

	// Disabled seeds PhotoState.Disabled.
	Disabled bool

	// FallbackThumbWidth/Height are the host surface's measured box,
	// substituted when the config leaves both thumbnail dimensions
	// unset. Supplied by the caller; never computed here.
	FallbackThumbWidth  int
	FallbackThumbHeight int

	Logger logging.Logger
}

// Notifier bundles the external lifecycle notifications. Every func is
// optional; a nil func is simply skipped. Progress and Errors are
// forwarded in emission order with no buffering or replay.
type Notifier struct {
	OnSelected func(FileInfo)
	OnValue    func(string)
	OnComplete func(FileInfo)
	OnActive   func(bool)
	OnProgress func(Progress)
	OnError    func(error)
}

// Synchronizer drives one upload slot through its lifecycle. It folds
// the slot's event stream into a single PhotoState snapshot and
// doubles as a settable external value (the form-control surface:
// Write, RegisterChangeNotifier, SetDisabled).
//
// All event handling runs on one dispatch goroutine; the mutex only
// guards the snapshot against concurrent readers.
type Synchronizer struct {
	handle SessionHandle
	log    logging.Logger
	notify Notifier

	mu        sync.Mutex
	state     PhotoState
	baseline  string // last externally set value; restored by Reset before success
	external  string // last value passed to Write, for change detection
	finalized bool   // a final value has been latched for the current cycle
	onChange  func(string)
	closed    bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Open acquires the engine slot registered under id and starts the
// merge pipeline. If the config leaves both thumbnail dimensions unset,
// the caller-measured fallback box from opts is substituted first.
func Open(ctx context.Context, engine Engine, id string, opts Options, notify Notifier) (*Synchronizer, error) {
	cfg := opts.Config
	if cfg.Thumb.Width == 0 && cfg.Thumb.Height == 0 {
		cfg.Thumb.Width = opts.FallbackThumbWidth
		cfg.Thumb.Height = opts.FallbackThumbHeight
	}

	handle, err := engine.Open(ctx, id, cfg)
	if err != nil {
		return nil, fmt.Errorf("open slot %q: %w", id, err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewDiscardLogger()
	}

	s := &Synchronizer{
		handle:   handle,
		log:      log.With("slot", id),
		notify:   notify,
		state:    PhotoState{Photo: opts.Value, Disabled: opts.Disabled},
		baseline: opts.Value,
		external: opts.Value,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.dispatch()

	return s, nil
}

// State returns the current snapshot.
func (s *Synchronizer) State() PhotoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// dispatch is the merge pipeline: a single consumer over the handle's
// ordered event stream, so state transitions follow engine emission
// order. Item states are only inspected for the current cycle's file,
// and only until a thumbnail has been latched or the cycle finalized.
func (s *Synchronizer) dispatch() {
	defer s.wg.Done()

	ctx := context.Background()
	events := s.handle.Events()

	var cycleID string // current selection's file id, "" before the first burst
	var thumbDone bool // thumbnail latched, or no longer wanted this cycle

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventFiles:
				if len(ev.Files) == 0 {
					continue
				}
				f := ev.Files[0]
				cycleID = f.ID
				thumbDone = false
				s.beginCycle()
				s.log.Debug(ctx, "file selected", "file", f.Name, "size", f.Size)
				if fn := s.notify.OnSelected; fn != nil {
					fn(f)
				}

			case EventItem:
				if thumbDone || ev.Item.FileID != cycleID || ev.Item.Thumbnail == "" {
					continue
				}
				s.latchThumbnail(ev.Item.Thumbnail)
				thumbDone = true
				s.log.Debug(ctx, "thumbnail latched", "file", ev.Item.FileID)

			case EventValues:
				if len(ev.Values) == 0 {
					continue
				}
				thumbDone = true
				s.finalize(ctx, ev.Values[0])

			case EventActive:
				s.setLoading(ev.Active)
				if fn := s.notify.OnActive; fn != nil {
					fn(ev.Active)
				}

			case EventCompleted:
				// A finished cycle rearms the engine slot so the next
				// Select starts clean; the snapshot keeps its value.
				s.handle.Reset()
				s.log.Debug(ctx, "cycle complete", "file", ev.File.Name)
				if fn := s.notify.OnComplete; fn != nil {
					fn(ev.File)
				}

			case EventProgress:
				if fn := s.notify.OnProgress; fn != nil {
					fn(ev.Progress)
				}

			case EventError:
				// Engine errors never touch the snapshot; loading clears
				// only when the engine flips its active flag.
				s.log.Error(ctx, "engine error", "error", ev.Err)
				if fn := s.notify.OnError; fn != nil {
					fn(ev.Err)
				}
			}
		}
	}
}

func (s *Synchronizer) beginCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = false
	s.state.Success = false
}

func (s *Synchronizer) latchThumbnail(thumb string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		// Stale thumbnail arriving after the final value; the final
		// value must not regress.
		return
	}
	s.state.Photo = thumb
	s.state.Loading = false
}

func (s *Synchronizer) finalize(ctx context.Context, v string) {
	s.mu.Lock()
	s.state.Photo = v
	s.state.Success = true
	s.finalized = true
	onChange := s.onChange
	s.mu.Unlock()

	s.log.Info(ctx, "value persisted", "value", v)
	if fn := s.notify.OnValue; fn != nil {
		fn(v)
	}
	if onChange != nil {
		onChange(v)
	}
}

func (s *Synchronizer) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = v
}

// Select asks the engine to open a file selection. It is a no-op while
// the slot is disabled.
func (s *Synchronizer) Select() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return common.ErrClosed
	}
	if s.state.Disabled {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.handle.Select()
	return nil
}

// Start delegates to the engine; legality is the engine's concern.
func (s *Synchronizer) Start() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.handle.Start()
	return nil
}

// Pause delegates to the engine.
func (s *Synchronizer) Pause() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.handle.Pause()
	return nil
}

// Resume delegates to the engine.
func (s *Synchronizer) Resume() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.handle.Resume()
	return nil
}

// Reset rearms the engine slot. Before a successful cycle it also
// restores Photo to the externally set baseline; a confirmed result is
// never reverted.
func (s *Synchronizer) Reset() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.handle.Reset()
	s.mu.Lock()
	if !s.state.Success {
		s.state.Photo = s.baseline
	}
	s.mu.Unlock()
	return nil
}

// UpdateConfig forwards a replacement config to the engine. It applies
// to the next selection only.
func (s *Synchronizer) UpdateConfig(cfg UploadConfig) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.handle.Configure(cfg)
	return nil
}

func (s *Synchronizer) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrClosed
	}
	return nil
}

// Write seeds the displayed photo from outside the merge pipeline. It
// updates the snapshot and the reset baseline whenever v differs from
// the previously written value, with no other side effects. Safe after
// Close (it only touches the local snapshot).
func (s *Synchronizer) Write(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.external {
		return
	}
	s.external = v
	s.baseline = v
	s.state.Photo = v
}

// RegisterChangeNotifier stores the single form-control callback,
// invoked exactly once per confirmed final value. A later call
// replaces the previous callback.
func (s *Synchronizer) RegisterChangeNotifier(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetDisabled toggles PhotoState.Disabled. It blocks only Select.
func (s *Synchronizer) SetDisabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Disabled = v
}

// Close releases the engine slot and stops the merge pipeline. The
// first call wins; subsequent calls return common.ErrClosed.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return common.ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.handle.Release()
	s.wg.Wait()
	return nil
}
