package slot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/stretchr/testify/require"
)

// fakeHandle is a scripted SessionHandle: tests queue emissions on the
// event stream and inspect which commands were delegated.
type fakeHandle struct {
	events chan Event

	mu   sync.Mutex
	cfgs []UploadConfig

	selectCalls  atomic.Int32
	startCalls   atomic.Int32
	pauseCalls   atomic.Int32
	resumeCalls  atomic.Int32
	resetCalls   atomic.Int32
	releaseCalls atomic.Int32

	// onReset lets tests record ordering of engine calls vs notifications.
	onReset func()
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{events: make(chan Event, 128)}
}

func (h *fakeHandle) Configure(cfg UploadConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfgs = append(h.cfgs, cfg)
}

func (h *fakeHandle) Events() <-chan Event { return h.events }

func (h *fakeHandle) emitFiles(fs ...FileInfo) {
	h.events <- Event{Kind: EventFiles, Files: fs}
}

func (h *fakeHandle) emitItem(st ItemState) {
	h.events <- Event{Kind: EventItem, Item: st}
}

func (h *fakeHandle) emitValues(vs ...string) {
	h.events <- Event{Kind: EventValues, Values: vs}
}

func (h *fakeHandle) emitActive(v bool) {
	h.events <- Event{Kind: EventActive, Active: v}
}

func (h *fakeHandle) emitProgress(p Progress) {
	h.events <- Event{Kind: EventProgress, Progress: p}
}

func (h *fakeHandle) emitCompleted(f FileInfo) {
	h.events <- Event{Kind: EventCompleted, File: f}
}

func (h *fakeHandle) emitErr(err error) {
	h.events <- Event{Kind: EventError, Err: err}
}

func (h *fakeHandle) Select() { h.selectCalls.Add(1) }
func (h *fakeHandle) Start()  { h.startCalls.Add(1) }
func (h *fakeHandle) Pause()  { h.pauseCalls.Add(1) }
func (h *fakeHandle) Resume() { h.resumeCalls.Add(1) }
func (h *fakeHandle) Reset() {
	h.resetCalls.Add(1)
	if h.onReset != nil {
		h.onReset()
	}
}
func (h *fakeHandle) Release() { h.releaseCalls.Add(1) }

type fakeEngine struct {
	handle  *fakeHandle
	openErr error

	mu      sync.Mutex
	openIDs []string
	openCfg UploadConfig
}

func (e *fakeEngine) Open(ctx context.Context, id string, cfg UploadConfig) (SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.openIDs = append(e.openIDs, id)
	e.openCfg = cfg
	return e.handle, nil
}

func openTestSync(t *testing.T, opts Options, n Notifier) (*Synchronizer, *fakeHandle, *fakeEngine) {
	t.Helper()
	h := newFakeHandle()
	e := &fakeEngine{handle: h}
	s, err := Open(context.Background(), e, "avatar", opts, n)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, h, e
}

func waitState(t *testing.T, s *Synchronizer, want func(PhotoState) bool) PhotoState {
	t.Helper()
	require.Eventually(t, func() bool {
		return want(s.State())
	}, time.Second, 2*time.Millisecond)
	return s.State()
}

func TestOpen_SeedsState(t *testing.T) {
	s, _, _ := openTestSync(t, Options{Value: "default.png", Disabled: true}, Notifier{})

	st := s.State()
	require.Equal(t, PhotoState{Photo: "default.png", Disabled: true}, st)
}

func TestOpen_SubstitutesMeasuredThumbBox(t *testing.T) {
	h := newFakeHandle()
	e := &fakeEngine{handle: h}

	s, err := Open(context.Background(), e, "avatar", Options{
		FallbackThumbWidth:  120,
		FallbackThumbHeight: 80,
	}, Notifier{})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 120, e.openCfg.Thumb.Width)
	require.Equal(t, 80, e.openCfg.Thumb.Height)
}

func TestOpen_KeepsExplicitThumbBox(t *testing.T) {
	h := newFakeHandle()
	e := &fakeEngine{handle: h}

	cfg := UploadConfig{Thumb: Transform{Width: 64}}
	s, err := Open(context.Background(), e, "avatar", Options{
		Config:              cfg,
		FallbackThumbWidth:  120,
		FallbackThumbHeight: 80,
	}, Notifier{})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 64, e.openCfg.Thumb.Width)
	require.Equal(t, 0, e.openCfg.Thumb.Height)
}

func TestOpen_EngineErrorPropagates(t *testing.T) {
	e := &fakeEngine{openErr: common.ErrSlotBusy}

	_, err := Open(context.Background(), e, "avatar", Options{}, Notifier{})
	require.ErrorIs(t, err, common.ErrSlotBusy)
}

func TestThumbnail_LatchedBeforeValue(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	h.emitFiles(FileInfo{ID: "f1", Name: "cat.jpg"})
	h.emitItem(ItemState{FileID: "f1", Status: StatusSelected})
	h.emitItem(ItemState{FileID: "f1", Status: StatusThumbnail, Thumbnail: "t1"})

	st := waitState(t, s, func(st PhotoState) bool { return st.Photo == "t1" })
	require.False(t, st.Success)
	require.False(t, st.Loading)
}

func TestThumbnail_IgnoredForOtherFiles(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	h.emitFiles(FileInfo{ID: "f2"})
	// Thumbnail for a file that is not the current selection.
	h.emitItem(ItemState{FileID: "f1", Status: StatusThumbnail, Thumbnail: "stale"})
	h.emitItem(ItemState{FileID: "f2", Status: StatusThumbnail, Thumbnail: "t2"})

	st := waitState(t, s, func(st PhotoState) bool { return st.Photo == "t2" })
	require.False(t, st.Success)
}

func TestValue_FinalizesAndNotifiesOnce(t *testing.T) {
	var values []string
	var changes []string
	var mu sync.Mutex

	s, h, _ := openTestSync(t, Options{}, Notifier{
		OnValue: func(v string) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
	})
	s.RegisterChangeNotifier(func(v string) {
		mu.Lock()
		changes = append(changes, v)
		mu.Unlock()
	})

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitValues("final.png", "ignored.png")

	st := waitState(t, s, func(st PhotoState) bool { return st.Success })
	require.Equal(t, "final.png", st.Photo)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"final.png"}, values)
	require.Equal(t, []string{"final.png"}, changes)
}

// Queued bursts for a cycle must be applied in emission order even when
// every event is already pending before the pipeline drains any of
// them: a cycle's file burst is observed before its final value.
func TestDispatch_AppliesQueuedCyclesInOrder(t *testing.T) {
	var values []string
	var mu sync.Mutex

	s, h, _ := openTestSync(t, Options{}, Notifier{
		OnValue: func(v string) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
	})

	const cycles = 20
	for i := 0; i < cycles; i++ {
		id := fmt.Sprintf("f%d", i)
		h.emitFiles(FileInfo{ID: id})
		h.emitItem(ItemState{FileID: id, Status: StatusThumbnail, Thumbnail: "thumb-" + id})
		h.emitValues(fmt.Sprintf("final-%d.png", i))
	}

	st := waitState(t, s, func(st PhotoState) bool {
		return st.Photo == fmt.Sprintf("final-%d.png", cycles-1)
	})
	require.True(t, st.Success)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, values, cycles)
	require.Equal(t, "final-0.png", values[0])
	require.Equal(t, fmt.Sprintf("final-%d.png", cycles-1), values[cycles-1])
}

func TestStaleThumbnail_DoesNotRegressFinalValue(t *testing.T) {
	s, h, _ := openTestSync(t, Options{}, Notifier{})

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitValues("final.png")
	waitState(t, s, func(st PhotoState) bool { return st.Success })

	// Late thumbnail for the same cycle arrives after the final value.
	h.emitItem(ItemState{FileID: "f1", Status: StatusThumbnail, Thumbnail: "t1"})

	time.Sleep(20 * time.Millisecond)
	st := s.State()
	require.Equal(t, "final.png", st.Photo)
	require.True(t, st.Success)
}

func TestNewSelection_ClearsSuccess(t *testing.T) {
	s, h, _ := openTestSync(t, Options{}, Notifier{})

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitValues("final.png")
	waitState(t, s, func(st PhotoState) bool { return st.Success })

	h.emitFiles(FileInfo{ID: "f2"})
	waitState(t, s, func(st PhotoState) bool { return !st.Success })
}

func TestEmptyFilesBurst_Ignored(t *testing.T) {
	var selected []FileInfo
	var mu sync.Mutex

	s, h, _ := openTestSync(t, Options{}, Notifier{
		OnSelected: func(f FileInfo) {
			mu.Lock()
			selected = append(selected, f)
			mu.Unlock()
		},
	})

	h.emitFiles()
	h.emitFiles(FileInfo{ID: "f1", Name: "cat.jpg"})

	waitState(t, s, func(PhotoState) bool {
		mu.Lock()
		defer mu.Unlock()
		return len(selected) == 1
	})
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "f1", selected[0].ID)
}

func TestActive_MirrorsLoading(t *testing.T) {
	var flags []bool
	var mu sync.Mutex

	s, h, _ := openTestSync(t, Options{}, Notifier{
		OnActive: func(v bool) {
			mu.Lock()
			flags = append(flags, v)
			mu.Unlock()
		},
	})

	h.emitActive(true)
	waitState(t, s, func(st PhotoState) bool { return st.Loading })

	h.emitActive(false)
	waitState(t, s, func(st PhotoState) bool { return !st.Loading })

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []bool{true, false}, flags)
}

func TestComplete_ResetsEngineThenNotifies(t *testing.T) {
	var order []string
	var mu sync.Mutex

	h := newFakeHandle()
	h.onReset = func() {
		mu.Lock()
		order = append(order, "engine-reset")
		mu.Unlock()
	}
	e := &fakeEngine{handle: h}

	s, err := Open(context.Background(), e, "avatar", Options{}, Notifier{
		OnComplete: func(FileInfo) {
			mu.Lock()
			order = append(order, "notify")
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer s.Close()

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitValues("final.png")
	waitState(t, s, func(st PhotoState) bool { return st.Success })

	h.emitCompleted(FileInfo{ID: "f1"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"engine-reset", "notify"}, order)
	require.EqualValues(t, 1, h.resetCalls.Load())

	// The auto-reset rearms the engine slot only; the snapshot keeps
	// its confirmed value.
	st := s.State()
	require.Equal(t, "final.png", st.Photo)
	require.True(t, st.Success)
}

func TestSelect_NoopWhileDisabled(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Disabled: true}, Notifier{})

	require.NoError(t, s.Select())
	require.EqualValues(t, 0, h.selectCalls.Load())
	require.True(t, s.State().Disabled)

	s.SetDisabled(false)
	require.NoError(t, s.Select())
	require.EqualValues(t, 1, h.selectCalls.Load())
}

func TestDisabled_DoesNotBlockProgrammaticCommands(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Disabled: true}, Notifier{})

	require.NoError(t, s.Start())
	require.NoError(t, s.Pause())
	require.NoError(t, s.Resume())
	require.NoError(t, s.Reset())

	require.EqualValues(t, 1, h.startCalls.Load())
	require.EqualValues(t, 1, h.pauseCalls.Load())
	require.EqualValues(t, 1, h.resumeCalls.Load())
	require.EqualValues(t, 1, h.resetCalls.Load())
}

func TestReset_BeforeSuccess_RestoresBaseline(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitItem(ItemState{FileID: "f1", Thumbnail: "t1"})
	waitState(t, s, func(st PhotoState) bool { return st.Photo == "t1" })

	require.NoError(t, s.Reset())
	require.EqualValues(t, 1, h.resetCalls.Load())
	require.Equal(t, "default.png", s.State().Photo)
}

func TestReset_AfterSuccess_KeepsPersistedPhoto(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	h.emitFiles(FileInfo{ID: "f1"})
	h.emitValues("final.png")
	waitState(t, s, func(st PhotoState) bool { return st.Success })

	require.NoError(t, s.Reset())
	require.Equal(t, "final.png", s.State().Photo)
	require.True(t, s.State().Success)
}

func TestWrite_UpdatesPhotoAndBaseline(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	s.Write("other.png")
	require.Equal(t, "other.png", s.State().Photo)

	// Reset before success restores the latest written baseline.
	h.emitFiles(FileInfo{ID: "f1"})
	h.emitItem(ItemState{FileID: "f1", Thumbnail: "t1"})
	waitState(t, s, func(st PhotoState) bool { return st.Photo == "t1" })

	require.NoError(t, s.Reset())
	require.Equal(t, "other.png", s.State().Photo)
}

func TestUpdateConfig_ForwardsToHandle(t *testing.T) {
	s, h, _ := openTestSync(t, Options{}, Notifier{})

	cfg := UploadConfig{PathPrefix: "avatars", AutoStart: true}
	require.NoError(t, s.UpdateConfig(cfg))

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.cfgs, 1)
	require.Equal(t, cfg, h.cfgs[0])
}

func TestProgressAndErrors_AlwaysForwarded(t *testing.T) {
	var progress []Progress
	var errs []error
	var mu sync.Mutex

	_, h, _ := openTestSync(t, Options{}, Notifier{
		OnProgress: func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})

	h.emitProgress(Progress{FileID: "f1", Written: 10, Total: 100})
	h.emitProgress(Progress{FileID: "f1", Written: 100, Total: 100})
	engineErr := errors.New("transfer failed")
	h.emitErr(engineErr)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(progress) == 2 && len(errs) == 1
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int64(10), progress[0].Written)
	require.Equal(t, int64(100), progress[1].Written)
	require.ErrorIs(t, errs[0], engineErr)
}

func TestEngineError_DoesNotTouchState(t *testing.T) {
	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{})

	h.emitActive(true)
	waitState(t, s, func(st PhotoState) bool { return st.Loading })

	h.emitErr(errors.New("boom"))

	time.Sleep(20 * time.Millisecond)
	st := s.State()
	require.True(t, st.Loading, "loading clears only via the active flag")
	require.Equal(t, "default.png", st.Photo)
	require.False(t, st.Success)
}

func TestClose_IdempotentAndFailsFastAfter(t *testing.T) {
	s, h, _ := openTestSync(t, Options{}, Notifier{})

	require.NoError(t, s.Close())
	require.EqualValues(t, 1, h.releaseCalls.Load())

	require.ErrorIs(t, s.Close(), common.ErrClosed)
	require.ErrorIs(t, s.Select(), common.ErrClosed)
	require.ErrorIs(t, s.Start(), common.ErrClosed)
	require.ErrorIs(t, s.Pause(), common.ErrClosed)
	require.ErrorIs(t, s.Resume(), common.ErrClosed)
	require.ErrorIs(t, s.Reset(), common.ErrClosed)
	require.ErrorIs(t, s.UpdateConfig(UploadConfig{}), common.ErrClosed)
	require.EqualValues(t, 1, h.releaseCalls.Load())
}

// Full single-cycle walkthrough: select → thumbnail → upload → value →
// complete.
func TestFullCycle(t *testing.T) {
	var completes []FileInfo
	var mu sync.Mutex

	s, h, _ := openTestSync(t, Options{Value: "default.png"}, Notifier{
		OnComplete: func(f FileInfo) {
			mu.Lock()
			completes = append(completes, f)
			mu.Unlock()
		},
	})

	require.NoError(t, s.Select())
	require.EqualValues(t, 1, h.selectCalls.Load())

	h.emitFiles(FileInfo{ID: "f1", Name: "cat.jpg", Size: 1024})
	h.emitItem(ItemState{FileID: "f1", Status: StatusThumbnail, Thumbnail: "t1"})

	st := waitState(t, s, func(st PhotoState) bool { return st.Photo == "t1" })
	require.Equal(t, PhotoState{Photo: "t1"}, st)

	h.emitActive(true)
	waitState(t, s, func(st PhotoState) bool { return st.Loading })

	h.emitValues("final.png")
	st = waitState(t, s, func(st PhotoState) bool { return st.Success })
	require.Equal(t, "final.png", st.Photo)

	h.emitActive(false)
	h.emitCompleted(FileInfo{ID: "f1", Name: "cat.jpg"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(completes) == 1
	}, time.Second, 2*time.Millisecond)
	require.EqualValues(t, 1, h.resetCalls.Load())

	st = s.State()
	require.Equal(t, "final.png", st.Photo)
	require.True(t, st.Success)
	require.False(t, st.Loading)
}
