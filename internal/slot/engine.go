package slot

import "context"

// Engine hands out upload slots. Implementations perform the actual
// file transfer, thumbnailing, resizing and persistence; the
// synchronizer only observes them through a SessionHandle.
type Engine interface {
	// Open acquires the slot registered under id. A second Open for an
	// id that is still held must fail with common.ErrSlotBusy.
	Open(ctx context.Context, id string, cfg UploadConfig) (SessionHandle, error)
}

// EventKind discriminates Event payloads.
type EventKind int

const (
	// EventFiles carries one burst of selected files for a new cycle.
	EventFiles EventKind = iota + 1

	// EventItem carries a per-file state change.
	EventItem

	// EventValues carries the final persisted reference(s) for a cycle.
	EventValues

	// EventActive reports whether the slot is busy transferring.
	EventActive

	// EventProgress carries transfer progress. Progress may be dropped
	// under consumer lag; every other kind is delivered reliably.
	EventProgress

	// EventCompleted marks one successfully finished file.
	EventCompleted

	// EventError carries an engine-reported transfer or validation
	// error.
	EventError
)

// Event is one engine emission. Kind selects which payload field is
// meaningful; the others hold zero values.
type Event struct {
	Kind EventKind

	Files    []FileInfo
	Item     ItemState
	Values   []string
	Active   bool
	Progress Progress
	File     FileInfo
	Err      error
}

// SessionHandle is one engine slot, exclusively owned by a single
// synchronizer. All emissions arrive on a single stream, in exactly
// the order the engine produced them: a cycle's file burst is always
// observed before that cycle's final value. Commands are
// fire-and-forget: they never return errors directly, failures surface
// as EventError. Legality of a command in the current engine state is
// the engine's responsibility.
type SessionHandle interface {
	// Configure replaces the slot config. Idempotent; applies to the
	// next selection without disturbing an in-flight one.
	Configure(cfg UploadConfig)

	// Events is the session's ordered emission stream. Release closes
	// it.
	Events() <-chan Event

	Select()
	Start()
	Pause()
	Resume()
	Reset()

	// Release terminates the stream and frees engine-side resources.
	// Idempotent; late emissions from in-flight operations are dropped.
	Release()
}
