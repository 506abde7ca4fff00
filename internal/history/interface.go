package history

import (
	"context"
	"time"
)

// Upload is one confirmed upload result for a slot.
type Upload struct {
	ID          string
	SlotID      string
	Value       string
	FileName    string
	CompletedAt time.Time
}

// Repository describes the operations for recorded upload results.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Add records a confirmed result. A missing ID or CompletedAt is
	// filled in by the implementation.
	Add(ctx context.Context, u *Upload) error

	// LastValue returns the most recently recorded value for the slot,
	// or common.ErrorNotFound if the slot has no history.
	LastValue(ctx context.Context, slotID string) (string, error)

	// ListBySlot returns up to limit results for the slot, newest
	// first.
	ListBySlot(ctx context.Context, slotID string, limit int) ([]*Upload, error)
}
