package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photoslot/internal/common"
	"github.com/dmitrijs2005/photoslot/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, u *Upload) error {

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CompletedAt.IsZero() {
		u.CompletedAt = time.Now().UTC()
	}

	query := `insert into uploads (id, slot_id, value, file_name, completed_at)
			values (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.SlotID, u.Value, u.FileName, u.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) LastValue(ctx context.Context, slotID string) (string, error) {

	query := `select value from uploads where slot_id=? order by completed_at desc, id desc limit 1`
	row := r.db.QueryRowContext(ctx, query, slotID)

	var v string
	err := row.Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last value: %w", err)
	}

	return v, nil
}

func (r *SQLiteRepository) ListBySlot(ctx context.Context, slotID string, limit int) ([]*Upload, error) {

	query := `select id, slot_id, value, file_name, completed_at from uploads
			where slot_id=? order by completed_at desc, id desc limit ?`
	rows, err := r.db.QueryContext(ctx, query, slotID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var result []*Upload
	for rows.Next() {
		u := &Upload{}
		if err := rows.Scan(&u.ID, &u.SlotID, &u.Value, &u.FileName, &u.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate uploads: %w", err)
	}

	return result, nil
}
