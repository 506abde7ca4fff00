// Package history provides the client-side persistence layer for
// confirmed upload results.
//
// # Overview
//
// The package defines a Repository interface for recording each final
// persisted value a slot produced and for querying the most recent one
// (hosts use it to seed a new synchronizer's baseline with the photo
// persisted last time). A SQLite-backed implementation
// (SQLiteRepository) persists data via a dbx.DBTX (*sql.DB or *sql.Tx);
// the schema is managed with embedded goose migrations.
//
// Key Types
//
//   - type Repository        — contract used by hosting surfaces
//   - type SQLiteRepository  — SQLite implementation over dbx.DBTX
//   - type Upload            — one recorded result
//
// Typical Usage
//
//	db, _ := history.InitDatabase(ctx, "photoslot.db")
//	repo := history.NewSQLiteRepository(db)
//	_ = repo.Add(ctx, &history.Upload{SlotID: "avatar", Value: url})
//	last, _ := repo.LastValue(ctx, "avatar")
package history
