// Package slot drives a single image-upload slot through its lifecycle:
// idle → selecting → uploading → paused/resumed → completed → reset.
//
// # Overview
//
// The package folds one engine slot's ordered event stream (selection
// bursts, per-item state, final values, active flag, progress, errors)
// into a single observable PhotoState snapshot, while exposing the slot
// as a settable external value (write / change-notify / disable) and as
// a set of discrete lifecycle notifications.
//
// The actual transfer, thumbnailing, resizing and persistence are the
// Engine's concern; package s3engine ships the reference implementation.
//
// Key Types
//
//   - type Engine         — hands out slots keyed by id
//   - type SessionHandle  — one slot: ordered event stream plus commands
//   - type Synchronizer   — the merge pipeline and public surface
//   - type PhotoState     — {Loading, Photo, Success, Disabled}
//   - type UploadConfig   — per-slot engine configuration
//
// Typical Usage
//
//	s, err := slot.Open(ctx, engine, "avatar", slot.Options{
//	    Config: cfg,
//	    Value:  "default.png",
//	}, slot.Notifier{
//	    OnComplete: func(f slot.FileInfo) { ... },
//	})
//	defer s.Close()
//	_ = s.Select()
//
// A Synchronizer owns its SessionHandle exclusively and must be closed
// exactly once; operations after Close fail with common.ErrClosed.
package slot
