// Package s3engine is the reference upload engine behind package slot:
// it selects files through a Picker, renders thumbnails locally with
// disintegration/imaging, and persists resized payloads to an
// S3-compatible object store (AWS or MinIO).
//
// # Overview
//
// One Engine serves many slots; each Open hands out a session
// implementing slot.SessionHandle. Sessions run their transfer work on
// short-lived goroutines and communicate only through the handle's
// single event channel, so the consuming synchronizer sees emissions
// in production order. Uploads retry transient failures with fibonacci
// backoff and throttle progress emissions with a rate limiter.
//
// Key Types
//
//   - type Engine  — slot registry plus S3 client
//   - type Config  — bucket, endpoint, credentials, thumbnail cache
//   - type Picker  — supplies the file when a Select arrives
//
// Typical Usage
//
//	eng, err := s3engine.New(cfg, s3engine.PathPicker("cat.jpg"), log)
//	h, err := eng.Open(ctx, "avatar", slotCfg)
//
// Engines are safe for use by multiple goroutines; each session is
// owned by exactly one consumer.
package s3engine
