// Package common defines shared constants and sentinel errors used across
// photoslot components. Callers should use errors.Is to match these values.
package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// slot lifecycle errors
	ErrClosed   = errors.New("synchronizer closed")
	ErrSlotBusy = errors.New("slot id already open")

	// engine-side selection/validation errors
	ErrNoPicker         = errors.New("no picker configured")
	ErrNoSelection      = errors.New("no file selected")
	ErrUnsupportedImage = errors.New("unsupported image type")
)
