package slot

// NamingPolicy selects how an engine derives the storage key for an
// uploaded file.
type NamingPolicy string

const (
	// NamingRandom stores under a dated random key, keeping the original
	// file extension.
	NamingRandom NamingPolicy = "random"

	// NamingOriginal stores under the sanitized original file name.
	NamingOriginal NamingPolicy = "original"
)

// ResizeMethod selects how an image is fitted into target dimensions.
type ResizeMethod string

const (
	// MethodFit scales the image down to fit inside the box, preserving
	// aspect ratio.
	MethodFit ResizeMethod = "fit"

	// MethodFill scales and center-crops the image to fill the box.
	MethodFill ResizeMethod = "fill"
)

// Transform describes one image derivation (thumbnail or resize).
// A zero Width or Height preserves the aspect ratio along that axis;
// both zero means the transform is not applied. Quality is a JPEG
// quality on the 1..100 scale, 0 meaning the engine default.
type Transform struct {
	Width   int
	Height  int
	Method  ResizeMethod
	Quality int
}

// UploadConfig carries the per-slot engine configuration. The slot is
// fixed to a single file per cycle and to image content; those are not
// configurable here.
//
// A config is immutable for the cycle it was selected with: engines
// apply a replacement only to future selections, never to an in-flight
// one.
type UploadConfig struct {
	// PathPrefix is prepended to every storage key.
	PathPrefix string

	// Naming selects the storage key policy.
	Naming NamingPolicy

	// AutoStart starts the upload as soon as a selection has been made.
	AutoStart bool

	// Thumb produces the transient preview shown while uploading.
	Thumb Transform

	// Resize is applied to the payload before it is persisted.
	Resize Transform
}
