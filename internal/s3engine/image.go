package s3engine

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/dmitrijs2005/photoslot/internal/slot"
)

const defaultJPEGQuality = 85

func jpegQuality(t slot.Transform) int {
	if t.Quality <= 0 || t.Quality > 100 {
		return defaultJPEGQuality
	}
	return t.Quality
}

// applyTransform fits or fills img into the transform box. A single
// zero dimension preserves the aspect ratio along that axis.
func applyTransform(img image.Image, t slot.Transform) image.Image {
	if t.Width == 0 || t.Height == 0 {
		return imaging.Resize(img, t.Width, t.Height, imaging.Lanczos)
	}
	if t.Method == slot.MethodFill {
		return imaging.Fill(img, t.Width, t.Height, imaging.Center, imaging.Lanczos)
	}
	return imaging.Fit(img, t.Width, t.Height, imaging.Lanczos)
}

// renderThumb writes a JPEG thumbnail into dir and returns its path.
// Returns "" when no thumbnail is configured.
func renderThumb(dir, fileID string, img image.Image, t slot.Transform) (string, error) {
	if t.Width == 0 && t.Height == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	out := applyTransform(img, t)
	path := filepath.Join(dir, fileID+".jpg")
	if err := imaging.Save(out, path, imaging.JPEGQuality(jpegQuality(t))); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	return path, nil
}

// buildPayload prepares the bytes to persist. With a resize transform
// configured the image is re-encoded as JPEG; otherwise the original
// bytes go up untouched.
func buildPayload(img image.Image, raw []byte, mime string, t slot.Transform) ([]byte, string, error) {
	if t.Width == 0 && t.Height == 0 {
		return raw, mime, nil
	}

	out := applyTransform(img, t)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality(t))); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}
