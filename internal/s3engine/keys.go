package s3engine

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photoslot/internal/slot"
)

// storageKey derives the object key for an upload per the slot's
// naming policy.
func storageKey(cfg slot.UploadConfig, name string) string {
	switch cfg.Naming {
	case slot.NamingOriginal:
		return path.Join(cfg.PathPrefix, sanitizeName(name))
	default:
		d := time.Now()
		key := fmt.Sprintf("%d/%02d/%02d/%s%s", d.Year(), int(d.Month()), d.Day(), uuid.New(), strings.ToLower(path.Ext(name)))
		return path.Join(cfg.PathPrefix, key)
	}
}

// sanitizeName keeps object keys flat and portable: path separators and
// control characters are replaced, everything else passes through.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return uuid.NewString()
	}
	return out
}
