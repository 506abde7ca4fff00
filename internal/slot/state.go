package slot

// PhotoState is the externally observable snapshot of one upload slot.
//
// Photo holds the current displayable image reference: a transient
// thumbnail, a final persisted URL, or an externally supplied default.
// Within one selection cycle Photo only ever becomes "more final": a
// thumbnail may be overwritten by the persisted value, never the reverse.
type PhotoState struct {
	// Loading mirrors the engine's active flag for the slot.
	Loading bool

	// Photo is the current displayable image reference ("" = none).
	Photo string

	// Success is true once a final persisted value has been received
	// for the current selection.
	Success bool

	// Disabled blocks Select; programmatic commands are unaffected.
	Disabled bool
}

// FileInfo describes one selected file as reported by the engine.
type FileInfo struct {
	ID   string
	Name string
	Size int64
	MIME string
}

// ItemState is a per-file state emission. Thumbnail is empty until the
// engine has produced one.
type ItemState struct {
	FileID    string
	Status    string
	Thumbnail string
}

// Item statuses reported by engines.
const (
	StatusSelected  = "selected"
	StatusThumbnail = "thumbnail"
	StatusUploading = "uploading"
	StatusComplete  = "complete"
)

// Progress reports transfer progress for one file. Total may be zero
// when the payload size is unknown.
type Progress struct {
	FileID  string
	Written int64
	Total   int64
}
