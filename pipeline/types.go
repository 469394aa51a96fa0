package pipeline

import "time"

// UploadRequest carries one untrusted payload through the pipeline. The Data
// slice is owned by the request for the duration of a ProcessUpload call and
// is never retained afterwards.
type UploadRequest struct {
	OriginalName string
	MimeType     string
	Size         int64
	FieldName    string // logical field hint, e.g. "avatar", "game_cover"
	Data         []byte
}

// UploadConfig is the resolved policy for one upload field. It is produced by
// the config layer (see config.ResolveUploadConfig) and treated as immutable
// for the duration of a call.
type UploadConfig struct {
	MaxSize           int64
	AllowedMimeTypes  []string
	AllowedExtensions []string // including the dot, lower case
	StorageRoot       string
	PublicURLPrefix   string
	EnableThreatScan  bool
	EnableProcessing  bool
	MaxWidth          int // 0 means unconstrained
	MaxHeight         int
	Quality           int // JPEG quality 1-100, 0 means default
}

// UploadedFileRecord is the result of a successful ingestion. It is only
// constructed after the bytes are durably committed and hashed.
type UploadedFileRecord struct {
	OriginalName string
	FileName     string
	MimeType     string
	Size         int64
	RelativePath string
	URL          string
	Hash         string // hex-encoded SHA-256 of the stored bytes
	Width        int    // 0 when not an image or processing skipped
	Height       int
}

// FileStat describes a stored file for the stat operation.
type FileStat struct {
	Size    int64
	ModTime time.Time
}

// findingKind classifies the outcome of a content inspection.
type findingKind int

const (
	findingValid findingKind = iota
	findingInvalid
	findingThreat
)

// finding is the tri-state result produced by the sniffer and the scanner.
// It never leaves the package.
type finding struct {
	kind         findingKind
	reason       string
	detectedMime string
}
