package models

import "time"

// UploadedFile records a file committed by the ingestion pipeline. Rows back
// the listing API and the retention sweeper; the filesystem remains the
// source of truth for the bytes themselves.
type UploadedFile struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	OriginalName string     `gorm:"size:255" json:"original_name"`
	FileName     string     `gorm:"size:128;not null" json:"file_name"`
	MimeType     string     `gorm:"size:64" json:"mime_type"`
	Size         int64      `json:"size"`
	Category     string     `gorm:"size:32;index" json:"category"`
	RelativePath string     `gorm:"size:1024;not null" json:"relative_path"`
	URL          string     `gorm:"size:1024;not null" json:"url"`
	Hash         string     `gorm:"size:64;index" json:"hash"` // hex sha256 of stored bytes
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	ExpireAt     *time.Time `gorm:"index" json:"expire_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
