package domain

import "time"

// MaxUploadSize is the largest file accepted for upload.
const MaxUploadSize = 50 * 1024 * 1024

// DatasetFile describes a file in the data directory.
type DatasetFile struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
	Path         string    `json:"path"`
}
