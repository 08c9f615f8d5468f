package domain

import "time"

// FileFingerprint identifies the content of a file at discovery time.
type FileFingerprint struct {
	// Name is the base filename.
	Name string

	// Path is the full path on disk.
	Path string

	// Hash is the hex SHA-256 digest of the raw bytes.
	Hash string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}
