// Package storage is the file-system abstraction for export output and
// inbox input directories.
package storage

import "time"

// FileInfo describes one file under a storage root.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for rooted file operations. All paths are
// relative to the root.
type Provider interface {
	// List returns every regular file under dir whose name passes keep.
	// A nil keep lists all files.
	List(dir string, keep func(name string) bool) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute root directory.
	Root() string
}
