package storage

import (
	"context"
	"errors"
	"io"
)

// Validation failures surfaced to upload handlers.
var (
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	ErrFileTooLarge    = errors.New("storage: file exceeds the size limit")
	ErrEmptyFile       = errors.New("storage: file is empty")
)

// Upload describes an incoming document before it is written.
type Upload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Store persists uploaded verification documents.
type Store interface {
	// Save validates and writes an upload, returning its storage path.
	Save(ctx context.Context, up Upload) (string, error)

	// Open streams a previously stored document.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes a stored document. Removing a missing path is not an error.
	Remove(ctx context.Context, path string) error
}
