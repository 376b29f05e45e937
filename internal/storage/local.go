package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var extensionsByType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// LocalStore writes documents beneath a root directory on the local disk.
// Files are grouped by owner so a user's documents can be purged together.
type LocalStore struct {
	root         string
	maxBytes     int64
	allowedTypes map[string]struct{}
}

// NewLocalStore prepares a disk-backed store rooted at the given directory.
func NewLocalStore(root string, maxBytes int64, allowedTypes []string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}

	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return &LocalStore{root: root, maxBytes: maxBytes, allowedTypes: allowed}, nil
}

// Save validates the upload and writes it to <root>/<ownerID>/<uuid><ext>.
func (s *LocalStore) Save(ctx context.Context, up Upload) (string, error) {
	if err := s.validate(up); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, up.OwnerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create owner dir: %w", err)
	}

	name := uuid.NewString() + extensionFor(up)
	rel := filepath.ToSlash(filepath.Join(up.OwnerID, name))
	dst := filepath.Join(dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}

	// LimitReader guards against clients lying about the declared size.
	written, err := io.Copy(f, io.LimitReader(up.Content, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(dst)
		return "", ErrFileTooLarge
	}
	if written == 0 {
		_ = os.Remove(dst)
		return "", ErrEmptyFile
	}

	return rel, nil
}

// Open streams a stored document by its relative path.
func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// Remove deletes a stored document. Missing files are ignored.
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) validate(up Upload) error {
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if _, ok := s.allowedTypes[contentType]; !ok {
		return ErrUnsupportedType
	}
	if up.Size > s.maxBytes {
		return ErrFileTooLarge
	}
	if up.OwnerID == "" {
		return fmt.Errorf("storage: owner id is required")
	}
	return nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("storage: invalid path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

func extensionFor(up Upload) string {
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if ext, ok := extensionsByType[contentType]; ok {
		return ext
	}
	if ext := filepath.Ext(up.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	return ".bin"
}
