package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no blob exists for the requested document.
var ErrNotFound = errors.New("blob not found")

// BlobStore persists uploaded document bytes on the local filesystem,
// keyed by document id.
type BlobStore struct {
	dir string
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

func (s *BlobStore) path(docID string) string {
	return filepath.Join(s.dir, filepath.Base(docID)+".pdf")
}

// Put writes the blob for docID, replacing any previous content.
func (s *BlobStore) Put(docID string, data []byte) (string, error) {
	p := s.path(docID)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", docID, err)
	}
	return p, nil
}

// Get returns the stored bytes for docID.
func (s *BlobStore) Get(docID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(docID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return nil, fmt.Errorf("read blob %s: %w", docID, err)
	}
	return data, nil
}

// Delete removes the blob for docID. Missing blobs are not an error.
func (s *BlobStore) Delete(docID string) error {
	err := os.Remove(s.path(docID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", docID, err)
	}
	return nil
}
