// Package blob stores brush mask payloads content-addressed by SHA256.
// Large RLE masks are written here once and referenced from results by
// hash, keeping the result JSON small. Blobs live in a two-level directory
// layout using the first two hash characters as a prefix.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ErrNotFound is returned for hashes with no stored blob.
var ErrNotFound = errors.New("mask blob not found")

var validHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Store is a filesystem-backed, content-addressed mask store.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put writes a mask payload and returns its hash. Writing the same payload
// twice is a cheap no-op.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create blob prefix dir: %w", err)
	}

	// Write through a temp file so a partial write never becomes an
	// addressable blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob %s: %w", hash, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob %s: %w", hash, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize blob %s: %w", hash, err)
	}
	return hash, nil
}

// Get reads a mask payload by hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if !validHash.MatchString(hash) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.blobPath(hash))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return data, nil
}

// Has checks for a blob without reading it.
func (s *Store) Has(hash string) bool {
	if !validHash.MatchString(hash) {
		return false
	}
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

// Delete removes a blob; missing blobs are no-ops.
func (s *Store) Delete(hash string) error {
	if !validHash.MatchString(hash) {
		return nil
	}
	err := os.Remove(s.blobPath(hash))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", hash, err)
	}
	return nil
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}
