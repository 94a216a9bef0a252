// Package blobstore stores medical record files. Metadata lives in the
// database; this package only holds the bytes, keyed by record id.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrTooLarge = errors.New("file exceeds maximum allowed size")
)

// MaxBlobSize is the maximum allowed file size in bytes (25 MB).
const MaxBlobSize = 25 * 1024 * 1024

// Store is the contract for blob backends.
type Store interface {
	// Put reads content to its end and stores it under id, returning the
	// byte count and the hex SHA-256 of the content.
	Put(ctx context.Context, id uuid.UUID, content io.Reader) (int64, string, error)
	Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

// NewMemoryStore returns an in-process Store. Suitable for development
// and tests; swap for an object-storage implementation in deployment.
func NewMemoryStore() Store {
	return &memoryStore{blobs: make(map[uuid.UUID][]byte)}
}

func (s *memoryStore) Put(_ context.Context, id uuid.UUID, content io.Reader) (int64, string, error) {
	// Read one byte past the cap to detect oversize without buffering
	// an unbounded stream.
	data, err := io.ReadAll(io.LimitReader(content, MaxBlobSize+1))
	if err != nil {
		return 0, "", fmt.Errorf("read blob: %w", err)
	}
	if len(data) > MaxBlobSize {
		return 0, "", ErrTooLarge
	}

	sum := sha256.Sum256(data)

	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return int64(len(data)), hex.EncodeToString(sum[:]), nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, id)
	return nil
}
