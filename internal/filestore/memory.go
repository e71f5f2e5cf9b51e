package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// memoryStore holds files in process memory. Meant for tests and
// throwaway setups; nothing survives a restart.
type memoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func init() {
	Register("memory", func(args interface{}) (Store, error) {
		_ = args
		return NewMemoryStore(), nil
	})
}

func NewMemoryStore() Store {
	return &memoryStore{files: map[string][]byte{}}
}

func (s *memoryStore) Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error {
	_ = ctx
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.files[key] = data
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Open(ctx context.Context, key string) (ReadSeekCloser, error) {
	_ = ctx
	s.mu.RLock()
	data, ok := s.files[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	return nopSeekCloser{bytes.NewReader(data)}, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.files, key)
	s.mu.Unlock()
	return nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error {
	return nil
}
