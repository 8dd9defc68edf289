// Package memory contains an in-memory archive store for tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Object captures one stored artifact.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// Store keeps stored artifacts in memory for inspection.
type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New returns a memory Store.
func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

// Put records the artifact and returns a mem:// URI.
func (s *Store) Put(_ context.Context, path string, contentType string, data io.Reader) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read data: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = Object{Path: path, ContentType: contentType, Data: body}
	return "mem://" + path, nil
}

// Object returns the stored artifact for a path.
func (s *Store) Object(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
