package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// Object is a stored payload together with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is an in-memory implementation of objstore.Store.
// It keeps keys in first-write order and is safe for concurrent use.
// Data is lost on restart - use it for local development and tests.
type Store struct {
	mu      sync.RWMutex
	order   []string
	objects map[string]Object
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]Object),
	}
}

// Put implements objstore.Store. Writing an existing key replaces its payload
// but keeps its original position.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return fmt.Errorf("put: key is required")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %q: read body: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		s.order = append(s.order, key)
	}
	s.objects[key] = Object{Data: data, ContentType: contentType}

	return nil
}

// List implements objstore.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for _, key := range s.order {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Get returns a copy of the object stored under key.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return Object{}, false
	}
	return Object{Data: bytes.Clone(obj.Data), ContentType: obj.ContentType}, true
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Close implements objstore.Store.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements objstore.Store.
var _ objstore.Store = (*Store)(nil)
