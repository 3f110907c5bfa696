// Package store provides the persistence primitive the configuration
// manager writes through. The host application injects an implementation;
// the manager never touches storage directly.
package store

import (
	"sync"

	"llmfill/internal/schema"
)

// Store reads and writes the single persisted configuration document.
//
// Read returns (nil, nil) when no document has been stored yet; callers
// treat that identically to an empty mapping. Write replaces the whole
// document; there are no partial writes.
type Store interface {
	Read() (schema.Raw, error)
	Write(schema.Raw) error
}

// MemStore is an in-memory Store for tests and for hosts that manage
// persistence themselves.
type MemStore struct {
	mu  sync.Mutex
	doc schema.Raw

	// ReadErr and WriteErr, when set, are returned by the corresponding
	// method. Tests use them to exercise failure paths.
	ReadErr  error
	WriteErr error
}

// NewMemStore returns an empty MemStore. A nil doc means "nothing stored".
func NewMemStore(doc schema.Raw) *MemStore {
	return &MemStore{doc: doc.Clone()}
}

// Read returns a copy of the stored document, or (nil, nil) when empty.
func (s *MemStore) Read() (schema.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.doc.Clone(), nil
}

// Write replaces the stored document with a copy of raw.
func (s *MemStore) Write(raw schema.Raw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.doc = raw.Clone()
	return nil
}

// Doc returns a copy of the stored document without the error injection
// Read applies. Tests use it to assert what actually reached storage.
func (s *MemStore) Doc() schema.Raw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}
