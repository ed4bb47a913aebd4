// Package memory stores documents in-memory for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

// DocumentStore keeps inserted documents in insertion order.
type DocumentStore struct {
	mu   sync.RWMutex
	docs []harvest.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// Insert appends the document.
func (s *DocumentStore) Insert(_ context.Context, doc harvest.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

// Documents returns a snapshot of everything inserted so far.
func (s *DocumentStore) Documents() []harvest.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]harvest.Document(nil), s.docs...)
}

// Ping always succeeds.
func (s *DocumentStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *DocumentStore) Close(context.Context) error { return nil }
