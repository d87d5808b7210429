// Package memory provides in-memory implementations of the storage ports.
// They back tests and the ephemeral mode of the CLI; durable deployments
// use the sqlite package.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var _ driven.DocumentStore = (*DocumentStore)(nil)
var _ driven.DocumentCatalog = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentCatalog.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// PutDocument stores or updates a document.
func (s *DocumentStore) PutDocument(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	now := time.Now().UTC()
	if existing, ok := s.documents[doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetFullText returns the document's full text.
func (s *DocumentStore) GetFullText(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return doc.FullText, nil
}

// IsWithdrawn reports whether the document has been withdrawn.
func (s *DocumentStore) IsWithdrawn(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return doc.Withdrawn, nil
}

// SetWithdrawn flips the withdrawn flag.
func (s *DocumentStore) SetWithdrawn(_ context.Context, id string, withdrawn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Withdrawn = withdrawn
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return nil
}

// DeleteDocument removes a document.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}
