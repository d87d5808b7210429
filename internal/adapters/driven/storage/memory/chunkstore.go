package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore. Chunk
// sets are keyed by (documentID, params); text extraction delegates to the
// document store, mirroring the offsets-only storage contract of the
// sqlite implementation.
type ChunkStore struct {
	mu   sync.RWMutex
	sets map[string]map[int]domain.Chunk
	docs driven.DocumentStore
}

// NewChunkStore creates a new in-memory chunk store reading text through
// docs.
func NewChunkStore(docs driven.DocumentStore) *ChunkStore {
	return &ChunkStore{
		sets: make(map[string]map[int]domain.Chunk),
		docs: docs,
	}
}

func chunkSetKey(documentID string, params domain.ChunkParams) string {
	return documentID + "\x00" + params.Key()
}

// HasChunks reports whether any chunks exist for (documentID, params).
func (s *ChunkStore) HasChunks(_ context.Context, documentID string, params domain.ChunkParams) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets[chunkSetKey(documentID, params)]) > 0, nil
}

// UpsertChunks replaces the chunk set for (documentID, params). Chunks
// beyond the new set's numbering are dropped, so re-chunking can shrink
// the count.
func (s *ChunkStore) UpsertChunks(_ context.Context, documentID string, params domain.ChunkParams, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[int]domain.Chunk, len(chunks))
	for _, c := range chunks {
		set[c.ChunkNo] = c
	}
	s.sets[chunkSetKey(documentID, params)] = set
	return len(chunks), nil
}

// DeleteChunks removes chunks for the document, all parameter sets when
// params is nil.
func (s *ChunkStore) DeleteChunks(_ context.Context, documentID string, params *domain.ChunkParams) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params != nil {
		key := chunkSetKey(documentID, *params)
		deleted := len(s.sets[key])
		delete(s.sets, key)
		return deleted, nil
	}

	deleted := 0
	prefix := documentID + "\x00"
	for key, set := range s.sets {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			deleted += len(set)
			delete(s.sets, key)
		}
	}
	return deleted, nil
}

// GetChunk retrieves one chunk by its identity key.
func (s *ChunkStore) GetChunk(_ context.Context, documentID string, params domain.ChunkParams, chunkNo int) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sets[chunkSetKey(documentID, params)][chunkNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ForEachChunk streams every stored chunk in a stable order.
func (s *ChunkStore) ForEachChunk(_ context.Context, fn func(domain.Chunk) error) error {
	s.mu.RLock()
	snapshot := make([]domain.Chunk, 0)
	keys := make([]string, 0, len(s.sets))
	for key := range s.sets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		set := s.sets[key]
		nos := make([]int, 0, len(set))
		for no := range set {
			nos = append(nos, no)
		}
		sort.Ints(nos)
		for _, no := range nos {
			snapshot = append(snapshot, set[no])
		}
	}
	s.mu.RUnlock()

	for _, c := range snapshot {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// ExtractText returns fullText[start:end] against the current document
// text, or domain.ErrStaleChunk when the offsets no longer fit.
func (s *ChunkStore) ExtractText(ctx context.Context, documentID string, start, end int) (string, error) {
	text, err := s.docs.GetFullText(ctx, documentID)
	if err != nil {
		return "", err
	}
	if start < 0 || end < start || end > len(text) {
		return "", domain.ErrStaleChunk
	}
	return text[start:end], nil
}
