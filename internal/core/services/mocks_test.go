package services

import (
	"context"
	"sync"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// Hand-written mocks for the driven ports.

type mockDocStore struct {
	mu        sync.Mutex
	texts     map[string]string
	withdrawn map[string]bool
}

func newMockDocStore() *mockDocStore {
	return &mockDocStore{
		texts:     make(map[string]string),
		withdrawn: make(map[string]bool),
	}
}

func (m *mockDocStore) put(documentID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[documentID] = text
}

func (m *mockDocStore) withdraw(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawn[documentID] = true
}

func (m *mockDocStore) GetFullText(_ context.Context, documentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.texts[documentID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

func (m *mockDocStore) IsWithdrawn(_ context.Context, documentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.texts[documentID]; !ok {
		return false, domain.ErrNotFound
	}
	return m.withdrawn[documentID], nil
}

type mockEmbedder struct {
	mu         sync.Mutex
	dims       int
	embedErr   error
	batchErr   error
	batchCalls int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dims)
	for i := range v {
		v[i] = float32(len(text)%7+i) / 10
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int               { return m.dims }
func (m *mockEmbedder) ModelName() string             { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error  { return nil }
func (m *mockEmbedder) Close() error                  { return nil }

type mockChunkStore struct {
	mu      sync.Mutex
	sets    map[string][]domain.Chunk // documentID + "/" + params.Key()
	upserts int
	extract func(documentID string, start, end int) (string, error)
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{sets: make(map[string][]domain.Chunk)}
}

func setKey(documentID string, params domain.ChunkParams) string {
	return documentID + "/" + params.Key()
}

func (m *mockChunkStore) HasChunks(_ context.Context, documentID string, params domain.ChunkParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets[setKey(documentID, params)]) > 0, nil
}

func (m *mockChunkStore) UpsertChunks(_ context.Context, documentID string, params domain.ChunkParams, chunks []domain.Chunk) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.sets[setKey(documentID, params)] = append([]domain.Chunk(nil), chunks...)
	return len(chunks), nil
}

func (m *mockChunkStore) DeleteChunks(_ context.Context, documentID string, params *domain.ChunkParams) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	if params != nil {
		key := setKey(documentID, *params)
		deleted = len(m.sets[key])
		delete(m.sets, key)
		return deleted, nil
	}
	for key, chunks := range m.sets {
		if len(chunks) > 0 && chunks[0].DocumentID == documentID {
			deleted += len(chunks)
			delete(m.sets, key)
		}
	}
	return deleted, nil
}

func (m *mockChunkStore) GetChunk(_ context.Context, documentID string, params domain.ChunkParams, chunkNo int) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.sets[setKey(documentID, params)] {
		if c.ChunkNo == chunkNo {
			out := c
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockChunkStore) ForEachChunk(_ context.Context, fn func(domain.Chunk) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunks := range m.sets {
		for _, c := range chunks {
			if err := fn(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *mockChunkStore) ExtractText(_ context.Context, documentID string, start, end int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extract != nil {
		return m.extract(documentID, start, end)
	}
	return "", domain.ErrNotFound
}

type mockVectorIndex struct {
	mu          sync.Mutex
	upserted    []domain.Chunk
	deleted     []string
	deletedDocs []string
	withdrawn   map[string]bool
	corpusHits  []domain.VectorHit
	docHits     []domain.VectorHit
	corpusErr   error
	docErr      error
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{withdrawn: make(map[string]bool)}
}

func (m *mockVectorIndex) Upsert(_ context.Context, chunk domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, chunk)
	return nil
}

func (m *mockVectorIndex) Delete(_ context.Context, chunkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, chunkID)
	return nil
}

func (m *mockVectorIndex) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedDocs = append(m.deletedDocs, documentID)
	return nil
}

func (m *mockVectorIndex) SetWithdrawn(_ context.Context, documentID string, withdrawn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawn[documentID] = withdrawn
	return nil
}

func (m *mockVectorIndex) SearchCorpus(_ context.Context, _ []float32, _ float64, _ int) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.corpusErr != nil {
		return nil, m.corpusErr
	}
	return m.corpusHits, nil
}

func (m *mockVectorIndex) SearchDocument(_ context.Context, _ string, _ []float32, _ float64, _ int) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docErr != nil {
		return nil, m.docErr
	}
	return m.docHits, nil
}

func (m *mockVectorIndex) Close() error { return nil }

func (m *mockVectorIndex) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserted)
}

type mockLexical struct {
	mu    sync.Mutex
	hits  []domain.LexicalHit
	err   error
	calls int
}

func (m *mockLexical) Search(_ context.Context, _ string, _ int) ([]domain.LexicalHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func (m *mockLexical) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type reportedFailure struct {
	documentID string
	errMsg     string
	permanent  bool
}

// mockQueue scripts LeaseNext with a fixed sequence of entries and records
// every state transition the service requests.
type mockQueue struct {
	mu        sync.Mutex
	leases    []*domain.QueueEntry
	enqueued  map[string]int
	released  []string
	succeeded []string
	failures  []reportedFailure
	backlog   int
	dead      []domain.QueueEntry
}

func newMockQueue(leases ...*domain.QueueEntry) *mockQueue {
	return &mockQueue{leases: leases, enqueued: make(map[string]int)}
}

func (m *mockQueue) Enqueue(_ context.Context, documentID string, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued[documentID] = priority
	return nil
}

func (m *mockQueue) LeaseNext(_ context.Context, workerID string) (*domain.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.leases) == 0 {
		return nil, nil
	}
	entry := m.leases[0]
	m.leases = m.leases[1:]
	if entry != nil {
		entry.State = domain.QueueStateLeased
		entry.LeaseWorker = workerID
	}
	return entry, nil
}

func (m *mockQueue) Release(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, documentID)
	return nil
}

func (m *mockQueue) ReportSuccess(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded = append(m.succeeded, documentID)
	return nil
}

func (m *mockQueue) ReportFailure(_ context.Context, documentID string, errMsg string, permanent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, reportedFailure{documentID, errMsg, permanent})
	return nil
}

func (m *mockQueue) BacklogSize(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backlog, nil
}

func (m *mockQueue) DeadLetterCount(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dead), nil
}

func (m *mockQueue) ListDead(_ context.Context) ([]domain.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.QueueEntry(nil), m.dead...), nil
}

func (m *mockQueue) releasedDocs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

func (m *mockQueue) succeededDocs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.succeeded...)
}

func (m *mockQueue) reportedFailures() []reportedFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reportedFailure(nil), m.failures...)
}
