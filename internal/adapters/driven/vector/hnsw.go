// Package vector provides the in-process ANN index over chunk embeddings,
// built on the pure-Go HNSW implementation from github.com/coder/hnsw.
//
// The index is in-memory only: the chunk store is the durable source of
// truth and the graph is rebuilt from it at startup. Corpus search goes
// through the HNSW graph with oversampling to absorb threshold and
// withdrawn-document filtering; document-scoped search never touches the
// graph at all, it scans the document's own vectors exactly, which is both
// filter-first and exact for the few hundred chunks a document has.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// oversample is how many times the requested limit the graph search asks
// for, so threshold and withdrawn filtering still leave enough hits.
const oversample = 4

type chunkMeta struct {
	documentID string
	chunkNo    int
}

// Index is an HNSW-backed implementation of driven.VectorIndex keyed by
// chunk identity (Chunk.ID form).
type Index struct {
	mu        sync.RWMutex
	dims      int
	graph     *hnsw.Graph[string]
	meta      map[string]chunkMeta
	byDoc     map[string]map[string][]float32
	withdrawn map[string]bool
}

// NewIndex creates an empty index for embeddings of the given dimension.
func NewIndex(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension %d must be positive", domain.ErrInvalidInput, dims)
	}

	graph := hnsw.NewGraph[string]()
	graph.M = 16
	graph.Ml = 0.25
	graph.EfSearch = 50
	graph.Distance = hnsw.CosineDistance

	return &Index{
		dims:      dims,
		graph:     graph,
		meta:      make(map[string]chunkMeta),
		byDoc:     make(map[string]map[string][]float32),
		withdrawn: make(map[string]bool),
	}, nil
}

// Dimensions returns the configured embedding dimension.
func (ix *Index) Dimensions() int {
	return ix.dims
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.meta)
}

// Upsert inserts or replaces the vector for the chunk's identity key.
func (ix *Index) Upsert(_ context.Context, chunk domain.Chunk) error {
	if len(chunk.Embedding) != ix.dims {
		return fmt.Errorf("%w: embedding has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(chunk.Embedding), ix.dims)
	}

	id := chunk.ID()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// HNSW nodes are immutable; replace is delete-then-add.
	if _, exists := ix.meta[id]; exists {
		ix.graph.Delete(id)
	}
	ix.graph.Add(hnsw.MakeNode(id, chunk.Embedding))

	ix.meta[id] = chunkMeta{documentID: chunk.DocumentID, chunkNo: chunk.ChunkNo}
	docVecs, ok := ix.byDoc[chunk.DocumentID]
	if !ok {
		docVecs = make(map[string][]float32)
		ix.byDoc[chunk.DocumentID] = docVecs
	}
	docVecs[id] = chunk.Embedding
	return nil
}

// Delete removes one chunk's vector. Unknown keys are a no-op.
func (ix *Index) Delete(_ context.Context, chunkID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteLocked(chunkID)
	return nil
}

// DeleteDocument removes every vector belonging to the document.
func (ix *Index) DeleteDocument(_ context.Context, documentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for id := range ix.byDoc[documentID] {
		ix.graph.Delete(id)
		delete(ix.meta, id)
	}
	delete(ix.byDoc, documentID)
	delete(ix.withdrawn, documentID)
	return nil
}

func (ix *Index) deleteLocked(chunkID string) {
	m, ok := ix.meta[chunkID]
	if !ok {
		return
	}
	ix.graph.Delete(chunkID)
	delete(ix.meta, chunkID)
	if docVecs := ix.byDoc[m.documentID]; docVecs != nil {
		delete(docVecs, chunkID)
		if len(docVecs) == 0 {
			delete(ix.byDoc, m.documentID)
		}
	}
}

// SetWithdrawn marks a document (in)visible to search.
func (ix *Index) SetWithdrawn(_ context.Context, documentID string, withdrawn bool) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if withdrawn {
		ix.withdrawn[documentID] = true
	} else {
		delete(ix.withdrawn, documentID)
	}
	return nil
}

// SearchCorpus returns chunks across the whole corpus with cosine
// similarity >= threshold, best first. Withdrawn documents are excluded.
func (ix *Index) SearchCorpus(_ context.Context, query []float32, threshold float64, limit int) ([]domain.VectorHit, error) {
	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(query), ix.dims)
	}
	if limit <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	k := limit * oversample
	if k > len(ix.meta) {
		k = len(ix.meta)
	}
	if k == 0 {
		return nil, nil
	}

	var hits []domain.VectorHit
	for _, node := range ix.graph.Search(query, k) {
		m, ok := ix.meta[node.Key]
		if !ok || ix.withdrawn[m.documentID] {
			continue
		}
		score := cosineScore(query, node.Value)
		if score < threshold {
			// Results come back nearest first; below the threshold
			// nothing further qualifies.
			break
		}
		hits = append(hits, domain.VectorHit{
			ChunkID:    node.Key,
			DocumentID: m.documentID,
			ChunkNo:    m.chunkNo,
			Score:      score,
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// SearchDocument returns the document's own chunks with cosine similarity
// >= threshold, best first. The scan is restricted to the document's
// vectors before any similarity work happens, and for that small set it is
// exact rather than approximate.
func (ix *Index) SearchDocument(_ context.Context, documentID string, query []float32, threshold float64, limit int) ([]domain.VectorHit, error) {
	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(query), ix.dims)
	}
	if limit <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.withdrawn[documentID] {
		return nil, nil
	}

	var hits []domain.VectorHit
	for id, vec := range ix.byDoc[documentID] {
		score := cosineScore(query, vec)
		if score < threshold {
			continue
		}
		hits = append(hits, domain.VectorHit{
			ChunkID:    id,
			DocumentID: documentID,
			ChunkNo:    ix.meta[id].chunkNo,
			Score:      score,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkNo < hits[j].ChunkNo
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the graph.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.graph = hnsw.NewGraph[string]()
	ix.meta = make(map[string]chunkMeta)
	ix.byDoc = make(map[string]map[string][]float32)
	ix.withdrawn = make(map[string]bool)
	return nil
}

// cosineScore converts cosine distance to a similarity in [-1, 1], higher
// is better.
func cosineScore(a, b []float32) float64 {
	return 1 - float64(hnsw.CosineDistance(a, b))
}
