package driven

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// VectorIndex provides approximate nearest-neighbour search over chunk
// embeddings. The contract is approximate recall, not exact top-k.
//
// Document-scoped search must restrict to the document's own vectors
// before or during the similarity computation. Post-filtering a
// corpus-wide result set down to one document is correctness-preserving
// but destroys performance at corpus scale and is not an acceptable
// implementation.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for the chunk's identity
	// key.
	Upsert(ctx context.Context, chunk domain.Chunk) error

	// Delete removes one chunk's vector.
	Delete(ctx context.Context, chunkID string) error

	// DeleteDocument removes every vector belonging to the document.
	DeleteDocument(ctx context.Context, documentID string) error

	// SetWithdrawn marks a document (in)visible to corpus search.
	SetWithdrawn(ctx context.Context, documentID string, withdrawn bool) error

	// SearchCorpus returns chunks across the whole corpus with cosine
	// similarity >= threshold, best first. Chunks of withdrawn
	// documents are excluded.
	SearchCorpus(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.VectorHit, error)

	// SearchDocument returns the document's own chunks with cosine
	// similarity >= threshold, best first.
	SearchDocument(ctx context.Context, documentID string, query []float32, threshold float64, limit int) ([]domain.VectorHit, error)

	// Close releases resources.
	Close() error
}
