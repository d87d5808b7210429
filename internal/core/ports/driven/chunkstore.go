package driven

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// ChunkStore persists chunk spans and their embeddings. Rows hold offsets
// and fixed-size metadata only; document text lives solely in the document
// store, so storage grows with chunk count, never with text length.
type ChunkStore interface {
	// HasChunks reports whether any chunks exist for the document under
	// the given parameter set.
	HasChunks(ctx context.Context, documentID string, params domain.ChunkParams) (bool, error)

	// UpsertChunks atomically replaces-or-inserts the chunk set for
	// (documentID, params), keyed by chunk number. Higher-numbered
	// chunks left over from a previous, longer chunking are deleted in
	// the same transaction: re-chunking can shrink the count. Returns
	// the number of chunks written. No reader ever observes a partially
	// updated set.
	UpsertChunks(ctx context.Context, documentID string, params domain.ChunkParams, chunks []domain.Chunk) (int, error)

	// DeleteChunks removes all chunks for the document, restricted to
	// one parameter set when params is non-nil. Returns the number of
	// chunks deleted.
	DeleteChunks(ctx context.Context, documentID string, params *domain.ChunkParams) (int, error)

	// GetChunk retrieves one chunk by its identity key.
	GetChunk(ctx context.Context, documentID string, params domain.ChunkParams, chunkNo int) (*domain.Chunk, error)

	// ForEachChunk streams every stored chunk, used to rebuild the
	// vector index at startup. Iteration stops on the first error.
	ForEachChunk(ctx context.Context, fn func(domain.Chunk) error) error

	// ExtractText returns fullText[start:end] by delegating to the
	// document store. It returns domain.ErrStaleChunk when the offsets
	// no longer fit the current full text.
	ExtractText(ctx context.Context, documentID string, start, end int) (string, error)
}
