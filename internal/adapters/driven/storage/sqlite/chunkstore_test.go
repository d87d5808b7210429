package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

func sqliteTestParams() domain.ChunkParams {
	return domain.ChunkParams{ModelID: "nomic-embed-text", ChunkSize: 100, ChunkOverlap: 20}
}

func testChunks(documentID string, params domain.ChunkParams, spans ...domain.Span) []domain.Chunk {
	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{
			DocumentID: documentID,
			Params:     params,
			ChunkNo:    i,
			Start:      s.Start,
			End:        s.End,
			Embedding:  []float32{float32(i), 0.5, -1},
		}
	}
	return chunks
}

func TestChunkStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	params := sqliteTestParams()
	chunks := newTestStore(t).ChunkStore()

	has, err := chunks.HasChunks(ctx, "d1", params)
	require.NoError(t, err)
	assert.False(t, has)

	n, err := chunks.UpsertChunks(ctx, "d1", params, testChunks("d1", params,
		domain.Span{Start: 0, End: 80}, domain.Span{Start: 60, End: 140}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err = chunks.HasChunks(ctx, "d1", params)
	require.NoError(t, err)
	assert.True(t, has)

	c, err := chunks.GetChunk(ctx, "d1", params, 1)
	require.NoError(t, err)
	assert.Equal(t, 60, c.Start)
	assert.Equal(t, 140, c.End)
	assert.Equal(t, []float32{1, 0.5, -1}, c.Embedding)

	_, err = chunks.GetChunk(ctx, "d1", params, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStoreUpsertDeletesOrphanedTail(t *testing.T) {
	ctx := context.Background()
	params := sqliteTestParams()
	chunks := newTestStore(t).ChunkStore()

	_, err := chunks.UpsertChunks(ctx, "d1", params, testChunks("d1", params,
		domain.Span{Start: 0, End: 80},
		domain.Span{Start: 60, End: 140},
		domain.Span{Start: 120, End: 200}))
	require.NoError(t, err)

	// Shorter re-chunk: chunk 2 must disappear in the same write.
	_, err = chunks.UpsertChunks(ctx, "d1", params, testChunks("d1", params,
		domain.Span{Start: 0, End: 95}))
	require.NoError(t, err)

	_, err = chunks.GetChunk(ctx, "d1", params, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count := 0
	require.NoError(t, chunks.ForEachChunk(ctx, func(domain.Chunk) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestChunkStoreParameterSetsCoexist(t *testing.T) {
	ctx := context.Background()
	chunks := newTestStore(t).ChunkStore()

	oldParams := domain.ChunkParams{ModelID: "all-minilm", ChunkSize: 100, ChunkOverlap: 20}
	newParams := domain.ChunkParams{ModelID: "nomic-embed-text", ChunkSize: 200, ChunkOverlap: 40}

	_, err := chunks.UpsertChunks(ctx, "d1", oldParams,
		testChunks("d1", oldParams, domain.Span{Start: 0, End: 80}))
	require.NoError(t, err)
	_, err = chunks.UpsertChunks(ctx, "d1", newParams,
		testChunks("d1", newParams, domain.Span{Start: 0, End: 180}))
	require.NoError(t, err)

	deleted, err := chunks.DeleteChunks(ctx, "d1", &oldParams)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	has, err := chunks.HasChunks(ctx, "d1", newParams)
	require.NoError(t, err)
	assert.True(t, has, "deleting one generation must not touch the other")

	deleted, err = chunks.DeleteChunks(ctx, "d1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestChunkStoreForEachChunkStreamsAll(t *testing.T) {
	ctx := context.Background()
	params := sqliteTestParams()
	chunks := newTestStore(t).ChunkStore()

	_, err := chunks.UpsertChunks(ctx, "d1", params, testChunks("d1", params,
		domain.Span{Start: 0, End: 80}, domain.Span{Start: 60, End: 140}))
	require.NoError(t, err)
	_, err = chunks.UpsertChunks(ctx, "d2", params, testChunks("d2", params,
		domain.Span{Start: 0, End: 70}))
	require.NoError(t, err)

	var seen []string
	require.NoError(t, chunks.ForEachChunk(ctx, func(c domain.Chunk) error {
		seen = append(seen, c.ID())
		assert.NotEmpty(t, c.Embedding)
		return nil
	}))
	assert.Len(t, seen, 3)
}

func TestChunkStoreExtractText(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	chunks := store.ChunkStore()

	require.NoError(t, store.DocumentCatalog().PutDocument(ctx, &domain.Document{
		ID:       "d1",
		FullText: "Methylation patterns were analysed across the cohort.",
	}))

	text, err := chunks.ExtractText(ctx, "d1", 0, 11)
	require.NoError(t, err)
	assert.Equal(t, "Methylation", text)

	// Document shrank since chunking: stale, not a bad substring.
	_, err = chunks.ExtractText(ctx, "d1", 0, 10_000)
	assert.ErrorIs(t, err, domain.ErrStaleChunk)

	_, err = chunks.ExtractText(ctx, "ghost", 0, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
