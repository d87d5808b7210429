package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

func testRetrievalParams() domain.ChunkParams {
	return domain.ChunkParams{ModelID: "mock-embed", ChunkSize: 100, ChunkOverlap: 20}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := NewRetrieval(&mockLexical{}, newMockVectorIndex(), newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.False(t, resp.Degraded)
}

func TestSearchDocumentModeRequiresID(t *testing.T) {
	svc := NewRetrieval(&mockLexical{}, newMockVectorIndex(), newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	_, err := svc.Search(context.Background(), "brca1", domain.SearchOptions{
		Mode: domain.SearchModeDocument,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchRejectsNegativeWeights(t *testing.T) {
	svc := NewRetrieval(&mockLexical{}, newMockVectorIndex(), newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	_, err := svc.Search(context.Background(), "brca1", domain.SearchOptions{
		Weights: domain.Weights{Lexical: -1, Semantic: 0.5},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchCorpusFusesBothLegs(t *testing.T) {
	lex := &mockLexical{hits: []domain.LexicalHit{
		{DocumentID: "docA", Rank: 5},
		{DocumentID: "docB", Rank: 2},
	}}
	vec := newMockVectorIndex()
	vec.corpusHits = []domain.VectorHit{
		{ChunkID: "docB/k/3", DocumentID: "docB", ChunkNo: 3, Score: 0.9},
		{ChunkID: "docC/k/1", DocumentID: "docC", ChunkNo: 1, Score: 0.8},
	}

	svc := NewRetrieval(lex, vec, newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "tumour suppressor", domain.SearchOptions{
		Weights: domain.Weights{Lexical: 0.5, Semantic: 0.5},
	})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)

	// docA: top lexical, no semantic. docB: bottom lexical, top semantic.
	// docC: bottom semantic, normalises to zero but is still returned.
	// The docA/docB tie breaks on semantic rank, so docB comes first.
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, "docB", resp.Hits[0].DocumentID)
	assert.Equal(t, domain.HitSourceHybrid, resp.Hits[0].Source)
	require.NotNil(t, resp.Hits[0].ChunkNo)
	assert.Equal(t, 3, *resp.Hits[0].ChunkNo)

	assert.Equal(t, "docA", resp.Hits[1].DocumentID)
	assert.Equal(t, domain.HitSourceLexical, resp.Hits[1].Source)
	assert.Nil(t, resp.Hits[1].ChunkNo)

	assert.InDelta(t, resp.Hits[0].Score, resp.Hits[1].Score, 1e-9)

	assert.Equal(t, "docC", resp.Hits[2].DocumentID)
	assert.Equal(t, domain.HitSourceSemantic, resp.Hits[2].Source)
	assert.Zero(t, resp.Hits[2].Score)
}

func TestSearchSemanticOnlyPreservesVectorOrder(t *testing.T) {
	lex := &mockLexical{hits: []domain.LexicalHit{{DocumentID: "noise", Rank: 99}}}
	vec := newMockVectorIndex()
	vec.corpusHits = []domain.VectorHit{
		{ChunkID: "d1/k/0", DocumentID: "d1", ChunkNo: 0, Score: 0.95},
		{ChunkID: "d2/k/4", DocumentID: "d2", ChunkNo: 4, Score: 0.90},
		{ChunkID: "d3/k/2", DocumentID: "d3", ChunkNo: 2, Score: 0.80},
	}

	svc := NewRetrieval(lex, vec, newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{
		Weights: domain.Weights{Lexical: 0, Semantic: 1},
	})
	require.NoError(t, err)

	// Zero-weight leg is skipped entirely.
	assert.Zero(t, lex.callCount())

	// All three documents come back in the raw vector order, including
	// the tail hit whose score normalises to zero.
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, "d1", resp.Hits[0].DocumentID)
	assert.Equal(t, "d2", resp.Hits[1].DocumentID)
	assert.Equal(t, "d3", resp.Hits[2].DocumentID)
	assert.Zero(t, resp.Hits[2].Score)
	for _, h := range resp.Hits {
		assert.Equal(t, domain.HitSourceSemantic, h.Source)
		assert.NotNil(t, h.ChunkNo)
	}
}

func TestSearchLexicalOnly(t *testing.T) {
	lex := &mockLexical{hits: []domain.LexicalHit{
		{DocumentID: "d1", Rank: 3},
		{DocumentID: "d2", Rank: 2},
		{DocumentID: "d3", Rank: 1},
	}}
	svc := NewRetrieval(lex, newMockVectorIndex(), newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "keyword", domain.SearchOptions{
		Weights: domain.Weights{Lexical: 1, Semantic: 0},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1, "limit must truncate")
	assert.Equal(t, "d1", resp.Hits[0].DocumentID)
	assert.Equal(t, domain.HitSourceLexical, resp.Hits[0].Source)
	assert.False(t, resp.Degraded)
}

func TestSearchDegradesWhenLexicalFails(t *testing.T) {
	lex := &mockLexical{err: errors.New("fts index corrupt")}
	vec := newMockVectorIndex()
	vec.corpusHits = []domain.VectorHit{
		{ChunkID: "d1/k/0", DocumentID: "d1", ChunkNo: 0, Score: 0.9},
	}

	svc := NewRetrieval(lex, vec, newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "lexical unavailable")
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, domain.HitSourceSemantic, resp.Hits[0].Source)
}

func TestSearchDegradesWhenEmbedderMissing(t *testing.T) {
	lex := &mockLexical{hits: []domain.LexicalHit{
		{DocumentID: "d1", Rank: 4},
		{DocumentID: "d2", Rank: 1},
	}}
	svc := NewRetrieval(lex, newMockVectorIndex(), nil,
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, domain.ErrEmbeddingUnavailable.Error())
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "d1", resp.Hits[0].DocumentID)
	assert.Equal(t, "d2", resp.Hits[1].DocumentID)
}

func TestSearchFailsWhenBothLegsFail(t *testing.T) {
	lex := &mockLexical{err: errors.New("fts down")}
	svc := NewRetrieval(lex, newMockVectorIndex(), nil,
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	_, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearchDocumentModeSnippets(t *testing.T) {
	params := testRetrievalParams()
	chunks := newMockChunkStore()
	_, err := chunks.UpsertChunks(context.Background(), "doc1", params, []domain.Chunk{
		{DocumentID: "doc1", Params: params, ChunkNo: 0, Start: 0, End: 80},
		{DocumentID: "doc1", Params: params, ChunkNo: 1, Start: 60, End: 140},
		{DocumentID: "doc1", Params: params, ChunkNo: 2, Start: 120, End: 200},
	})
	require.NoError(t, err)
	chunks.extract = func(documentID string, start, end int) (string, error) {
		if start == 120 {
			return "", domain.ErrStaleChunk
		}
		return fmt.Sprintf("passage %d:%d", start, end), nil
	}

	lex := &mockLexical{hits: []domain.LexicalHit{{DocumentID: "doc1", Rank: 7}}}
	vec := newMockVectorIndex()
	vec.docHits = []domain.VectorHit{
		{ChunkID: "doc1/k/0", DocumentID: "doc1", ChunkNo: 0, Score: 0.92},
		{ChunkID: "doc1/k/2", DocumentID: "doc1", ChunkNo: 2, Score: 0.85},
	}

	svc := NewRetrieval(lex, vec, newMockEmbedder(4), chunks, newMockDocStore(),
		RetrievalConfig{Params: params})

	resp, err := svc.Search(context.Background(), "methylation", domain.SearchOptions{
		Mode:       domain.SearchModeDocument,
		DocumentID: "doc1",
	})
	require.NoError(t, err)

	// Chunk 2 went stale and is excluded; chunk 0 survives with its
	// supporting passage.
	require.Len(t, resp.Hits, 1)
	require.NotNil(t, resp.Hits[0].ChunkNo)
	assert.Equal(t, 0, *resp.Hits[0].ChunkNo)
	assert.Equal(t, "passage 0:80", resp.Hits[0].Snippet)
	assert.Equal(t, domain.HitSourceHybrid, resp.Hits[0].Source)
}

func TestSearchDocumentModeLexicalFallback(t *testing.T) {
	lex := &mockLexical{hits: []domain.LexicalHit{
		{DocumentID: "doc1", Rank: 3},
		{DocumentID: "doc2", Rank: 1},
	}}
	vec := newMockVectorIndex() // no vectors for the document

	svc := NewRetrieval(lex, vec, newMockEmbedder(4),
		newMockChunkStore(), newMockDocStore(), RetrievalConfig{Params: testRetrievalParams()})

	resp, err := svc.Search(context.Background(), "keyword", domain.SearchOptions{
		Mode:       domain.SearchModeDocument,
		DocumentID: "doc1",
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "doc1", resp.Hits[0].DocumentID)
	assert.Nil(t, resp.Hits[0].ChunkNo)
	assert.Equal(t, domain.HitSourceLexical, resp.Hits[0].Source)
	assert.Empty(t, resp.Hits[0].Snippet)
}

func TestMinMaxNormalisation(t *testing.T) {
	assert.Nil(t, minMax(nil))
	assert.Equal(t, []float64{1}, minMax([]float64{0.42}), "single element normalises to 1")
	assert.Equal(t, []float64{1, 1, 1}, minMax([]float64{2, 2, 2}), "uniform scores normalise to 1")

	out := minMax([]float64{1, 3, 5})
	assert.InDelta(t, 0, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.InDelta(t, 1, out[2], 1e-9)
}
