package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-bio/litindex/internal/adapters/driven/storage/memory"
	"github.com/arcadia-bio/litindex/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("without catalog returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{
			Retrieval: &mockRetrievalService{},
			Indexing:  &mockIndexingService{},
		})

		result, err := server.handleDocumentsResource(ctx, readRequest(uriScheme+"documents"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists catalog documents", func(t *testing.T) {
		catalog := memory.NewDocumentStore()
		require.NoError(t, catalog.PutDocument(ctx, &domain.Document{
			ID:    "pmid-100",
			Title: "BRCA1 variant effects",
		}))

		server := newTestServer(t, &Ports{
			Retrieval: &mockRetrievalService{},
			Indexing:  &mockIndexingService{},
			Catalog:   catalog,
		})

		result, err := server.handleDocumentsResource(ctx, readRequest(uriScheme+"documents"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "pmid-100")
		assert.Contains(t, result.Contents[0].Text, "BRCA1 variant effects")
	})
}

func TestDocumentTextResource(t *testing.T) {
	ctx := context.Background()
	catalog := memory.NewDocumentStore()
	require.NoError(t, catalog.PutDocument(ctx, &domain.Document{
		ID:       "pmid-100",
		Title:    "BRCA1 variant effects",
		FullText: "Full text of the article.",
	}))

	server := newTestServer(t, &Ports{
		Retrieval: &mockRetrievalService{},
		Indexing:  &mockIndexingService{},
		Catalog:   catalog,
	})

	t.Run("returns full text", func(t *testing.T) {
		result, err := server.handleDocumentTextResource(ctx, readRequest(uriScheme+"documents/pmid-100"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "Full text of the article.", result.Contents[0].Text)
	})

	t.Run("unknown document is an error", func(t *testing.T) {
		_, err := server.handleDocumentTextResource(ctx, readRequest(uriScheme+"documents/ghost"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed uri is not found", func(t *testing.T) {
		_, err := server.handleDocumentTextResource(ctx, readRequest("litindex://chunks/1"))
		assert.Error(t, err)
	})
}

func TestExtractDocumentID(t *testing.T) {
	assert.Equal(t, "pmid-100", extractDocumentID(uriScheme+"documents/pmid-100"))
	assert.Equal(t, "10.1000/xyz", extractDocumentID(uriScheme+"documents/10.1000/xyz"))
	assert.Equal(t, "", extractDocumentID("other://documents/pmid-100"))
}
