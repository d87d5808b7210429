package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string  `json:"query" jsonschema:"the search query"`
	DocumentID string  `json:"document_id,omitempty" jsonschema:"restrict the search to passages of this document"`
	Limit      int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Lexical    float64 `json:"lexical_weight,omitempty" jsonschema:"weight of the keyword leg (default 0.5)"`
	Semantic   float64 `json:"semantic_weight,omitempty" jsonschema:"weight of the vector leg (default 0.5)"`
	Threshold  float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity for semantic matches"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
	Degraded       bool                 `json:"degraded,omitempty"`
	DegradedReason string               `json:"degraded_reason,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkNo    *int    `json:"chunk_no,omitempty"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	Snippet    string  `json:"snippet,omitempty"`
}

// ReindexInput is the input schema for the reindex_document tool.
type ReindexInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to re-chunk and re-embed"`
}

// ReindexOutput is the output schema for the reindex_document tool.
type ReindexOutput struct {
	DocumentID string `json:"document_id"`
	Queued     bool   `json:"queued"`
}

// QueueHealthInput is the (empty) input schema for the queue_health tool.
type QueueHealthInput struct{}

// QueueHealthOutput is the output schema for the queue_health tool.
type QueueHealthOutput struct {
	BacklogSize     int `json:"backlog_size"`
	DeadLetterCount int `json:"dead_letter_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword + semantic search over the indexed literature",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex_document",
		Description: "Schedule a document for re-chunking and re-embedding at interactive priority",
	}, s.handleReindex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "queue_health",
		Description: "Report indexing backlog and dead-letter counts",
	}, s.handleQueueHealth)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Limit:     input.Limit,
		Weights:   domain.Weights{Lexical: input.Lexical, Semantic: input.Semantic},
		Threshold: input.Threshold,
	}
	if input.DocumentID != "" {
		opts.Mode = domain.SearchModeDocument
		opts.DocumentID = input.DocumentID
	}

	resp, err := s.ports.Retrieval.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:        make([]SearchResultOutput, len(resp.Hits)),
		Count:          len(resp.Hits),
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}

	for i, hit := range resp.Hits {
		output.Results[i] = SearchResultOutput{
			DocumentID: hit.DocumentID,
			ChunkNo:    hit.ChunkNo,
			Score:      hit.Score,
			Source:     string(hit.Source),
			Snippet:    hit.Snippet,
		}
	}

	return nil, output, nil
}

// handleReindex handles the reindex_document tool invocation.
func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReindexInput,
) (*mcp.CallToolResult, ReindexOutput, error) {
	if input.DocumentID == "" {
		return nil, ReindexOutput{}, fmt.Errorf("document_id is required")
	}

	if err := s.ports.Indexing.EnqueueNow(ctx, input.DocumentID); err != nil {
		return nil, ReindexOutput{}, err
	}

	return nil, ReindexOutput{DocumentID: input.DocumentID, Queued: true}, nil
}

// handleQueueHealth handles the queue_health tool invocation.
func (s *Server) handleQueueHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ QueueHealthInput,
) (*mcp.CallToolResult, QueueHealthOutput, error) {
	health, err := s.ports.Indexing.QueueHealth(ctx)
	if err != nil {
		return nil, QueueHealthOutput{}, err
	}

	return nil, QueueHealthOutput{
		BacklogSize:     health.BacklogSize,
		DeadLetterCount: health.DeadLetterCount,
	}, nil
}
