package mcp

import (
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers hybrid search queries.
	Retrieval driving.RetrievalService

	// Indexing schedules re-indexing and reports queue health.
	Indexing driving.IndexingService

	// Catalog serves document metadata and text for resources. Optional;
	// without it the document resources return not-found.
	Catalog driven.DocumentCatalog
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Indexing == nil {
		return ErrMissingIndexingService
	}
	return nil
}
