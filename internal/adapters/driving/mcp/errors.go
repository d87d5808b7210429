// Package mcp provides an MCP (Model Context Protocol) server adapter for
// the indexing engine. It lets AI assistants run hybrid searches over the
// indexed literature and inspect the indexing pipeline.
package mcp

import "errors"

// Required port errors, reported at construction time.
var (
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
	ErrMissingIndexingService  = errors.New("mcp: indexing service is required")
)
