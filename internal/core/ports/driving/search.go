package driving

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// RetrievalService is the hybrid search surface exposed to downstream
// consumers. It fuses lexical and semantic results and degrades to a
// single leg, flagged on the response, when the other is unavailable.
type RetrievalService interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
