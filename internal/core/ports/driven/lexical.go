package driven

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// LexicalEngine provides BM25-style full-text ranking over document title
// and abstract. Malformed query syntax degrades to a plain bag-of-words
// interpretation instead of erroring; withdrawn documents are excluded;
// ties are broken by recency, newest first.
type LexicalEngine interface {
	// Search returns ranked documents for the query, higher rank first.
	Search(ctx context.Context, query string, limit int) ([]domain.LexicalHit, error)
}
