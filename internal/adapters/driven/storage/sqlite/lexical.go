package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/logger"
)

// lexicalEngine implements driven.LexicalEngine on the documents_fts
// virtual table. Ranking is FTS5's built-in BM25 with a recency tiebreak;
// withdrawn documents are filtered out at query time.
type lexicalEngine struct {
	store *Store
}

var _ driven.LexicalEngine = (*lexicalEngine)(nil)

// Search returns ranked documents for the query, higher rank first. Query
// syntax FTS5 rejects is retried as a quoted bag of words instead of
// erroring, so user input like "BRCA1 AND (" still returns results.
func (e *lexicalEngine) Search(ctx context.Context, query string, limit int) ([]domain.LexicalHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	hits, err := e.search(ctx, query, limit)
	if err == nil {
		return hits, nil
	}

	fallback := bagOfWords(query)
	if fallback == "" || fallback == query {
		return nil, err
	}
	logger.Debug("FTS query %q rejected (%v), retrying as bag of words", query, err)
	return e.search(ctx, fallback, limit)
}

func (e *lexicalEngine) search(ctx context.Context, match string, limit int) ([]domain.LexicalHit, error) {
	rows, err := e.store.db.QueryContext(ctx, `
		SELECT f.document_id, bm25(documents_fts) AS score
		FROM documents_fts f
		JOIN documents d ON d.id = f.document_id
		WHERE documents_fts MATCH ? AND d.withdrawn = 0
		ORDER BY score ASC, d.updated_at DESC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fts: %w", err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.LexicalHit
		var score sql.NullFloat64
		if err := rows.Scan(&hit.DocumentID, &score); err != nil {
			return nil, fmt.Errorf("scanning fts hit: %w", err)
		}
		// bm25() reports lower-is-better; negate so callers see
		// higher-is-better.
		hit.Rank = -score.Float64
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fts hits: %w", err)
	}
	return hits, nil
}

// bagOfWords rewrites a query as OR-joined quoted terms, discarding any
// operator syntax.
func bagOfWords(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"()*^:`)
		if f == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}
