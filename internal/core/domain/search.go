package domain

// SearchMode selects the scope of a hybrid query.
type SearchMode string

const (
	// SearchModeCorpus ranks documents across the whole corpus
	// (literature discovery).
	SearchModeCorpus SearchMode = "corpus"

	// SearchModeDocument ranks passages within a single document
	// (document Q&A).
	SearchModeDocument SearchMode = "document"
)

// HitSource records which index (or both) produced a hit.
type HitSource string

const (
	// HitSourceLexical marks a hit found only by BM25 keyword ranking.
	HitSourceLexical HitSource = "lexical"

	// HitSourceSemantic marks a hit found only by vector similarity.
	HitSourceSemantic HitSource = "semantic"

	// HitSourceHybrid marks a hit found by both legs and fused.
	HitSourceHybrid HitSource = "hybrid"
)

// Weights balance the lexical and semantic legs of the fused score.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// SearchOptions configures a hybrid retrieval query.
type SearchOptions struct {
	// Mode scopes the query to the corpus or a single document.
	Mode SearchMode

	// DocumentID is required when Mode is SearchModeDocument.
	DocumentID string

	// Limit is the maximum number of hits returned.
	Limit int

	// Weights fuse the two legs. Zero values fall back to the
	// orchestrator's configured defaults.
	Weights Weights

	// Threshold is the minimum cosine similarity for the semantic leg.
	// Zero falls back to the configured default (caller policy, not a
	// property of the index).
	Threshold float64
}

// SearchHit is one transient result of a hybrid query. Never persisted.
type SearchHit struct {
	// DocumentID is the owning document.
	DocumentID string

	// ChunkNo is the best-matching chunk when the semantic leg
	// contributed, nil for lexical-only hits.
	ChunkNo *int

	// Score is the fused relevance score.
	Score float64

	// Source records which leg(s) produced the hit.
	Source HitSource

	// Snippet is the supporting passage text, populated in
	// document-scoped mode so the caller can display it directly.
	Snippet string
}

// SearchResponse wraps hits with degradation flags. When one retrieval leg
// is unavailable the orchestrator answers from the other and says so here
// instead of failing the whole query or swallowing the problem.
type SearchResponse struct {
	Hits []SearchHit

	// Degraded is true when a leg was skipped or failed.
	Degraded bool

	// DegradedReason explains the degradation, empty otherwise.
	DegradedReason string
}

// LexicalHit is a raw result from the lexical engine.
type LexicalHit struct {
	DocumentID string

	// Rank approximates BM25; higher is better.
	Rank float64
}

// VectorHit is a raw result from the vector index.
type VectorHit struct {
	// ChunkID is the matched chunk's identity key (Chunk.ID form).
	ChunkID string

	// DocumentID is the owning document.
	DocumentID string

	// ChunkNo is the chunk's position within the document.
	ChunkNo int

	// Score is cosine similarity, 1 - cosine distance.
	Score float64
}
