package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/core/ports/driving"
	"github.com/arcadia-bio/litindex/internal/logger"
)

// Ensure Retrieval implements the interface.
var _ driving.RetrievalService = (*Retrieval)(nil)

// Default retrieval configuration.
const (
	DefaultLimit = 10

	// DefaultThreshold is the default minimum cosine similarity.
	// A caller-level policy, not a property of the vector index.
	DefaultThreshold = 0.7

	// candidateMultiplier caps each leg at this multiple of the
	// requested limit so the fusion step has enough candidates.
	candidateMultiplier = 5
)

// RetrievalConfig tunes the hybrid orchestrator.
type RetrievalConfig struct {
	// Params is the chunking strategy whose chunks back snippet
	// extraction in document-scoped mode.
	Params domain.ChunkParams

	// DefaultWeights apply when a query specifies none.
	DefaultWeights domain.Weights

	// DefaultThreshold applies when a query specifies none.
	DefaultThreshold float64
}

func (c RetrievalConfig) withDefaults() RetrievalConfig {
	if c.DefaultWeights.Lexical == 0 && c.DefaultWeights.Semantic == 0 {
		c.DefaultWeights = domain.Weights{Lexical: 0.5, Semantic: 0.5}
	}
	if c.DefaultThreshold <= 0 {
		c.DefaultThreshold = DefaultThreshold
	}
	return c
}

// Retrieval fuses lexical and semantic results into a single ranked list.
// It only reads; all index writes go through the Indexer.
type Retrieval struct {
	lexical  driven.LexicalEngine
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	chunks   driven.ChunkStore
	docs     driven.DocumentStore
	cfg      RetrievalConfig
}

// NewRetrieval creates the hybrid retrieval service. The embedder may be
// nil, in which case every query degrades to lexical-only.
func NewRetrieval(
	lexical driven.LexicalEngine,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunks driven.ChunkStore,
	docs driven.DocumentStore,
	cfg RetrievalConfig,
) *Retrieval {
	return &Retrieval{
		lexical:  lexical,
		vectors:  vectors,
		embedder: embedder,
		chunks:   chunks,
		docs:     docs,
		cfg:      cfg.withDefaults(),
	}
}

// Search runs a hybrid query in corpus or document-scoped mode.
func (r *Retrieval) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q mode=%s", query, opts.Mode)

	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.SearchResponse{Hits: []domain.SearchHit{}}, nil
	}

	if opts.Mode == "" {
		opts.Mode = domain.SearchModeCorpus
	}
	if opts.Mode == domain.SearchModeDocument && opts.DocumentID == "" {
		return nil, fmt.Errorf("%w: document-scoped search requires a document id", domain.ErrInvalidInput)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	weights := opts.Weights
	if weights.Lexical == 0 && weights.Semantic == 0 {
		weights = r.cfg.DefaultWeights
	}
	if weights.Lexical < 0 || weights.Semantic < 0 {
		return nil, fmt.Errorf("%w: negative fusion weights", domain.ErrInvalidInput)
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = r.cfg.DefaultThreshold
	}

	internalLimit := opts.Limit * candidateMultiplier
	logger.Debug("Limit: %d, internal limit: %d, weights: %.2f/%.2f",
		opts.Limit, internalLimit, weights.Lexical, weights.Semantic)

	// Run both legs concurrently. A leg with zero weight contributes
	// nothing and is skipped outright.
	var (
		lexHits []domain.LexicalHit
		semHits []domain.VectorHit
		lexErr  error
		semErr  error
		wg      sync.WaitGroup
	)

	if weights.Lexical > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexHits, lexErr = r.lexicalLeg(ctx, query, internalLimit)
		}()
	}
	if weights.Semantic > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semHits, semErr = r.semanticLeg(ctx, query, opts, threshold, internalLimit)
		}()
	}
	wg.Wait()

	resp := &domain.SearchResponse{}

	switch {
	case weights.Lexical > 0 && weights.Semantic > 0 && lexErr != nil && semErr != nil:
		return nil, fmt.Errorf("search: lexical=%w, semantic=%w", lexErr, semErr)
	case lexErr != nil:
		logger.Warn("Lexical leg failed, degrading to semantic-only: %v", lexErr)
		resp.Degraded = true
		resp.DegradedReason = fmt.Sprintf("lexical unavailable: %v", lexErr)
		lexHits = nil
	case semErr != nil:
		logger.Warn("Semantic leg failed, degrading to lexical-only: %v", semErr)
		resp.Degraded = true
		resp.DegradedReason = fmt.Sprintf("semantic unavailable: %v", semErr)
		semHits = nil
	}

	if opts.Mode == domain.SearchModeDocument {
		resp.Hits = r.fuseDocument(ctx, opts.DocumentID, lexHits, semHits, weights, opts.Limit)
	} else {
		resp.Hits = r.fuseCorpus(lexHits, semHits, weights, opts.Limit)
	}

	logger.Info("Search done: %d hits, degraded=%t", len(resp.Hits), resp.Degraded)
	return resp, nil
}

// lexicalLeg runs the BM25 keyword query.
func (r *Retrieval) lexicalLeg(ctx context.Context, query string, limit int) ([]domain.LexicalHit, error) {
	if r.lexical == nil {
		return nil, domain.ErrSearchUnavailable
	}
	hits, err := r.lexical.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	logger.Debug("Lexical leg: %d hits", len(hits))
	return hits, nil
}

// semanticLeg embeds the query and runs the vector search, corpus-wide or
// scoped to one document.
func (r *Retrieval) semanticLeg(
	ctx context.Context, query string, opts domain.SearchOptions, threshold float64, limit int,
) ([]domain.VectorHit, error) {
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if r.vectors == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var hits []domain.VectorHit
	if opts.Mode == domain.SearchModeDocument {
		hits, err = r.vectors.SearchDocument(ctx, opts.DocumentID, vec, threshold, limit)
	} else {
		hits, err = r.vectors.SearchCorpus(ctx, vec, threshold, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Semantic leg: %d hits", len(hits))
	return hits, nil
}

// fuseCorpus merges the two legs into document-level hits:
// fused = wl*normLex + ws*max(normSem over the document's chunks).
// Normalisation is min-max within each result set; documents present in
// only one source score zero from the other. Every candidate a
// participating leg returned stays in the list: the lowest-scoring
// document of a leg normalises to zero, not to exclusion. Ties break on
// the semantic leg's original rank, which keeps the order deterministic
// and makes a semantic-only query reproduce the raw vector order exactly.
func (r *Retrieval) fuseCorpus(
	lexHits []domain.LexicalHit, semHits []domain.VectorHit, weights domain.Weights, limit int,
) []domain.SearchHit {
	normLex := normalizeLexical(lexHits)
	normSem := normalizeVector(semHits)

	type fusedDoc struct {
		docID     string
		lex       float64
		sem       float64
		bestChunk *int
		semRank   int
		inLex     bool
		inSem     bool
	}
	byDoc := make(map[string]*fusedDoc)
	order := make([]string, 0, len(lexHits)+len(semHits))

	get := func(docID string) *fusedDoc {
		f, ok := byDoc[docID]
		if !ok {
			f = &fusedDoc{docID: docID, semRank: len(semHits)}
			byDoc[docID] = f
			order = append(order, docID)
		}
		return f
	}

	for i, h := range semHits {
		f := get(h.DocumentID)
		if !f.inSem || normSem[i] > f.sem {
			f.sem = normSem[i]
			chunkNo := h.ChunkNo
			f.bestChunk = &chunkNo
		}
		if !f.inSem {
			f.semRank = i
			f.inSem = true
		}
	}
	for i, h := range lexHits {
		f := get(h.DocumentID)
		f.lex = normLex[i]
		f.inLex = true
	}

	hits := make([]domain.SearchHit, 0, len(byDoc))
	for _, docID := range order {
		f := byDoc[docID]
		hits = append(hits, domain.SearchHit{
			DocumentID: f.docID,
			ChunkNo:    f.bestChunk,
			Score:      weights.Lexical*f.lex + weights.Semantic*f.sem,
			Source:     hitSource(f.inLex && weights.Lexical > 0, f.inSem && weights.Semantic > 0),
		})
	}

	rankOf := func(h domain.SearchHit) int { return byDoc[h.DocumentID].semRank }
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return rankOf(hits[i]) < rankOf(hits[j])
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// fuseDocument produces per-chunk hits for document Q&A. Each semantic
// hit keeps its chunk number and a supporting snippet; the document's
// normalised lexical rank contributes a constant lexical term. Chunks
// whose offsets have gone stale are excluded rather than returned
// corrupted.
func (r *Retrieval) fuseDocument(
	ctx context.Context,
	documentID string,
	lexHits []domain.LexicalHit,
	semHits []domain.VectorHit,
	weights domain.Weights,
	limit int,
) []domain.SearchHit {
	normLex := normalizeLexical(lexHits)
	docLex := 0.0
	inLex := false
	for i, h := range lexHits {
		if h.DocumentID == documentID {
			docLex = normLex[i]
			inLex = true
			break
		}
	}

	normSem := normalizeVector(semHits)

	hits := make([]domain.SearchHit, 0, len(semHits)+1)
	for i, h := range semHits {
		score := weights.Lexical*docLex + weights.Semantic*normSem[i]
		snippet, err := r.snippetFor(ctx, documentID, h.ChunkNo)
		if err != nil {
			if errors.Is(err, domain.ErrStaleChunk) {
				logger.Warn("Excluding stale chunk %d of %s", h.ChunkNo, documentID)
				continue
			}
			logger.Debug("Snippet for chunk %d of %s unavailable: %v", h.ChunkNo, documentID, err)
		}
		chunkNo := h.ChunkNo
		hits = append(hits, domain.SearchHit{
			DocumentID: documentID,
			ChunkNo:    &chunkNo,
			Score:      score,
			Source:     hitSource(inLex && weights.Lexical > 0, true),
			Snippet:    snippet,
		})
	}

	// A lexical-only match still surfaces the document, without a
	// supporting passage.
	if len(hits) == 0 && inLex && weights.Lexical > 0 {
		hits = append(hits, domain.SearchHit{
			DocumentID: documentID,
			Score:      weights.Lexical * docLex,
			Source:     domain.HitSourceLexical,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// snippetFor extracts the chunk's text through the chunk store, which
// validates the offsets against the current full text.
func (r *Retrieval) snippetFor(ctx context.Context, documentID string, chunkNo int) (string, error) {
	c, err := r.chunks.GetChunk(ctx, documentID, r.cfg.Params, chunkNo)
	if err != nil {
		return "", err
	}
	return r.chunks.ExtractText(ctx, documentID, c.Start, c.End)
}

// hitSource maps leg participation to a source label.
func hitSource(lexical, semantic bool) domain.HitSource {
	switch {
	case lexical && semantic:
		return domain.HitSourceHybrid
	case semantic:
		return domain.HitSourceSemantic
	default:
		return domain.HitSourceLexical
	}
}

// normalizeLexical min-max normalises lexical ranks to [0,1] within the
// result set. A single hit normalises to 1.
func normalizeLexical(hits []domain.LexicalHit) []float64 {
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Rank
	}
	return minMax(scores)
}

// normalizeVector min-max normalises similarity scores to [0,1] within
// the result set.
func normalizeVector(hits []domain.VectorHit) []float64 {
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	return minMax(scores)
}

func minMax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
