package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arcadia-bio/litindex/internal/chunker"
	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/core/ports/driving"
	"github.com/arcadia-bio/litindex/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexingService = (*Indexer)(nil)

// Default indexer configuration.
const (
	DefaultWorkers      = 4
	DefaultPollInterval = 500 * time.Millisecond
	DefaultBackoffBase  = 30 * time.Second
	DefaultBackoffCap   = 15 * time.Minute
)

// IndexerConfig tunes the worker pool.
type IndexerConfig struct {
	// Workers is the pool size.
	Workers int

	// Params is the active chunking strategy.
	Params domain.ChunkParams

	// PollInterval is how long an idle worker waits before polling the
	// queue again.
	PollInterval time.Duration

	// BackoffBase and BackoffCap shape the exponential retry delay
	// computed from a failed entry's attempt count: base * 2^(n-1),
	// capped.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	return c
}

// Indexer runs the asynchronous indexing pipeline: a pool of independent
// workers leasing documents from the queue, chunking and embedding them,
// and writing the results to the chunk store and vector index. Workers
// share no mutable state beyond the queue and the stores, which provide
// their own atomicity.
type Indexer struct {
	queue    driven.IndexQueue
	docs     driven.DocumentStore
	chunks   driven.ChunkStore
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	cfg      IndexerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewIndexer creates the indexing service. The embedder and vector index
// are required: this service is the only writer of chunk rows and vectors.
func NewIndexer(
	queue driven.IndexQueue,
	docs driven.DocumentStore,
	chunks driven.ChunkStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	cfg IndexerConfig,
) *Indexer {
	return &Indexer{
		queue:    queue,
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg.withDefaults(),
	}
}

// Start launches the worker pool. Chunk parameters are validated here,
// once, at the caller boundary; they are never silently clamped.
func (ix *Indexer) Start(ctx context.Context) error {
	if err := ix.cfg.Params.Validate(); err != nil {
		return fmt.Errorf("chunk params: %w", err)
	}

	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		return nil
	}
	ix.running = true
	ix.stopCh = make(chan struct{})
	ix.mu.Unlock()

	logger.Info("Starting %d indexing workers", ix.cfg.Workers)
	for i := 0; i < ix.cfg.Workers; i++ {
		workerID := uuid.New().String()
		ix.wg.Add(1)
		go ix.workerLoop(ctx, workerID)
	}
	return nil
}

// Stop asks workers to stop taking new leases and waits for leased items
// to finish.
func (ix *Indexer) Stop() error {
	ix.mu.Lock()
	if !ix.running {
		ix.mu.Unlock()
		return nil
	}
	ix.running = false
	close(ix.stopCh)
	ix.mu.Unlock()

	ix.wg.Wait()
	return nil
}

// Enqueue schedules a document at the given priority. Documents without
// full text are rejected synchronously and never queued.
func (ix *Indexer) Enqueue(ctx context.Context, documentID string, priority int) error {
	text, err := ix.docs.GetFullText(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get full text: %w", err)
	}
	if text == "" {
		return fmt.Errorf("%w: %s", domain.ErrEmptyDocument, documentID)
	}
	if err := ix.queue.Enqueue(ctx, documentID, priority); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	logger.Debug("Enqueued %s at priority %d", documentID, priority)
	return nil
}

// EnqueueNow schedules a document at interactive priority, jumping ahead
// of bulk re-indexing.
func (ix *Indexer) EnqueueNow(ctx context.Context, documentID string) error {
	return ix.Enqueue(ctx, documentID, domain.PriorityInteractive)
}

// QueueHealth reports backlog and dead-letter counts.
func (ix *Indexer) QueueHealth(ctx context.Context) (*driving.QueueHealth, error) {
	backlog, err := ix.queue.BacklogSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("backlog size: %w", err)
	}
	dead, err := ix.queue.DeadLetterCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("dead letter count: %w", err)
	}
	return &driving.QueueHealth{BacklogSize: backlog, DeadLetterCount: dead}, nil
}

// RebuildVectorIndex repopulates the vector index from the chunk store.
// The store is the durable source of truth; the index is in-memory and
// rebuilt once at startup. Only the active parameter set is loaded: other
// generations stay in the store, so a model or strategy switch never mixes
// embeddings of different provenance (or dimensions) in one index.
func (ix *Indexer) RebuildVectorIndex(ctx context.Context) error {
	count := 0
	withdrawn := make(map[string]bool)

	err := ix.chunks.ForEachChunk(ctx, func(c domain.Chunk) error {
		if c.Params != ix.cfg.Params {
			return nil
		}
		if len(c.Embedding) == 0 {
			return nil
		}
		if err := ix.vectors.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID(), err)
		}
		if _, seen := withdrawn[c.DocumentID]; !seen {
			w, err := ix.docs.IsWithdrawn(ctx, c.DocumentID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("withdrawn check %s: %w", c.DocumentID, err)
			}
			withdrawn[c.DocumentID] = w
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	for docID, w := range withdrawn {
		if w {
			if err := ix.vectors.SetWithdrawn(ctx, docID, true); err != nil {
				return fmt.Errorf("mark withdrawn %s: %w", docID, err)
			}
		}
	}

	logger.Info("Vector index rebuilt: %d vectors, %d documents", count, len(withdrawn))
	return nil
}

// backoffFor returns the retry delay after n failed attempts.
func (ix *Indexer) backoffFor(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	d := ix.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= ix.cfg.BackoffCap {
			return ix.cfg.BackoffCap
		}
	}
	if d > ix.cfg.BackoffCap {
		d = ix.cfg.BackoffCap
	}
	return d
}

// workerLoop leases and processes queue entries until shutdown. A failure
// on one document never crashes the pool; it is reported to the queue and
// the loop moves on.
func (ix *Indexer) workerLoop(ctx context.Context, workerID string) {
	defer ix.wg.Done()

	for {
		select {
		case <-ix.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		entry, err := ix.queue.LeaseNext(ctx, workerID)
		if err != nil {
			logger.Warn("Worker %s: lease failed: %v", workerID, err)
			ix.idle(ctx)
			continue
		}
		if entry == nil {
			ix.idle(ctx)
			continue
		}

		// The queue stores no retry schedule; the delay is computed
		// here from the entry's attempt history. Entries leased too
		// early go back untouched.
		if entry.Attempts > 0 {
			due := entry.LastAttemptAt.Add(ix.backoffFor(entry.Attempts))
			if time.Now().Before(due) {
				if err := ix.queue.Release(ctx, entry.DocumentID); err != nil {
					logger.Warn("Worker %s: release %s failed: %v", workerID, entry.DocumentID, err)
				}
				ix.idle(ctx)
				continue
			}
		}

		ix.processDocument(ctx, workerID, entry)
	}
}

// idle waits one poll interval or until shutdown.
func (ix *Indexer) idle(ctx context.Context) {
	select {
	case <-ix.stopCh:
	case <-ctx.Done():
	case <-time.After(ix.cfg.PollInterval):
	}
}

// processDocument runs one document through chunk → embed → store →
// index. Any embedding failure aborts the whole document: partial
// embedding sets are never committed.
func (ix *Indexer) processDocument(ctx context.Context, workerID string, entry *domain.QueueEntry) {
	docID := entry.DocumentID
	logger.Debug("Worker %s: processing %s (attempt %d)", workerID, docID, entry.Attempts+1)

	if err := ix.processOne(ctx, docID); err != nil {
		permanent := domain.IsPermanent(err)
		logger.Warn("Worker %s: %s failed (permanent=%t): %v", workerID, docID, permanent, err)
		if qerr := ix.queue.ReportFailure(ctx, docID, err.Error(), permanent); qerr != nil {
			logger.Warn("Worker %s: report failure for %s: %v", workerID, docID, qerr)
		}
		return
	}

	if err := ix.queue.ReportSuccess(ctx, docID); err != nil {
		logger.Warn("Worker %s: report success for %s: %v", workerID, docID, err)
		return
	}
	logger.Debug("Worker %s: %s done", workerID, docID)
}

// processOne performs the actual pipeline for one leased document.
func (ix *Indexer) processOne(ctx context.Context, docID string) error {
	withdrawn, err := ix.docs.IsWithdrawn(ctx, docID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Transient(fmt.Errorf("withdrawn check: %w", err))
	}
	if errors.Is(err, domain.ErrNotFound) || withdrawn {
		// Deleted or withdrawn while queued: cascade the chunks away.
		return ix.removeDocument(ctx, docID, withdrawn)
	}

	text, err := ix.docs.GetFullText(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ix.removeDocument(ctx, docID, false)
		}
		return domain.Transient(fmt.Errorf("get full text: %w", err))
	}
	if text == "" {
		// Text emptied after enqueue; existing chunks are stale.
		return ix.removeDocument(ctx, docID, false)
	}

	spans, err := chunker.Spans(text, ix.cfg.Params)
	if err != nil {
		return domain.Permanent(fmt.Errorf("chunk: %w", err))
	}

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = text[s.Start:s.End]
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		// Classification travels with the error; unclassified
		// embedding failures retry.
		if domain.IsPermanent(err) {
			return fmt.Errorf("embed: %w", err)
		}
		return domain.Transient(fmt.Errorf("embed: %w", err))
	}
	if len(embeddings) != len(spans) {
		return domain.Transient(fmt.Errorf("embed: got %d embeddings for %d chunks", len(embeddings), len(spans)))
	}

	docChunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		docChunks[i] = domain.Chunk{
			DocumentID: docID,
			Params:     ix.cfg.Params,
			ChunkNo:    i,
			Start:      s.Start,
			End:        s.End,
			Embedding:  embeddings[i],
		}
	}

	if _, err := ix.chunks.UpsertChunks(ctx, docID, ix.cfg.Params, docChunks); err != nil {
		return domain.Transient(fmt.Errorf("upsert chunks: %w", err))
	}

	// Vector index sync follows the store write; a failure here is
	// reported and retried through the queue, so the index never lags
	// the chunk table by more than one processing cycle.
	if err := ix.vectors.DeleteDocument(ctx, docID); err != nil {
		return domain.Transient(fmt.Errorf("clear vectors: %w", err))
	}
	for _, c := range docChunks {
		if err := ix.vectors.Upsert(ctx, c); err != nil {
			return domain.Transient(fmt.Errorf("index vector %s: %w", c.ID(), err))
		}
	}
	if err := ix.vectors.SetWithdrawn(ctx, docID, false); err != nil {
		return domain.Transient(fmt.Errorf("mark visible: %w", err))
	}

	return nil
}

// removeDocument cascades chunk and vector deletion for a document that
// is gone, empty or withdrawn, then lets the entry complete.
func (ix *Indexer) removeDocument(ctx context.Context, docID string, withdrawn bool) error {
	if _, err := ix.chunks.DeleteChunks(ctx, docID, nil); err != nil {
		return domain.Transient(fmt.Errorf("delete chunks: %w", err))
	}
	if err := ix.vectors.DeleteDocument(ctx, docID); err != nil {
		return domain.Transient(fmt.Errorf("delete vectors: %w", err))
	}
	if withdrawn {
		if err := ix.vectors.SetWithdrawn(ctx, docID, true); err != nil {
			return domain.Transient(fmt.Errorf("mark withdrawn: %w", err))
		}
	}
	logger.Debug("Removed chunks for %s (withdrawn=%t)", docID, withdrawn)
	return nil
}
