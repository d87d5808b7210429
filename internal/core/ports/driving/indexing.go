package driving

import "context"

// QueueHealth is the queue introspection snapshot for operational
// dashboards.
type QueueHealth struct {
	// BacklogSize counts queued and leased entries.
	BacklogSize int

	// DeadLetterCount counts entries that exhausted their retry budget.
	DeadLetterCount int
}

// IndexingService drives the asynchronous indexing pipeline.
type IndexingService interface {
	// Start launches the worker pool. It returns immediately; workers
	// run until Stop.
	Start(ctx context.Context) error

	// Stop asks workers to stop taking new leases and waits for any
	// leased item to finish.
	Stop() error

	// Enqueue schedules a document for (re)chunking at the given
	// priority. Documents without full text are skipped.
	Enqueue(ctx context.Context, documentID string, priority int) error

	// EnqueueNow schedules a document at interactive priority, jumping
	// ahead of bulk re-indexing.
	EnqueueNow(ctx context.Context, documentID string) error

	// QueueHealth reports backlog and dead-letter counts.
	QueueHealth(ctx context.Context) (*QueueHealth, error)

	// RebuildVectorIndex repopulates the in-memory vector index from
	// the chunk store, done once at startup.
	RebuildVectorIndex(ctx context.Context) error
}
