package domain

import "time"

// QueueState is the lifecycle state of an indexing queue entry.
type QueueState string

const (
	// QueueStateQueued means the entry is waiting for a worker.
	QueueStateQueued QueueState = "queued"

	// QueueStateLeased means exactly one worker holds the entry.
	QueueStateLeased QueueState = "leased"

	// QueueStateDead means the entry exhausted its retry budget and is
	// retained for operator inspection, excluded from leasing.
	QueueStateDead QueueState = "dead"
)

// Queue priorities. Higher values are leased sooner; ties are broken by
// earliest QueuedAt.
const (
	// PriorityBulk is the default priority for routine re-indexing.
	PriorityBulk = 0

	// PriorityInteractive lets a "process this document now" request
	// (document Q&A) jump ahead of bulk work.
	PriorityInteractive = 100
)

// Retry budgets. An entry whose attempt counter reaches its budget moves
// to the dead-letter state instead of being retried again.
const (
	// MaxAttempts is the budget for transient failures.
	MaxAttempts = 5

	// MaxPermanentAttempts is the short fuse for failures retrying
	// cannot fix, such as input the embedding model hard-rejects.
	MaxPermanentAttempts = 2
)

// QueueEntry is a unit of (re)chunking work for one document. A document
// has at most one live entry; re-enqueueing resets the attempt counter.
type QueueEntry struct {
	// DocumentID is the document needing (re)chunking. Unique per entry.
	DocumentID string

	// Priority orders leasing, higher first.
	Priority int

	// QueuedAt is when the entry was (last) enqueued.
	QueuedAt time.Time

	// State is the current lifecycle state.
	State QueueState

	// Attempts counts processing attempts that ended in failure.
	Attempts int

	// LastError is the most recent failure message, empty if none.
	LastError string

	// LastAttemptAt is when the most recent attempt failed. Zero if the
	// entry has never been attempted. Callers derive retry backoff from
	// this together with Attempts; the queue schedules no delay itself.
	LastAttemptAt time.Time

	// LeaseWorker identifies the worker holding the lease, if leased.
	LeaseWorker string

	// LeasedAt is when the current lease was taken, if leased.
	LeasedAt time.Time
}
