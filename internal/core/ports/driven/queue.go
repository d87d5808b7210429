package driven

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// IndexQueue is the durable backlog of "document needs (re)chunking" work.
// It is the only coordination point between workers: lease exclusivity is
// the sole synchronization primitive preventing double-processing.
type IndexQueue interface {
	// Enqueue upserts the single live entry for the document, resetting
	// attempts and last error and refreshing the queued-at time. A
	// leased entry stays leased; its attempt counter still resets so
	// fresh text gets a fresh retry budget.
	Enqueue(ctx context.Context, documentID string, priority int) error

	// LeaseNext atomically claims the highest-priority, oldest-queued
	// entry for the worker. It returns (nil, nil) when nothing is
	// leasable. Under N concurrent workers no entry is ever claimed
	// twice: the claim is a single atomic operation, not a
	// read-then-write race.
	LeaseNext(ctx context.Context, workerID string) (*domain.QueueEntry, error)

	// Release returns a leased entry to the queue without consuming an
	// attempt, used when the caller's backoff says it is too early.
	Release(ctx context.Context, documentID string) error

	// ReportSuccess removes the entry after successful processing.
	ReportSuccess(ctx context.Context, documentID string) error

	// ReportFailure increments the attempt counter and records the
	// error and timestamp. At the max-attempts threshold the entry
	// transitions to dead: retained for operators, excluded from
	// leasing. Permanent failures use a shorter threshold.
	ReportFailure(ctx context.Context, documentID string, errMsg string, permanent bool) error

	// BacklogSize counts queued and leased entries.
	BacklogSize(ctx context.Context) (int, error)

	// DeadLetterCount counts entries that exhausted their retry budget.
	DeadLetterCount(ctx context.Context) (int, error)

	// ListDead returns dead entries for operator inspection.
	ListDead(ctx context.Context) ([]domain.QueueEntry, error)
}
