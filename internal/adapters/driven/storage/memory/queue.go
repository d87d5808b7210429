package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// Ensure IndexQueue implements the interface.
var _ driven.IndexQueue = (*IndexQueue)(nil)

// IndexQueue is an in-memory implementation of driven.IndexQueue. A single
// mutex makes every operation atomic, which is what gives LeaseNext its
// claim-exactly-once guarantee under concurrent workers.
type IndexQueue struct {
	mu      sync.Mutex
	entries map[string]*domain.QueueEntry
}

// NewIndexQueue creates a new in-memory indexing queue.
func NewIndexQueue() *IndexQueue {
	return &IndexQueue{entries: make(map[string]*domain.QueueEntry)}
}

// Enqueue upserts the single live entry for the document. Attempts and
// last error reset so fresh text gets a fresh retry budget; a leased entry
// keeps its lease.
func (q *IndexQueue) Enqueue(_ context.Context, documentID string, priority int) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	if e, ok := q.entries[documentID]; ok {
		e.Priority = priority
		e.QueuedAt = now
		e.Attempts = 0
		e.LastError = ""
		e.LastAttemptAt = time.Time{}
		if e.State == domain.QueueStateDead {
			e.State = domain.QueueStateQueued
		}
		return nil
	}

	q.entries[documentID] = &domain.QueueEntry{
		DocumentID: documentID,
		Priority:   priority,
		QueuedAt:   now,
		State:      domain.QueueStateQueued,
	}
	return nil
}

// LeaseNext claims the highest-priority, oldest-queued entry.
func (q *IndexQueue) LeaseNext(_ context.Context, workerID string) (*domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *domain.QueueEntry
	for _, e := range q.entries {
		if e.State != domain.QueueStateQueued {
			continue
		}
		if best == nil ||
			e.Priority > best.Priority ||
			(e.Priority == best.Priority && e.QueuedAt.Before(best.QueuedAt)) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}

	best.State = domain.QueueStateLeased
	best.LeaseWorker = workerID
	best.LeasedAt = time.Now().UTC()

	out := *best
	return &out, nil
}

// Release returns a leased entry to the queue without consuming an
// attempt.
func (q *IndexQueue) Release(_ context.Context, documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[documentID]
	if !ok || e.State != domain.QueueStateLeased {
		return domain.ErrNotFound
	}
	e.State = domain.QueueStateQueued
	e.LeaseWorker = ""
	e.LeasedAt = time.Time{}
	return nil
}

// ReportSuccess removes the entry. An entry re-enqueued mid-lease was
// refreshed for newer text than the worker just processed; it returns to
// the queue instead of being removed.
func (q *IndexQueue) ReportSuccess(_ context.Context, documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.State == domain.QueueStateLeased && e.QueuedAt.After(e.LeasedAt) {
		e.State = domain.QueueStateQueued
		e.LeaseWorker = ""
		e.LeasedAt = time.Time{}
		return nil
	}
	delete(q.entries, documentID)
	return nil
}

// ReportFailure increments the attempt counter and records the error. At
// the relevant budget the entry moves to the dead-letter state.
func (q *IndexQueue) ReportFailure(_ context.Context, documentID string, errMsg string, permanent bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[documentID]
	if !ok {
		return domain.ErrNotFound
	}

	e.Attempts++
	e.LastError = errMsg
	e.LastAttemptAt = time.Now().UTC()
	e.LeaseWorker = ""
	e.LeasedAt = time.Time{}

	budget := domain.MaxAttempts
	if permanent {
		budget = domain.MaxPermanentAttempts
	}
	if e.Attempts >= budget {
		e.State = domain.QueueStateDead
	} else {
		e.State = domain.QueueStateQueued
	}
	return nil
}

// BacklogSize counts queued and leased entries.
func (q *IndexQueue) BacklogSize(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.State == domain.QueueStateQueued || e.State == domain.QueueStateLeased {
			n++
		}
	}
	return n, nil
}

// DeadLetterCount counts dead entries.
func (q *IndexQueue) DeadLetterCount(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.State == domain.QueueStateDead {
			n++
		}
	}
	return n, nil
}

// ListDead returns dead entries, most recently failed first.
func (q *IndexQueue) ListDead(_ context.Context) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dead []domain.QueueEntry
	for _, e := range q.entries {
		if e.State == domain.QueueStateDead {
			dead = append(dead, *e)
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		return dead[i].LastAttemptAt.After(dead[j].LastAttemptAt)
	})
	return dead, nil
}
