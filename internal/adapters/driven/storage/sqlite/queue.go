package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// indexQueue implements driven.IndexQueue on the index_queue table. The
// lease claim runs inside one transaction, which under SQLite's single
// writer makes it atomic: two workers can never claim the same entry.
type indexQueue struct {
	store *Store
}

var _ driven.IndexQueue = (*indexQueue)(nil)

// Enqueue upserts the single live entry for the document. The attempt
// counter and last error reset so fresh text gets a fresh retry budget; a
// dead entry comes back to life; a leased entry keeps its lease.
func (q *indexQueue) Enqueue(ctx context.Context, documentID string, priority int) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := q.store.db.ExecContext(ctx, `
		INSERT INTO index_queue (document_id, priority, queued_at, state)
		VALUES (?, ?, ?, 'queued')
		ON CONFLICT(document_id) DO UPDATE SET
			priority = excluded.priority,
			queued_at = excluded.queued_at,
			attempts = 0,
			last_error = '',
			last_attempt_at = NULL,
			state = CASE WHEN index_queue.state = 'leased' THEN 'leased' ELSE 'queued' END
	`, documentID, priority, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueueing document: %w", err)
	}
	return nil
}

// LeaseNext atomically claims the highest-priority, oldest-queued entry.
// Returns (nil, nil) when nothing is leasable.
func (q *indexQueue) LeaseNext(ctx context.Context, workerID string) (*domain.QueueEntry, error) {
	tx, err := q.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT document_id, priority, queued_at, attempts, last_error, last_attempt_at
		FROM index_queue
		WHERE state = 'queued'
		ORDER BY priority DESC, queued_at ASC
		LIMIT 1
	`)

	var entry domain.QueueEntry
	var lastAttemptAt sql.NullTime
	if err := row.Scan(&entry.DocumentID, &entry.Priority, &entry.QueuedAt,
		&entry.Attempts, &entry.LastError, &lastAttemptAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("selecting next entry: %w", err)
	}
	if lastAttemptAt.Valid {
		entry.LastAttemptAt = lastAttemptAt.Time
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE index_queue
		SET state = 'leased', lease_worker = ?, leased_at = ?
		WHERE document_id = ? AND state = 'queued'
	`, workerID, now, entry.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("claiming entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking claim: %w", err)
	}
	if affected == 0 {
		// Claimed by another worker between select and update; the
		// caller polls again.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing lease: %w", err)
	}

	entry.State = domain.QueueStateLeased
	entry.LeaseWorker = workerID
	entry.LeasedAt = now
	return &entry, nil
}

// Release returns a leased entry to the queue without consuming an
// attempt.
func (q *indexQueue) Release(ctx context.Context, documentID string) error {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE index_queue
		SET state = 'queued', lease_worker = '', leased_at = NULL
		WHERE document_id = ? AND state = 'leased'
	`, documentID)
	if err != nil {
		return fmt.Errorf("releasing entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking release: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReportSuccess removes the entry after successful processing. An entry
// re-enqueued mid-lease was refreshed for newer text than the worker just
// processed; it returns to the queue instead of being removed.
func (q *indexQueue) ReportSuccess(ctx context.Context, documentID string) error {
	res, err := q.store.db.ExecContext(ctx, `
		DELETE FROM index_queue
		WHERE document_id = ?
		  AND NOT (state = 'leased' AND queued_at > leased_at)
	`, documentID)
	if err != nil {
		return fmt.Errorf("removing entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking removal: %w", err)
	}
	if affected > 0 {
		return nil
	}

	res, err = q.store.db.ExecContext(ctx, `
		UPDATE index_queue
		SET state = 'queued', lease_worker = '', leased_at = NULL
		WHERE document_id = ? AND state = 'leased'
	`, documentID)
	if err != nil {
		return fmt.Errorf("requeueing refreshed entry: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking requeue: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReportFailure increments the attempt counter, records the error and
// moves the entry to the dead-letter state when its budget is exhausted.
// Permanent failures burn through a shorter budget.
func (q *indexQueue) ReportFailure(ctx context.Context, documentID string, errMsg string, permanent bool) error {
	budget := domain.MaxAttempts
	if permanent {
		budget = domain.MaxPermanentAttempts
	}

	res, err := q.store.db.ExecContext(ctx, `
		UPDATE index_queue
		SET attempts = attempts + 1,
			last_error = ?,
			last_attempt_at = ?,
			lease_worker = '',
			leased_at = NULL,
			state = CASE WHEN attempts + 1 >= ? THEN 'dead' ELSE 'queued' END
		WHERE document_id = ?
	`, errMsg, time.Now().UTC(), budget, documentID)
	if err != nil {
		return fmt.Errorf("recording failure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking failure record: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BacklogSize counts queued and leased entries.
func (q *indexQueue) BacklogSize(ctx context.Context) (int, error) {
	var count int
	err := q.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM index_queue WHERE state IN ('queued', 'leased')").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting backlog: %w", err)
	}
	return count, nil
}

// DeadLetterCount counts entries that exhausted their retry budget.
func (q *indexQueue) DeadLetterCount(ctx context.Context) (int, error) {
	var count int
	err := q.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM index_queue WHERE state = 'dead'").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting dead letters: %w", err)
	}
	return count, nil
}

// ListDead returns dead entries for operator inspection, most recently
// failed first.
func (q *indexQueue) ListDead(ctx context.Context) ([]domain.QueueEntry, error) {
	rows, err := q.store.db.QueryContext(ctx, `
		SELECT document_id, priority, queued_at, attempts, last_error, last_attempt_at
		FROM index_queue
		WHERE state = 'dead'
		ORDER BY last_attempt_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying dead letters: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.QueueEntry
		var lastAttemptAt sql.NullTime
		if err := rows.Scan(&entry.DocumentID, &entry.Priority, &entry.QueuedAt,
			&entry.Attempts, &entry.LastError, &lastAttemptAt); err != nil {
			return nil, fmt.Errorf("scanning dead entry: %w", err)
		}
		if lastAttemptAt.Valid {
			entry.LastAttemptAt = lastAttemptAt.Time
		}
		entry.State = domain.QueueStateDead
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dead entries: %w", err)
	}
	return entries, nil
}
