package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

func TestSQLiteQueueLeaseLifecycle(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	require.NoError(t, queue.Enqueue(ctx, "doc1", domain.PriorityBulk))

	entry, err := queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "doc1", entry.DocumentID)
	assert.Equal(t, domain.QueueStateLeased, entry.State)

	// Invisible while leased.
	second, err := queue.LeaseNext(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, queue.ReportSuccess(ctx, "doc1"))
	size, err := queue.BacklogSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSQLiteQueuePriorityAndAgeOrdering(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	require.NoError(t, queue.Enqueue(ctx, "bulk-old", domain.PriorityBulk))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, queue.Enqueue(ctx, "bulk-new", domain.PriorityBulk))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, queue.Enqueue(ctx, "interactive", domain.PriorityInteractive))

	var order []string
	for {
		entry, err := queue.LeaseNext(ctx, "w1")
		require.NoError(t, err)
		if entry == nil {
			break
		}
		order = append(order, entry.DocumentID)
		require.NoError(t, queue.ReportSuccess(ctx, entry.DocumentID))
	}
	assert.Equal(t, []string{"interactive", "bulk-old", "bulk-new"}, order)
}

func TestSQLiteQueueEnqueueResetsRetryBudget(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	require.NoError(t, queue.Enqueue(ctx, "doc1", 0))
	entry, err := queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NoError(t, queue.ReportFailure(ctx, "doc1", "embed timeout", false))

	require.NoError(t, queue.Enqueue(ctx, "doc1", domain.PriorityInteractive))

	size, err := queue.BacklogSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "enqueue is an upsert, never a duplicate")

	entry, err = queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Zero(t, entry.Attempts)
	assert.Empty(t, entry.LastError)
	assert.Equal(t, domain.PriorityInteractive, entry.Priority)
}

// A document changing again while its old text is being processed must
// not lose the refreshed entry when the worker reports success.
func TestSQLiteQueueReportSuccessKeepsRefreshedEntry(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	require.NoError(t, queue.Enqueue(ctx, "doc1", domain.PriorityBulk))
	entry, err := queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, queue.Enqueue(ctx, "doc1", domain.PriorityInteractive))

	require.NoError(t, queue.ReportSuccess(ctx, "doc1"))

	size, err := queue.BacklogSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "refreshed entry must survive the success")

	entry, err = queue.LeaseNext(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.PriorityInteractive, entry.Priority)

	// No interleaved enqueue this time: the success removes the entry.
	require.NoError(t, queue.ReportSuccess(ctx, "doc1"))
	size, err = queue.BacklogSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSQLiteQueueReleaseKeepsAttempts(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	require.NoError(t, queue.Enqueue(ctx, "doc1", 0))
	entry, err := queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NoError(t, queue.ReportFailure(ctx, "doc1", "transient", false))

	entry, err = queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.Attempts)

	// Backoff not due yet: release without consuming the budget.
	require.NoError(t, queue.Release(ctx, "doc1"))

	entry, err = queue.LeaseNext(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.Attempts)
	assert.False(t, entry.LastAttemptAt.IsZero())
}

func TestSQLiteQueueDeadLetterThresholds(t *testing.T) {
	tests := []struct {
		name      string
		permanent bool
		budget    int
	}{
		{"transient failures", false, domain.MaxAttempts},
		{"permanent failures", true, domain.MaxPermanentAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			queue := newTestStore(t).IndexQueue()
			require.NoError(t, queue.Enqueue(ctx, "doc1", 0))

			for i := 0; i < tt.budget; i++ {
				entry, err := queue.LeaseNext(ctx, "w1")
				require.NoError(t, err)
				require.NotNil(t, entry, "attempt %d must be leasable", i+1)
				require.NoError(t, queue.ReportFailure(ctx, "doc1", "boom", tt.permanent))
			}

			entry, err := queue.LeaseNext(ctx, "w1")
			require.NoError(t, err)
			assert.Nil(t, entry, "dead entries are excluded from leasing")

			dead, err := queue.DeadLetterCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, dead)

			entries, err := queue.ListDead(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "doc1", entries[0].DocumentID)
			assert.Equal(t, tt.budget, entries[0].Attempts)
			assert.Equal(t, "boom", entries[0].LastError)
		})
	}
}

func TestSQLiteQueueEnqueueRevivesDeadEntry(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()
	require.NoError(t, queue.Enqueue(ctx, "doc1", 0))

	for i := 0; i < domain.MaxPermanentAttempts; i++ {
		entry, err := queue.LeaseNext(ctx, "w1")
		require.NoError(t, err)
		require.NotNil(t, entry)
		require.NoError(t, queue.ReportFailure(ctx, "doc1", "rejected", true))
	}

	require.NoError(t, queue.Enqueue(ctx, "doc1", 0))
	entry, err := queue.LeaseNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Zero(t, entry.Attempts)
}

// Concurrent workers must never claim the same entry twice: the claim is a
// single transaction, not a read-then-write race.
func TestSQLiteQueueConcurrentLeaseExclusivity(t *testing.T) {
	ctx := context.Background()
	queue := newTestStore(t).IndexQueue()

	const docs = 50
	for i := 0; i < docs; i++ {
		require.NoError(t, queue.Enqueue(ctx, fmt.Sprintf("doc-%02d", i), i%2))
	}

	const workers = 8
	var (
		mu      sync.Mutex
		claimed = make(map[string]int)
		wg      sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			empty := 0
			for empty < 3 {
				entry, err := queue.LeaseNext(ctx, workerID)
				if err != nil {
					// Busy-timeout contention surfaces as an error;
					// real workers poll again.
					continue
				}
				if entry == nil {
					empty++
					continue
				}
				empty = 0
				mu.Lock()
				claimed[entry.DocumentID]++
				mu.Unlock()
				assert.NoError(t, queue.ReportSuccess(ctx, entry.DocumentID))
			}
		}(fmt.Sprintf("worker-%d", w))
	}
	wg.Wait()

	assert.Len(t, claimed, docs)
	for docID, n := range claimed {
		assert.Equal(t, 1, n, "entry %s claimed %d times", docID, n)
	}
}
