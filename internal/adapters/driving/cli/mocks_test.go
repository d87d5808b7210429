package cli

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	resp     *domain.SearchResponse
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockRetrievalService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.resp, nil
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	enqueued   []string
	priorities []int
	health     driving.QueueHealth
	err        error
}

func (m *mockIndexingService) Start(_ context.Context) error { return m.err }
func (m *mockIndexingService) Stop() error                   { return m.err }

func (m *mockIndexingService) Enqueue(_ context.Context, documentID string, priority int) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, documentID)
	m.priorities = append(m.priorities, priority)
	return nil
}

func (m *mockIndexingService) EnqueueNow(ctx context.Context, documentID string) error {
	return m.Enqueue(ctx, documentID, domain.PriorityInteractive)
}

func (m *mockIndexingService) QueueHealth(_ context.Context) (*driving.QueueHealth, error) {
	if m.err != nil {
		return nil, m.err
	}
	health := m.health
	return &health, nil
}

func (m *mockIndexingService) RebuildVectorIndex(_ context.Context) error { return m.err }
