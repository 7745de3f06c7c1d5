// Package tasks implements the task lifecycle: the submission-facing
// service the API layer calls into, and the worker loop that executes
// queued tasks out-of-band.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trendscout-net/trendscout/internal/agent"
	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/infra/metrics"
)

// Service creates and reads tasks. Store and queue are injected; the two
// create effects are not atomic, but the task is always durably stored
// before it is enqueued so a worker never dequeues an unknown id.
type Service struct {
	store   domain.TaskStore
	queue   domain.TaskQueue
	catalog *agent.Catalog
}

// NewService creates a task service.
func NewService(store domain.TaskStore, queue domain.TaskQueue, catalog *agent.Catalog) *Service {
	return &Service{store: store, queue: queue, catalog: catalog}
}

// Create validates the request, persists a pending task, and enqueues its
// id. Validation failures happen before any store write.
func (s *Service) Create(ctx context.Context, owner string, kind domain.AgentKind, input domain.Payload) (*domain.Task, error) {
	required, ok := s.catalog.RequiredField(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAgentKind, kind)
	}
	// A nil payload is rejected here too: every kind requires a field.
	if !hasInputField(input, required) {
		return nil, fmt.Errorf("%w: %s needs %q", domain.ErrInvalidInput, kind, required)
	}

	now := time.Now()
	task := domain.Task{
		ID:        uuid.NewString(),
		Owner:     owner,
		AgentKind: kind,
		InputData: input,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Store first, queue second. Mandatory ordering.
	if err := s.store.PutTask(task); err != nil {
		return nil, fmt.Errorf("store task: %w", err)
	}
	if err := s.queue.Push(ctx, task.ID); err != nil {
		// The pending row stays behind so the caller can see and resubmit.
		return nil, fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}

	metrics.TasksCreated.WithLabelValues(string(kind)).Inc()
	return &task, nil
}

// Get returns the current task snapshot, including any in-progress
// intermediate steps. The owner check is enforced here, at the boundary the
// API layer calls into.
func (s *Service) Get(id, owner string) (*domain.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.Owner != owner {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

// List returns the owner's tasks, most-recent-first.
func (s *Service) List(owner string) ([]domain.Task, error) {
	return s.store.ListTasksByOwner(owner)
}

func hasInputField(input domain.Payload, field string) bool {
	v, ok := input[field]
	if !ok {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}
