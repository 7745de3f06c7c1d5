package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.
// They are injected into constructors; no package-level singletons.

// TaskStore abstracts durable task storage. Each per-task update is atomic.
type TaskStore interface {
	// PutTask inserts a new task record.
	PutTask(t Task) error

	// GetTask retrieves a task by id. Returns (nil, nil) when absent.
	GetTask(id string) (*Task, error)

	// ListTasksByOwner returns the owner's tasks, most-recent-first.
	ListTasksByOwner(owner string) ([]Task, error)

	// ClaimTask conditionally moves a pending task to processing.
	// Returns false without error when the task is absent, already
	// claimed, or terminal. This is the mutual-exclusion point between workers.
	ClaimTask(id string) (bool, error)

	// AppendStep appends one step record to intermediate_steps.
	// Persisted immediately so concurrent readers see partial progress.
	AppendStep(id string, step StepRecord) error

	// CompleteTask records the result and moves the task to completed.
	CompleteTask(id string, result Payload) error

	// FailTask records the error message and moves the task to failed.
	FailTask(id string, msg string) error
}

// TaskQueue abstracts the broker handing task ids to workers.
// Delivery is at-least-once: consumers must tolerate redelivery.
type TaskQueue interface {
	// Push enqueues a task id. Callers must persist the task first.
	Push(ctx context.Context, id string) error

	// Pop blocks up to timeout for the next id. Returns "" on an idle
	// timeout, which is not an error.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// GenerateRequest is one prompt sent to the inference backend.
type GenerateRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature float64
}

// TextBackend abstracts the language-model inference service.
// One network call per invocation; it may be slow or fail.
type TextBackend interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
