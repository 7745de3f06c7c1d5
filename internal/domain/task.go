// Package domain holds the core task types.
// A Task is one request to run an agent or crew, tracked through a status
// lifecycle: submit → queue → process → complete/fail.
package domain

import "time"

// Status tracks the task lifecycle. Transitions are forward-only:
// pending < processing < {completed, failed}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// rank orders statuses for the monotonic-transition check.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal returns true for completed and failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Terminal states accept nothing; completed and failed are
// mutually exclusive.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// AgentKind names a runnable agent or crew. The set is fixed configuration,
// not user-extensible at runtime.
type AgentKind string

const (
	AgentTrendAnalyzer    AgentKind = "trend_analyzer"
	AgentContentGenerator AgentKind = "content_generator"
	AgentScheduler        AgentKind = "scheduler"
	AgentTrendToPostCrew  AgentKind = "trend_to_post_crew"
)

// IsCrew reports whether the kind dispatches to the pipeline executor
// rather than a single agent run.
func (k AgentKind) IsCrew() bool {
	return k == AgentTrendToPostCrew
}

// Payload is a semantic key-value document (task input and result).
type Payload map[string]any

// Clone returns a shallow copy. Pipeline steps accumulate context in copies
// so a step never mutates its predecessor's view.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// StepRecord is a persisted snapshot of one crew pipeline step.
// Records are append-only: once written they are never edited or removed,
// even if a later step fails.
type StepRecord struct {
	Agent           string `json:"agent"`
	TaskDescription string `json:"task_description"`
	Output          string `json:"output"`
}

// Task is the unit of work and its durable record.
// Owner is the submitting principal, opaque to the execution core.
// Result and Error are mutually exclusive; Result is written exactly once.
type Task struct {
	ID                string       `json:"id"`
	Owner             string       `json:"owner"`
	AgentKind         AgentKind    `json:"agent_type"`
	InputData         Payload      `json:"input_data"`
	Status            Status       `json:"status"`
	Result            Payload      `json:"result,omitempty"`
	Error             string       `json:"error,omitempty"`
	IntermediateSteps []StepRecord `json:"intermediate_steps,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// IsTerminal returns true if the task has reached a final state.
func (t *Task) IsTerminal() bool {
	return t.Status.Terminal()
}
