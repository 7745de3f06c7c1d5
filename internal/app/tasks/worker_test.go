package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trendscout-net/trendscout/internal/domain"
)

func newTestWorker(fx *fixture) *Worker {
	return NewWorker(1, fx.store, fx.queue, fx.runner, fx.crew, 50*time.Millisecond)
}

// Submits a task and hands its id straight to the worker.
func submit(t *testing.T, fx *fixture, kind domain.AgentKind, input domain.Payload) string {
	t.Helper()
	task, err := fx.service.Create(context.Background(), "u1", kind, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task.ID
}

func TestWorker_SingleAgentSuccess(t *testing.T) {
	fx := newFixture(t, &fakeBackend{outputs: []string{"trend report"}})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendAnalyzer, domain.Payload{"query": "AI"})
	w.process(context.Background(), id)

	got, err := fx.service.Get(id, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Result["output"] != "trend report" {
		t.Errorf("result = %v", got.Result)
	}
	if got.Error != "" {
		t.Errorf("completed task has error %q", got.Error)
	}
	if len(got.IntermediateSteps) != 0 {
		t.Errorf("single-agent task has %d steps, want 0", len(got.IntermediateSteps))
	}
}

func TestWorker_CrewSuccess(t *testing.T) {
	fx := newFixture(t, &fakeBackend{outputs: []string{"trends", "post", "tuesday 9am"}})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendToPostCrew, domain.Payload{"topic": "solar"})
	w.process(context.Background(), id)

	got, _ := fx.service.Get(id, "u1")
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if len(got.IntermediateSteps) != 3 {
		t.Errorf("got %d steps, want 3 (pipeline length)", len(got.IntermediateSteps))
	}
	if got.Result["final_output"] != "tuesday 9am" {
		t.Errorf("final_output = %v, want last step's output", got.Result["final_output"])
	}
}

func TestWorker_CrewStepTimeout(t *testing.T) {
	// Step 2 (content_generator) times out: task fails with exactly one
	// persisted step and an error that mentions the timeout.
	fx := newFixture(t, &fakeBackend{
		outputs: []string{"trends", "", ""},
		errs:    []error{nil, domain.ErrBackendTimeout, nil},
	})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendToPostCrew, domain.Payload{"topic": "solar"})
	w.process(context.Background(), id)

	got, _ := fx.service.Get(id, "u1")
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if len(got.IntermediateSteps) != 1 {
		t.Errorf("got %d steps, want 1 (step before the failure)", len(got.IntermediateSteps))
	}
	if !strings.Contains(got.Error, "timed out") {
		t.Errorf("error %q does not mention the timeout", got.Error)
	}
	if got.Result != nil {
		t.Errorf("failed task has result %v", got.Result)
	}
}

func TestWorker_SingleAgentBackendDown(t *testing.T) {
	fx := newFixture(t, &fakeBackend{errs: []error{domain.ErrBackendUnavailable}})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentContentGenerator, domain.Payload{"query": "solar posts"})
	w.process(context.Background(), id)

	got, _ := fx.service.Get(id, "u1")
	if got.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failed task has empty error")
	}
}

func TestWorker_TerminalRedelivery(t *testing.T) {
	fx := newFixture(t, &fakeBackend{outputs: []string{"report"}})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendAnalyzer, domain.Payload{"query": "AI"})
	w.process(context.Background(), id)

	first, _ := fx.service.Get(id, "u1")
	if first.Status != domain.StatusCompleted {
		t.Fatalf("setup: status = %s", first.Status)
	}
	callsBefore := fx.backend.callCount()

	// Redeliver the same id: no new execution, no store mutation.
	w.process(context.Background(), id)

	if fx.backend.callCount() != callsBefore {
		t.Error("redelivery re-invoked the backend")
	}
	second, _ := fx.service.Get(id, "u1")
	if second.Status != domain.StatusCompleted || second.Result["output"] != "report" {
		t.Errorf("redelivery mutated the task: %+v", second)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("redelivery bumped updated_at: %v → %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestWorker_UnknownIDDiscarded(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	w := newTestWorker(fx)

	// Must not panic, write, or invoke the backend.
	w.process(context.Background(), "never-existed")

	if fx.backend.callCount() != 0 {
		t.Error("backend invoked for unknown id")
	}
}

func TestWorker_LostClaimDiscarded(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendAnalyzer, domain.Payload{"query": "AI"})

	// Another worker claimed the task between our load and claim.
	claimed, err := fx.store.ClaimTask(id)
	if err != nil || !claimed {
		t.Fatalf("setup claim: %v %v", claimed, err)
	}

	w.process(context.Background(), id)

	if fx.backend.callCount() != 0 {
		t.Error("backend invoked despite lost claim")
	}
	got, _ := fx.service.Get(id, "u1")
	if got.Status != domain.StatusProcessing {
		t.Errorf("status = %s, want processing (owned by the other worker)", got.Status)
	}
}

func TestWorker_RunDrainsOnCancel(t *testing.T) {
	fx := newFixture(t, &fakeBackend{outputs: []string{"report"}})
	w := newTestWorker(fx)

	id := submit(t, fx, domain.AgentTrendAnalyzer, domain.Payload{"query": "AI"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Wait for the worker to finish the queued task.
	deadline := time.After(5 * time.Second)
	for {
		got, err := fx.service.Get(id, "u1")
		if err == nil && got.IsTerminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never finished the task")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	got, _ := fx.service.Get(id, "u1")
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}
