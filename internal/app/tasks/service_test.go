package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/trendscout-net/trendscout/internal/agent"
	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/infra/redisq"
	"github.com/trendscout-net/trendscout/internal/infra/sqlite"
)

// fakeBackend scripts one response (or error) per call, in order.
// Safe for use from a worker goroutine.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []domain.GenerateRequest
	outputs []string
	errs    []error
}

func (f *fakeBackend) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return "ok", nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store   *sqlite.DB
	queue   *redisq.Queue
	catalog *agent.Catalog
	backend *fakeBackend
	service *Service
	runner  *agent.Runner
	crew    *agent.CrewExecutor
}

func newFixture(t *testing.T, backend *fakeBackend) *fixture {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	q := redisq.New(mr.Addr(), 0, "")
	t.Cleanup(func() { _ = q.Close() })

	catalog, err := agent.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	runner := agent.NewRunner(catalog, backend)
	crew := agent.NewCrewExecutor(catalog, runner, db)

	return &fixture{
		store:   db,
		queue:   q,
		catalog: catalog,
		backend: backend,
		service: NewService(db, q, catalog),
		runner:  runner,
		crew:    crew,
	}
}

// ─── Create ─────────────────────────────────────────────────────────────────

func TestService_Create(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		task, err := fx.service.Create(ctx, "u1", domain.AgentTrendAnalyzer,
			domain.Payload{"query": "AI"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if task.Status != domain.StatusPending {
			t.Errorf("status = %s, want pending", task.Status)
		}
		if seen[task.ID] {
			t.Errorf("duplicate task id %s", task.ID)
		}
		seen[task.ID] = true

		// Stored before queued: the id we pop must already be loadable.
		id, err := fx.queue.Pop(ctx, time.Second)
		if err != nil || id != task.ID {
			t.Fatalf("Pop = %q, %v; want %s", id, err, task.ID)
		}
		stored, err := fx.store.GetTask(id)
		if err != nil || stored == nil {
			t.Fatalf("GetTask(%s) = %v, %v", id, stored, err)
		}
	}
}

func TestService_Create_InvalidKind(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})

	_, err := fx.service.Create(context.Background(), "u1", "not_a_real_agent",
		domain.Payload{"query": "AI"})
	if !errors.Is(err, domain.ErrInvalidAgentKind) {
		t.Fatalf("err = %v, want ErrInvalidAgentKind", err)
	}

	// No store write, nothing queued.
	tasks, err := fx.service.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("store has %d tasks after rejected create, want 0", len(tasks))
	}
	depth, _ := fx.queue.Depth(context.Background())
	if depth != 0 {
		t.Errorf("queue depth = %d after rejected create, want 0", depth)
	}
}

func TestService_Create_MissingInput(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})

	_, err := fx.service.Create(context.Background(), "u1",
		domain.AgentTrendToPostCrew, domain.Payload{"query": "AI"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	_, err = fx.service.Create(context.Background(), "u1",
		domain.AgentTrendAnalyzer, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("nil input: err = %v, want ErrInvalidInput", err)
	}

	tasks, _ := fx.service.List("u1")
	if len(tasks) != 0 {
		t.Errorf("store has %d tasks after rejected create, want 0", len(tasks))
	}
}

// ─── Get / List ─────────────────────────────────────────────────────────────

func TestService_Get_OwnerScoping(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	task, err := fx.service.Create(ctx, "u1", domain.AgentTrendAnalyzer,
		domain.Payload{"query": "AI"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := fx.service.Get(task.ID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("Get returned wrong task: %s", got.ID)
	}

	// Another owner is rejected.
	if _, err := fx.service.Get(task.ID, "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("cross-owner Get err = %v, want ErrForbidden", err)
	}

	// Unknown id.
	if _, err := fx.service.Get("missing", "u1"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("missing Get err = %v, want ErrTaskNotFound", err)
	}
}

func TestService_List_OwnerOnly(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := fx.service.Create(ctx, "u1", domain.AgentScheduler,
			domain.Payload{"query": "campaign"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := fx.service.Create(ctx, "u2", domain.AgentScheduler,
		domain.Payload{"query": "campaign"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, err := fx.service.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("List(u1) = %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task.Owner != "u1" {
			t.Errorf("List(u1) leaked task owned by %s", task.Owner)
		}
	}
}
