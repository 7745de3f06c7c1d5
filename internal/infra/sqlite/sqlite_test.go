package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/security"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func pendingTask(id, owner string) domain.Task {
	now := time.Now().Truncate(time.Second)
	return domain.Task{
		ID:        id,
		Owner:     owner,
		AgentKind: domain.AgentTrendAnalyzer,
		InputData: domain.Payload{"query": "AI"},
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ─── Task Repository ────────────────────────────────────────────────────────

func TestTasks_PutGet(t *testing.T) {
	db := newTestDB(t)

	task := pendingTask("t1", "u1")
	if err := db.PutTask(task); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil {
		t.Fatal("GetTask returned nil for existing task")
	}
	if got.Owner != "u1" || got.AgentKind != domain.AgentTrendAnalyzer {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.InputData["query"] != "AI" {
		t.Errorf("input_data = %v", got.InputData)
	}
	if len(got.IntermediateSteps) != 0 {
		t.Errorf("new task has %d steps, want 0", len(got.IntermediateSteps))
	}
	if got.Result != nil || got.Error != "" {
		t.Errorf("new task has result=%v error=%q", got.Result, got.Error)
	}
}

func TestTasks_GetMissing(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetTask("nope")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Errorf("GetTask(missing) = %+v, want nil", got)
	}
}

func TestTasks_ListByOwner(t *testing.T) {
	db := newTestDB(t)

	for i, id := range []string{"a", "b", "c"} {
		task := pendingTask(id, "u1")
		task.CreatedAt = time.Unix(int64(1000+i), 0)
		task.UpdatedAt = task.CreatedAt
		if err := db.PutTask(task); err != nil {
			t.Fatalf("PutTask(%s): %v", id, err)
		}
	}
	if err := db.PutTask(pendingTask("other", "u2")); err != nil {
		t.Fatalf("PutTask(other): %v", err)
	}

	tasks, err := db.ListTasksByOwner("u1")
	if err != nil {
		t.Fatalf("ListTasksByOwner: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	// Most-recent-first.
	if tasks[0].ID != "c" || tasks[1].ID != "b" || tasks[2].ID != "a" {
		t.Errorf("order = %s,%s,%s; want c,b,a", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestTasks_ListByOwner_SameSecond(t *testing.T) {
	db := newTestDB(t)

	// created_at is stored at second resolution; with equal timestamps
	// insertion order must still decide, not the random task id.
	when := time.Unix(2000, 0)
	for _, id := range []string{"zzz", "mmm", "aaa"} {
		task := pendingTask(id, "u1")
		task.CreatedAt = when
		task.UpdatedAt = when
		if err := db.PutTask(task); err != nil {
			t.Fatalf("PutTask(%s): %v", id, err)
		}
	}

	tasks, err := db.ListTasksByOwner("u1")
	if err != nil {
		t.Fatalf("ListTasksByOwner: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	if tasks[0].ID != "aaa" || tasks[1].ID != "mmm" || tasks[2].ID != "zzz" {
		t.Errorf("order = %s,%s,%s; want aaa,mmm,zzz",
			tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestTasks_ClaimOnce(t *testing.T) {
	db := newTestDB(t)
	if err := db.PutTask(pendingTask("t1", "u1")); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	claimed, err := db.ClaimTask("t1")
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should win")
	}

	// Second claim (duplicate delivery) must lose.
	claimed, err = db.ClaimTask("t1")
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if claimed {
		t.Error("second claim should lose")
	}

	// Claiming a missing task is a clean miss, not an error.
	claimed, err = db.ClaimTask("missing")
	if err != nil {
		t.Fatalf("ClaimTask(missing): %v", err)
	}
	if claimed {
		t.Error("claim of missing task should lose")
	}
}

func TestTasks_AppendStep(t *testing.T) {
	db := newTestDB(t)
	if err := db.PutTask(pendingTask("t1", "u1")); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	steps := []domain.StepRecord{
		{Agent: "trend_analyzer", TaskDescription: "analyze trends", Output: "trends: x"},
		{Agent: "content_generator", TaskDescription: "write a post", Output: "post: y"},
	}
	for _, s := range steps {
		if err := db.AppendStep("t1", s); err != nil {
			t.Fatalf("AppendStep: %v", err)
		}
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.IntermediateSteps) != 2 {
		t.Fatalf("got %d steps, want 2", len(got.IntermediateSteps))
	}
	// Append order is execution order.
	if got.IntermediateSteps[0].Agent != "trend_analyzer" ||
		got.IntermediateSteps[1].Agent != "content_generator" {
		t.Errorf("step order wrong: %+v", got.IntermediateSteps)
	}

	if err := db.AppendStep("missing", steps[0]); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("AppendStep(missing) err = %v, want ErrTaskNotFound", err)
	}
}

func TestTasks_CompleteTask(t *testing.T) {
	db := newTestDB(t)
	if err := db.PutTask(pendingTask("t1", "u1")); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	if _, err := db.ClaimTask("t1"); err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}

	if err := db.CompleteTask("t1", domain.Payload{"output": "done"}); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	got, _ := db.GetTask("t1")
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Result["output"] != "done" {
		t.Errorf("result = %v", got.Result)
	}
	if got.Error != "" {
		t.Errorf("completed task has error %q", got.Error)
	}

	// Terminal tasks cannot be completed again.
	if err := db.CompleteTask("t1", domain.Payload{"output": "again"}); err == nil {
		t.Error("second complete should fail")
	}
}

func TestTasks_FailTask(t *testing.T) {
	db := newTestDB(t)
	if err := db.PutTask(pendingTask("t1", "u1")); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	if _, err := db.ClaimTask("t1"); err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}

	if err := db.FailTask("t1", "inference backend timed out"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}

	got, _ := db.GetTask("t1")
	if got.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failed task has empty error")
	}
	// result and error are mutually exclusive.
	if got.Result != nil {
		t.Errorf("failed task has result %v", got.Result)
	}

	// No regression out of a terminal state.
	if claimed, _ := db.ClaimTask("t1"); claimed {
		t.Error("claim of failed task should lose")
	}
}

// ─── User Repository ────────────────────────────────────────────────────────

func TestUsers_CreateGet(t *testing.T) {
	db := newTestDB(t)

	u := security.User{
		ID:             "u1",
		Email:          "a@example.com",
		HashedPassword: "hash",
		CreatedAt:      time.Now(),
	}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := db.GetUserByEmail("a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("id = %s, want u1", got.ID)
	}

	if _, err := db.GetUser("u1"); err != nil {
		t.Errorf("GetUser: %v", err)
	}

	if _, err := db.GetUserByEmail("missing@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("missing user err = %v, want ErrUserNotFound", err)
	}

	// Duplicate email.
	u.ID = "u2"
	if err := db.CreateUser(u); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("duplicate email err = %v, want ErrUserExists", err)
	}
}
