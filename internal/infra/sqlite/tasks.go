package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendscout-net/trendscout/internal/domain"
)

// ─── Task Repository ────────────────────────────────────────────────────────
// Implements domain.TaskStore. Every mutation bumps updated_at.

// PutTask inserts a new task record.
func (d *DB) PutTask(t domain.Task) error {
	input, err := json.Marshal(t.InputData)
	if err != nil {
		return fmt.Errorf("encode input_data: %w", err)
	}
	steps, err := json.Marshal(stepsOrEmpty(t.IntermediateSteps))
	if err != nil {
		return fmt.Errorf("encode intermediate_steps: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT INTO tasks (id, owner, agent_type, status, input_data, result, error, intermediate_steps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL, NULL, ?, ?, ?)`,
		t.ID, t.Owner, string(t.AgentKind), string(t.Status),
		string(input), string(steps),
		unixOrZero(t.CreatedAt), unixOrZero(t.UpdatedAt),
	)
	return err
}

// GetTask retrieves a task by id. Returns (nil, nil) when absent.
func (d *DB) GetTask(id string) (*domain.Task, error) {
	row := d.db.QueryRow(
		`SELECT id, owner, agent_type, status, input_data, result, error, intermediate_steps, created_at, updated_at
		 FROM tasks WHERE id = ?`, id,
	)
	return scanTask(row)
}

// ListTasksByOwner returns the owner's tasks, most-recent-first.
func (d *DB) ListTasksByOwner(owner string) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT id, owner, agent_type, status, input_data, result, error, intermediate_steps, created_at, updated_at
		 FROM tasks WHERE owner = ? ORDER BY created_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ClaimTask conditionally moves a pending task to processing.
// The WHERE status = 'pending' guard makes the claim a compare-and-swap:
// at most one worker wins; redeliveries and terminal tasks lose.
func (d *DB) ClaimTask(id string) (bool, error) {
	res, err := d.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.StatusProcessing), time.Now().Unix(), id, string(domain.StatusPending),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AppendStep appends one step record to intermediate_steps.
// Runs in a transaction so the read-append-write is atomic per task.
func (d *DB) AppendStep(id string, step domain.StepRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(`SELECT intermediate_steps FROM tasks WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.ErrTaskNotFound
	}
	if err != nil {
		return err
	}

	var steps []domain.StepRecord
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return fmt.Errorf("decode intermediate_steps: %w", err)
	}
	steps = append(steps, step)

	encoded, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode intermediate_steps: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE tasks SET intermediate_steps = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().Unix(), id,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteTask records the result and moves the task to completed.
// Guarded on processing so a terminal task is never overwritten.
func (d *DB) CompleteTask(id string, result domain.Payload) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	res, err := d.db.Exec(
		`UPDATE tasks SET status = ?, result = ?, error = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.StatusCompleted), string(encoded), time.Now().Unix(),
		id, string(domain.StatusProcessing),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("complete task %s: not in processing", id)
	}
	return nil
}

// FailTask records the error message and moves the task to failed.
func (d *DB) FailTask(id string, msg string) error {
	res, err := d.db.Exec(
		`UPDATE tasks SET status = ?, error = ?, result = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.StatusFailed), nullStr(msg), time.Now().Unix(),
		id, string(domain.StatusProcessing),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("fail task %s: not in processing", id)
	}
	return nil
}

// ─── Scanning ───────────────────────────────────────────────────────────────

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var kind, status, input, steps string
	var result, taskErr sql.NullString
	var createdAt, updatedAt int64

	err := s.Scan(&t.ID, &t.Owner, &kind, &status, &input,
		&result, &taskErr, &steps, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	t.AgentKind = domain.AgentKind(kind)
	t.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(input), &t.InputData); err != nil {
		return nil, fmt.Errorf("decode input_data: %w", err)
	}
	if result.Valid {
		if err := json.Unmarshal([]byte(result.String), &t.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if taskErr.Valid {
		t.Error = taskErr.String
	}
	if err := json.Unmarshal([]byte(steps), &t.IntermediateSteps); err != nil {
		return nil, fmt.Errorf("decode intermediate_steps: %w", err)
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

func stepsOrEmpty(steps []domain.StepRecord) []domain.StepRecord {
	if steps == nil {
		return []domain.StepRecord{}
	}
	return steps
}
