package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/trendscout-net/trendscout/internal/agent"
	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/infra/metrics"
)

// Worker runs the dequeue-dispatch-persist loop. Several workers may share
// the same queue and store; the store's conditional claim write is what
// keeps two workers off the same task. Failed tasks are terminal; retry is
// a new task submitted by the caller, never an automatic re-enqueue.
type Worker struct {
	id          int
	store       domain.TaskStore
	queue       domain.TaskQueue
	runner      *agent.Runner
	crew        *agent.CrewExecutor
	pollTimeout time.Duration
}

// NewWorker creates one worker. pollTimeout bounds each blocking pop.
func NewWorker(id int, store domain.TaskStore, queue domain.TaskQueue,
	runner *agent.Runner, crew *agent.CrewExecutor, pollTimeout time.Duration) *Worker {
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Second
	}
	return &Worker{
		id:          id,
		store:       store,
		queue:       queue,
		runner:      runner,
		crew:        crew,
		pollTimeout: pollTimeout,
	}
}

// Run loops until ctx is cancelled. Cancellation stops new pops; a task
// already dispatched runs to completion; there is no mid-flight abort.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[worker %d] started", w.id)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker %d] stopped", w.id)
			return
		default:
		}

		id, err := w.queue.Pop(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[worker %d] stopped", w.id)
				return
			}
			log.Printf("[worker %d] queue pop error: %v", w.id, err)
			time.Sleep(time.Second)
			continue
		}
		if id == "" {
			continue // Idle poll, not an error
		}

		// Detached context: shutdown drains the in-flight task.
		w.process(context.WithoutCancel(ctx), id)
	}
}

// process executes one delivery: load, claim, dispatch, persist outcome.
// A single task failing must never take the loop down.
func (w *Worker) process(ctx context.Context, id string) {
	task, err := w.store.GetTask(id)
	if err != nil {
		log.Printf("[worker %d] load task %s: %v", w.id, id, err)
		return
	}
	if task == nil {
		// Unlike a terminal redelivery this may indicate a queue/store
		// consistency bug, so it logs louder.
		log.Printf("[worker %d] WARNING: task %s not in store, discarding", w.id, id)
		return
	}
	if task.IsTerminal() {
		// At-least-once redelivery of finished work. Benign.
		log.Printf("[worker %d] task %s already %s, discarding", w.id, id, task.Status)
		return
	}

	claimed, err := w.store.ClaimTask(id)
	if err != nil {
		log.Printf("[worker %d] claim task %s: %v", w.id, id, err)
		return
	}
	if !claimed {
		log.Printf("[worker %d] task %s claimed elsewhere, discarding", w.id, id)
		return
	}

	log.Printf("[worker %d] processing task %s (%s)", w.id, id, task.AgentKind)
	metrics.TasksActive.Inc()
	start := time.Now()

	var result domain.Payload
	var runErr error
	if task.AgentKind.IsCrew() {
		result, runErr = w.crew.Execute(ctx, task)
	} else {
		var out string
		out, runErr = w.runner.Run(ctx, task.AgentKind, task.InputData)
		if runErr == nil {
			result = domain.Payload{"output": out}
		}
	}

	metrics.TasksActive.Dec()
	metrics.TaskDuration.WithLabelValues(string(task.AgentKind)).
		Observe(time.Since(start).Seconds())

	if runErr != nil {
		metrics.TasksFailed.WithLabelValues(string(task.AgentKind), failureReason(runErr)).Inc()
		if err := w.store.FailTask(id, runErr.Error()); err != nil {
			log.Printf("[worker %d] record failure for task %s: %v", w.id, id, err)
		}
		log.Printf("[worker %d] task %s failed: %v", w.id, id, runErr)
		return
	}

	if err := w.store.CompleteTask(id, result); err != nil {
		log.Printf("[worker %d] record result for task %s: %v", w.id, id, err)
		return
	}
	metrics.TasksCompleted.WithLabelValues(string(task.AgentKind)).Inc()
	log.Printf("[worker %d] task %s completed in %s", w.id, id, time.Since(start).Round(time.Millisecond))
}

// failureReason maps an execution error to a metrics label.
func failureReason(err error) string {
	var stepErr *domain.StepError
	switch {
	case errors.Is(err, domain.ErrBackendTimeout):
		return "backend_timeout"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.As(err, &stepErr):
		return "pipeline_step"
	default:
		return "internal"
	}
}

// Pool runs n workers over shared dependencies.
type Pool struct {
	workers []*Worker
}

// NewPool creates n workers sharing the given store, queue and executors.
func NewPool(n int, store domain.TaskStore, queue domain.TaskQueue,
	runner *agent.Runner, crew *agent.CrewExecutor, pollTimeout time.Duration) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{}
	for i := 0; i < n; i++ {
		p.workers = append(p.workers, NewWorker(i+1, store, queue, runner, crew, pollTimeout))
	}
	return p
}

// Run starts every worker and blocks until all have drained after ctx is
// cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()
}
