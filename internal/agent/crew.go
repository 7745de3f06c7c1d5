package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/infra/metrics"
)

// CrewExecutor runs the trend-to-post pipeline: a fixed ordered sequence of
// agent steps where each step sees the original input plus the accumulated
// output of all prior steps, and every step's output is persisted as a step
// record before the next step starts. Clients polling mid-execution see this
// partial progress, the main observability affordance for chains that run
// for minutes.
type CrewExecutor struct {
	catalog *Catalog
	runner  *Runner
	store   domain.TaskStore
}

// NewCrewExecutor creates a pipeline executor.
func NewCrewExecutor(catalog *Catalog, runner *Runner, store domain.TaskStore) *CrewExecutor {
	return &CrewExecutor{catalog: catalog, runner: runner, store: store}
}

// Execute runs the pipeline for a crew task and returns the overall result:
// the final step's output. On any step failure the pipeline stops
// immediately and the error is a *domain.StepError; steps already persisted
// remain.
func (e *CrewExecutor) Execute(ctx context.Context, task *domain.Task) (domain.Payload, error) {
	required := e.catalog.CrewRequiredField()
	if !hasField(task.InputData, required) {
		return nil, fmt.Errorf("%w: %s needs %q",
			domain.ErrInvalidInput, task.AgentKind, required)
	}

	// Accumulating context: starts as the task input, grows by one key per
	// step. Each step gets its own copy so no step mutates another's view.
	accum := task.InputData.Clone()
	var lastOutput string

	for i, step := range e.catalog.Pipeline() {
		prompt, err := renderTemplate(step.prompt, accum)
		if err != nil {
			return nil, &domain.StepError{Step: i + 1, Agent: string(step.Kind), Err: err}
		}

		out, err := e.runner.RunPrompt(ctx, step.Kind, prompt)
		if err != nil {
			return nil, &domain.StepError{Step: i + 1, Agent: string(step.Kind), Err: err}
		}

		// Persist before running the next step, not batched at the end.
		record := domain.StepRecord{
			Agent:           string(step.Kind),
			TaskDescription: step.Goal,
			Output:          out,
		}
		if err := e.store.AppendStep(task.ID, record); err != nil {
			return nil, &domain.StepError{Step: i + 1, Agent: string(step.Kind),
				Err: fmt.Errorf("persist step record: %w", err)}
		}
		metrics.CrewSteps.WithLabelValues(string(step.Kind)).Inc()
		log.Printf("[crew] task %s step %d/%d (%s) done",
			task.ID, i+1, len(e.catalog.Pipeline()), step.Kind)

		next := accum.Clone()
		next[step.ContextKey] = out
		accum = next
		lastOutput = out
	}

	result := domain.Payload{"final_output": lastOutput}
	if topic, ok := task.InputData[required]; ok {
		result[required] = topic
	}
	return result, nil
}
