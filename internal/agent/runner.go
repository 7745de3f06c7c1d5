package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/infra/metrics"
)

// Runner executes one named agent against input data: look up the agent's
// configuration, invoke the inference backend once, return its output.
// No retries here; retry policy belongs to the caller.
type Runner struct {
	catalog *Catalog
	backend domain.TextBackend
}

// NewRunner creates a runner over the given catalog and backend.
func NewRunner(catalog *Catalog, backend domain.TextBackend) *Runner {
	return &Runner{catalog: catalog, backend: backend}
}

// Run executes a single agent with the given input data and returns the raw
// output text. Fails with domain.ErrInvalidInput when the agent's required
// field is absent or empty.
func (r *Runner) Run(ctx context.Context, kind domain.AgentKind, input domain.Payload) (string, error) {
	def, ok := r.catalog.Definition(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAgentKind, kind)
	}

	if !hasField(input, def.RequiredField) {
		return "", fmt.Errorf("%w: %s needs %q", domain.ErrInvalidInput, kind, def.RequiredField)
	}

	prompt, err := renderTemplate(def.prompt, input)
	if err != nil {
		return "", err
	}
	return r.invoke(ctx, def, prompt)
}

// RunPrompt executes a single agent with an already-built prompt. Used by
// the crew executor, whose step prompts carry the accumulated context.
func (r *Runner) RunPrompt(ctx context.Context, kind domain.AgentKind, prompt string) (string, error) {
	def, ok := r.catalog.Definition(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAgentKind, kind)
	}
	return r.invoke(ctx, def, prompt)
}

// invoke makes the single backend call for an agent.
func (r *Runner) invoke(ctx context.Context, def Definition, prompt string) (string, error) {
	start := time.Now()
	out, err := r.backend.Generate(ctx, domain.GenerateRequest{
		Model:       def.Model,
		Prompt:      prompt,
		System:      def.System(),
		Temperature: def.Temperature,
	})
	metrics.InferenceLatency.WithLabelValues(string(def.Kind)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", def.Kind, err)
	}
	return out, nil
}

func hasField(input domain.Payload, field string) bool {
	v, ok := input[field]
	if !ok {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}
