// Package agent defines the fixed agent catalog and runs agents against
// the inference backend: single named agents and the trend-to-post crew
// pipeline. The catalog is static configuration, validated exhaustively at
// load time so dispatch never meets an unknown kind.
package agent

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/trendscout-net/trendscout/internal/domain"
)

// Definition describes one single-agent kind: its persona, sampling
// parameters, the input field it requires, and its prompt template.
type Definition struct {
	Kind          domain.AgentKind
	Name          string
	Role          string
	Goal          string
	Backstory     string
	Model         string // empty = backend default
	Temperature   float64
	RequiredField string

	prompt *template.Template
}

// System composes the system prompt from the agent's persona.
func (d Definition) System() string {
	return fmt.Sprintf("You are %s, a %s. %s Your goal: %s", d.Name, d.Role, d.Backstory, d.Goal)
}

// PipelineStep is one stage of the crew pipeline. Goal is the step's defined
// goal text (stored verbatim on each step record); the prompt template sees
// the accumulated context, and the step's output is merged back into the
// context under ContextKey for later steps.
type PipelineStep struct {
	Kind       domain.AgentKind
	Goal       string
	ContextKey string

	prompt *template.Template
}

// Catalog is the fixed set of runnable agents plus the crew pipeline.
// Not user-extensible at runtime.
type Catalog struct {
	defs         map[domain.AgentKind]Definition
	pipeline     []PipelineStep
	crewKind     domain.AgentKind
	crewRequired string
}

// Known reports whether kind is a recognized agent or crew kind.
func (c *Catalog) Known(kind domain.AgentKind) bool {
	if kind == c.crewKind {
		return true
	}
	_, ok := c.defs[kind]
	return ok
}

// Definition returns the single-agent definition for kind.
func (c *Catalog) Definition(kind domain.AgentKind) (Definition, bool) {
	d, ok := c.defs[kind]
	return d, ok
}

// Pipeline returns the crew steps in execution order.
func (c *Catalog) Pipeline() []PipelineStep {
	return c.pipeline
}

// CrewRequiredField is the input_data key the crew pipeline needs.
func (c *Catalog) CrewRequiredField() string {
	return c.crewRequired
}

// RequiredField returns the input_data key a kind needs at submission.
func (c *Catalog) RequiredField(kind domain.AgentKind) (string, bool) {
	if kind == c.crewKind {
		return c.crewRequired, true
	}
	if d, ok := c.defs[kind]; ok {
		return d.RequiredField, true
	}
	return "", false
}

// Kinds returns every recognized kind, single agents first.
func (c *Catalog) Kinds() []domain.AgentKind {
	kinds := make([]domain.AgentKind, 0, len(c.defs)+1)
	for _, k := range []domain.AgentKind{
		domain.AgentTrendAnalyzer, domain.AgentContentGenerator, domain.AgentScheduler,
	} {
		if _, ok := c.defs[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return append(kinds, c.crewKind)
}

// DefaultCatalog builds the trendscout agents and the trend-to-post
// pipeline. Every definition and step is validated here; a bad catalog is a
// startup error, never a dispatch-time surprise.
func DefaultCatalog() (*Catalog, error) {
	c := &Catalog{
		defs:         make(map[domain.AgentKind]Definition),
		crewKind:     domain.AgentTrendToPostCrew,
		crewRequired: "topic",
	}

	defs := []Definition{
		{
			Kind: domain.AgentTrendAnalyzer,
			Name: "Trend Analyzer",
			Role: "Trend Analysis Expert",
			Goal: "Identify and analyze trending topics from social media data",
			Backstory: "Expert at pattern recognition and trend identification, " +
				"specializing in social media content analysis and discovering " +
				"emerging trends across platforms.",
			Temperature:   0.7,
			RequiredField: "query",
		},
		{
			Kind: domain.AgentContentGenerator,
			Name: "Content Generator",
			Role: "Creative Content Strategist",
			Goal: "Generate engaging content ideas based on trending topics",
			Backstory: "Creative expert specializing in transforming trending topics " +
				"into engaging content ideas, with deep understanding of " +
				"audience engagement and viral content mechanics.",
			Temperature:   0.8,
			RequiredField: "query",
		},
		{
			Kind: domain.AgentScheduler,
			Name: "Scheduler",
			Role: "Scheduling Optimization Expert",
			Goal: "Determine optimal publishing times for content across platforms",
			Backstory: "Analytics expert specializing in content scheduling optimization, " +
				"with deep understanding of platform-specific engagement patterns " +
				"and audience behavior across different time zones.",
			Temperature:   0.6,
			RequiredField: "query",
		},
	}

	prompts := map[domain.AgentKind]string{
		domain.AgentTrendAnalyzer: `Analyze the following topic or query to identify current trends, key insights, and potential content angles:
Query: "{{.query}}"

Provide:
1. A list of identified trends related to the query.
2. Detailed analysis of each trend.
3. Actionable recommendations or content ideas based on these findings.

Format the response as a structured analysis.`,
		domain.AgentContentGenerator: `Generate engaging content ideas based on the following topic or trends:
Topic/Trends: "{{.query}}"

Consider various content types (e.g., blog posts, social media updates, video scripts) and target platforms.

Provide:
1. A list of creative content ideas.
2. A brief content strategy overview.
3. Relevant hashtags.
4. Tips for maximizing engagement.

Format the response as a structured output.`,
		domain.AgentScheduler: `Create an optimal publishing schedule for the following content or campaign:
Content/Campaign Description: "{{.query}}"

Consider target platforms (e.g., Twitter, Instagram, Blog), target audience, and general best practices for engagement.

Provide:
1. A detailed publishing schedule with suggested timings.
2. Rationale for your scheduling decisions.
3. Optimization recommendations.

Format the response as a structured output.`,
	}

	for _, d := range defs {
		text, ok := prompts[d.Kind]
		if !ok {
			return nil, fmt.Errorf("agent %s: no prompt defined", d.Kind)
		}
		tmpl, err := template.New(string(d.Kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("agent %s: parse prompt: %w", d.Kind, err)
		}
		d.prompt = tmpl
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		c.defs[d.Kind] = d
	}

	steps := []struct {
		kind       domain.AgentKind
		goal       string
		contextKey string
		prompt     string
	}{
		{
			kind:       domain.AgentTrendAnalyzer,
			goal:       "Analyze current trends for the topic and identify 2-3 key actionable insights or sub-themes.",
			contextKey: "trend_analysis",
			prompt: `Analyze current trends for the topic: {{.topic}}.
Focus on identifying 2-3 key actionable insights or sub-themes that are currently popular or emerging.

Expected output: a concise summary of 2-3 key trends, popular keywords, and any relevant hashtags or platforms, directly usable for content creation.`,
		},
		{
			kind:       domain.AgentContentGenerator,
			goal:       "Generate 1 engaging social media post idea based on the trend analysis.",
			contextKey: "post",
			prompt: `Based on the following trend analysis, generate 1 engaging social media post idea.
The post should be creative and tailored to the identified trends.

Trend analysis:
{{.trend_analysis}}

Expected output: a single, well-crafted social media post including text, and suggestions for visuals if applicable. Ensure the post is ready for publishing.`,
		},
		{
			kind:       domain.AgentScheduler,
			goal:       "Determine the optimal posting time and platform to maximize engagement.",
			contextKey: "schedule",
			prompt: `Based on the generated social media post and the initial trend analysis, determine the optimal posting time and platform to maximize engagement.

Post:
{{.post}}

Trend analysis:
{{.trend_analysis}}

Expected output: a specific recommendation for the best day and time to post, and the most suitable platform(s), with a brief justification.`,
		},
	}

	seenKeys := make(map[string]bool)
	for i, s := range steps {
		if _, ok := c.defs[s.kind]; !ok {
			return nil, fmt.Errorf("pipeline step %d: unknown agent %s", i+1, s.kind)
		}
		if s.contextKey == "" || seenKeys[s.contextKey] {
			return nil, fmt.Errorf("pipeline step %d: missing or duplicate context key %q", i+1, s.contextKey)
		}
		seenKeys[s.contextKey] = true
		tmpl, err := template.New(fmt.Sprintf("step-%d", i+1)).Parse(s.prompt)
		if err != nil {
			return nil, fmt.Errorf("pipeline step %d: parse prompt: %w", i+1, err)
		}
		c.pipeline = append(c.pipeline, PipelineStep{
			Kind:       s.kind,
			Goal:       s.goal,
			ContextKey: s.contextKey,
			prompt:     tmpl,
		})
	}
	if len(c.pipeline) == 0 {
		return nil, fmt.Errorf("crew pipeline is empty")
	}

	return c, nil
}

func validateDefinition(d Definition) error {
	switch {
	case d.Kind == "":
		return fmt.Errorf("agent definition without kind")
	case d.Kind.IsCrew():
		return fmt.Errorf("agent %s: crew kind cannot have a single-agent definition", d.Kind)
	case d.Name == "" || d.Role == "" || d.Goal == "":
		return fmt.Errorf("agent %s: name, role and goal are required", d.Kind)
	case d.RequiredField == "":
		return fmt.Errorf("agent %s: required input field not set", d.Kind)
	case d.prompt == nil:
		return fmt.Errorf("agent %s: prompt not set", d.Kind)
	}
	return nil
}

// renderTemplate executes a prompt template against the payload.
func renderTemplate(tmpl *template.Template, data domain.Payload) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any(data)); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
