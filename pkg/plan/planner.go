package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/utils"
)

// PlanningError marks a run-fatal failure to obtain a usable plan from the
// model.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// Planner turns an application specification into a GenerationPlan.
type Planner struct {
	client llm.ClientInterface
	cfg    *config.Config
}

// NewPlanner creates a planner backed by the given model client.
func NewPlanner(client llm.ClientInterface, cfg *config.Config) *Planner {
	return &Planner{client: client, cfg: cfg}
}

// CreatePlan asks the model for a file-level plan, parses and normalizes
// it, runs the repair pass and computes the execution order. Any failure
// to produce a valid acyclic plan is a PlanningError, fatal to the run.
func (p *Planner) CreatePlan(ctx context.Context, specification, projectCategory string, preferences map[string]string) (*GenerationPlan, error) {
	logger := utils.GetLogger(p.cfg.Echo)
	logger.LogProcessStep(fmt.Sprintf("Planning with model %s", p.client.GetModel()))

	messages := buildPlanMessages(specification, projectCategory, preferences)
	resp, err := p.client.SendChatRequest(ctx, messages)
	if err != nil {
		return nil, &PlanningError{Reason: "model request failed", Err: err}
	}

	response := resp.Content()
	if response == "" {
		return nil, &PlanningError{Reason: "model returned an empty response"}
	}

	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, &PlanningError{Reason: "model response did not contain plan JSON"}
	}

	var plan GenerationPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, &PlanningError{Reason: "could not parse plan JSON", Err: err}
	}
	if len(plan.Tasks) == 0 {
		return nil, &PlanningError{Reason: "plan contains no tasks"}
	}

	plan.Specification = specification
	plan.normalize()
	Repair(&plan)

	if err := plan.Validate(); err != nil {
		return nil, &PlanningError{Reason: "plan failed validation", Err: err}
	}

	order, err := ComputeOrder(plan.Tasks)
	if err != nil {
		return nil, &PlanningError{Reason: "plan has no valid execution order", Err: err}
	}
	plan.GenerationOrder = order

	logger.LogProcessStep(fmt.Sprintf("Plan ready: %d files, %d packages", len(plan.Tasks), len(plan.Packages)))
	return &plan, nil
}

// buildPlanMessages constructs the planning conversation.
func buildPlanMessages(specification, projectCategory string, preferences map[string]string) []llm.Message {
	var prefs strings.Builder
	for key, value := range preferences {
		fmt.Fprintf(&prefs, "- %s: %s\n", key, value)
	}

	system := `You are an application architect. Given an application description,
produce a JSON plan of every source file to generate. Respond with JSON only:
{
  "project_name": "...",
  "tasks": [
    {"path": "app/page.tsx", "category": "page", "description": "...",
     "dependencies": ["lib/types.ts"], "priority": 1}
  ],
  "architecture": {"styling": "...", "state_management": "..."},
  "packages": ["next", "react"]
}
Categories: page, layout, component, api, utility, hook, type, config, style,
static, documentation, middleware, loading, error-page, not-found.
Dependencies must name other paths in the plan. Priority 0 runs first, 10 last.`

	user := fmt.Sprintf("Project category: %s\n\nApplication description:\n%s", projectCategory, specification)
	if prefs.Len() > 0 {
		user += "\n\nUser preferences:\n" + prefs.String()
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// ExtractJSON pulls a JSON document out of a model reply, tolerating
// markdown code fences around it.
func ExtractJSON(response string) string {
	if strings.Contains(response, "```json") {
		parts := strings.SplitN(response, "```json", 2)
		jsonPart := parts[1]
		if end := strings.Index(jsonPart, "```"); end > 0 {
			return strings.TrimSpace(jsonPart[:end])
		}
		return strings.TrimSpace(jsonPart)
	}
	if strings.Contains(response, "```") {
		parts := strings.SplitN(response, "```", 3)
		if len(parts) >= 2 {
			candidate := strings.TrimSpace(parts[1])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	trimmed := strings.TrimSpace(response)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return ""
}
