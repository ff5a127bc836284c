package plan

import (
	"context"
	"testing"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient returns canned responses for planner tests.
type stubClient struct {
	response string
	err      error
}

func (s *stubClient) SendChatRequest(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := &llm.ChatResponse{Choices: make([]llm.Choice, 1)}
	resp.Choices[0].Message.Content = s.response
	return resp, nil
}

func (s *stubClient) SendChatRequestStream(ctx context.Context, messages []llm.Message, callback llm.StreamCallback) (*llm.ChatResponse, error) {
	if callback != nil {
		callback(s.response)
	}
	return s.SendChatRequest(ctx, messages)
}

func (s *stubClient) CheckConnection(ctx context.Context) error { return nil }
func (s *stubClient) SetModel(model string) error               { return nil }
func (s *stubClient) GetModel() string                          { return "stub-model" }
func (s *stubClient) GetProvider() string                       { return "stub" }
func (s *stubClient) Close() error                              { return nil }

const validPlanJSON = `{
  "project_name": "todo-app",
  "tasks": [
    {"path": "lib/types.ts", "category": "types", "description": "Shared types", "dependencies": [], "priority": 0},
    {"path": "components/TodoList.tsx", "category": "components", "description": "Todo list", "dependencies": ["lib/types.ts"], "priority": 2},
    {"path": "app/page.tsx", "category": "page", "description": "Home page", "dependencies": ["components/TodoList.tsx"], "priority": 3}
  ],
  "architecture": {"styling": "tailwind"},
  "packages": ["next", "react"]
}`

func newTestPlanner(response string) *Planner {
	return NewPlanner(&stubClient{response: response}, config.DefaultConfig())
}

func TestCreatePlan(t *testing.T) {
	planner := newTestPlanner("```json\n" + validPlanJSON + "\n```")

	p, err := planner.CreatePlan(context.Background(), "a todo app", "web", nil)
	require.NoError(t, err)

	assert.Equal(t, "todo-app", p.ProjectName)
	// Plural categories normalized onto the closed set
	assert.Equal(t, CategoryType, p.Task("lib/types.ts").Category)
	assert.Equal(t, CategoryComponent, p.Task("components/TodoList.tsx").Category)

	// Repair injected the required tasks and package defaults
	assert.True(t, p.HasTask(ReadmePath))
	assert.True(t, p.HasTask(PackageJSONPath))
	assert.True(t, p.HasPackage("typescript"))

	// Order covers every task and respects dependencies
	require.Len(t, p.GenerationOrder, len(p.Tasks))
	position := make(map[string]int)
	for i, path := range p.GenerationOrder {
		position[path] = i
	}
	assert.Less(t, position["lib/types.ts"], position["components/TodoList.tsx"])
	assert.Less(t, position["components/TodoList.tsx"], position["app/page.tsx"])
}

func TestCreatePlan_MalformedJSON(t *testing.T) {
	planner := newTestPlanner("here is your plan: {broken json")

	_, err := planner.CreatePlan(context.Background(), "an app", "web", nil)
	require.Error(t, err)

	var planErr *PlanningError
	assert.ErrorAs(t, err, &planErr)
}

func TestCreatePlan_EmptyResponse(t *testing.T) {
	planner := newTestPlanner("")

	_, err := planner.CreatePlan(context.Background(), "an app", "web", nil)
	var planErr *PlanningError
	require.ErrorAs(t, err, &planErr)
}

func TestCreatePlan_CyclicPlanFails(t *testing.T) {
	cyclic := `{
  "tasks": [
    {"path": "a.ts", "category": "utility", "dependencies": ["b.ts"], "priority": 1},
    {"path": "b.ts", "category": "utility", "dependencies": ["a.ts"], "priority": 1}
  ]
}`
	planner := newTestPlanner(cyclic)

	_, err := planner.CreatePlan(context.Background(), "an app", "web", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestCreatePlan_UnknownDependencyFails(t *testing.T) {
	bad := `{
  "tasks": [
    {"path": "a.ts", "category": "utility", "dependencies": ["missing.ts"], "priority": 1}
  ]
}`
	planner := newTestPlanner(bad)

	_, err := planner.CreatePlan(context.Background(), "an app", "web", nil)
	var planErr *PlanningError
	require.ErrorAs(t, err, &planErr)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "prose\n```json\n{\"a\":1}\n```\nmore", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"raw json", `{"a":1}`, `{"a":1}`},
		{"embedded json", `The plan: {"a":1} hope that helps`, `{"a":1}`},
		{"no json", "sorry, I cannot help", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractJSON(tc.input))
		})
	}
}
