package generate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alantheprice/appforge/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStrategy_SynthesizesPackageManifest(t *testing.T) {
	registry := newTestRegistry("")

	req := Request{
		Task: plan.FileTask{Path: plan.PackageJSONPath, Category: plan.CategoryConfig},
		Context: RunContext{
			ProjectName: "Todo Tracker",
			Packages:    []string{"next", "react", "react-dom", "tailwindcss", "typescript", "zustand"},
		},
	}

	file, err := registry.For(plan.CategoryConfig).Generate(context.Background(), req)
	require.NoError(t, err)

	var manifest struct {
		Name            string            `json:"name"`
		Scripts         map[string]string `json:"scripts"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(file.Content), &manifest))

	assert.Equal(t, "todo-tracker", manifest.Name)
	assert.Equal(t, "next dev", manifest.Scripts["dev"])
	assert.Contains(t, manifest.Dependencies, "next")
	assert.Contains(t, manifest.Dependencies, "zustand")
	assert.Contains(t, manifest.DevDependencies, "typescript")
	assert.Contains(t, manifest.DevDependencies, "tailwindcss")
	assert.NotContains(t, manifest.Dependencies, "typescript")
	assert.Equal(t, true, file.Metadata["synthesized"])
}

func TestConfigStrategy_SynthesisIsDeterministic(t *testing.T) {
	registry := newTestRegistry("")
	req := Request{
		Task:    plan.FileTask{Path: plan.PackageJSONPath, Category: plan.CategoryConfig},
		Context: RunContext{ProjectName: "demo", Packages: []string{"next", "react"}},
	}

	first, err := registry.For(plan.CategoryConfig).Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := registry.For(plan.CategoryConfig).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
}

func TestConfigStrategy_SynthesizesTSConfig(t *testing.T) {
	registry := newTestRegistry("")
	req := Request{Task: plan.FileTask{Path: plan.TSConfigPath, Category: plan.CategoryConfig}}

	var chunks []string
	file, err := registry.For(plan.CategoryConfig).GenerateStream(context.Background(), req, func(delta, accumulated string) {
		chunks = append(chunks, delta)
	})
	require.NoError(t, err)

	var tsconfig map[string]any
	require.NoError(t, json.Unmarshal([]byte(file.Content), &tsconfig))
	assert.Contains(t, tsconfig, "compilerOptions")

	// Synthesized content arrives as a single chunk
	require.Len(t, chunks, 1)
	assert.Equal(t, file.Content, chunks[0])
}

func TestConfigStrategy_OtherConfigsUseModel(t *testing.T) {
	reply := `{"content": "module.exports = { reactStrictMode: true }\n", "imports": [], "exports": []}`
	registry := newTestRegistry(reply)
	req := Request{Task: plan.FileTask{Path: plan.NextConfigPath, Category: plan.CategoryConfig}}

	file, err := registry.For(plan.CategoryConfig).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, file.Content, "reactStrictMode")
	assert.Nil(t, file.Metadata["synthesized"])
}

func TestSynthesizable(t *testing.T) {
	assert.True(t, Synthesizable(plan.PackageJSONPath))
	assert.True(t, Synthesizable(plan.TSConfigPath))
	assert.False(t, Synthesizable(plan.NextConfigPath))
	assert.False(t, Synthesizable("app/page.tsx"))
}
