package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair_InjectsRequiredTasks(t *testing.T) {
	p := &GenerationPlan{
		Tasks: []FileTask{
			{Path: "app/page.tsx", Category: CategoryPage, Priority: 2},
		},
	}

	Repair(p)

	assert.True(t, p.HasTask(ReadmePath))
	assert.True(t, p.HasTask(RootLayoutPath))
	assert.True(t, p.HasTask(GlobalStylePath))
	assert.True(t, p.HasTask(NextConfigPath))
	assert.True(t, p.HasTask(PackageJSONPath))

	// The package manifest depends on the documentation task
	manifest := p.Task(PackageJSONPath)
	require.NotNil(t, manifest)
	assert.Contains(t, manifest.Dependencies, ReadmePath)

	assert.True(t, p.HasPackage("next"))
	assert.True(t, p.HasPackage("react"))
	assert.True(t, p.HasPackage("react-dom"))
	assert.True(t, p.HasPackage("tailwindcss"))
}

func TestRepair_PreservesExistingTasks(t *testing.T) {
	existing := FileTask{Path: ReadmePath, Category: CategoryDocumentation, Description: "custom readme", Priority: 4}
	p := &GenerationPlan{Tasks: []FileTask{existing}}

	Repair(p)

	task := p.Task(ReadmePath)
	require.NotNil(t, task)
	assert.Equal(t, "custom readme", task.Description)
	assert.Equal(t, 4, task.Priority)
}

func TestRepair_TypeScriptToolchain(t *testing.T) {
	withTS := &GenerationPlan{Tasks: []FileTask{{Path: "app/page.tsx", Category: CategoryPage}}}
	Repair(withTS)
	assert.True(t, withTS.HasPackage("typescript"))
	assert.True(t, withTS.HasPackage("@types/react"))

	withoutTS := &GenerationPlan{Tasks: []FileTask{{Path: "index.js", Category: CategoryPage}}}
	Repair(withoutTS)
	assert.False(t, withoutTS.HasPackage("typescript"))
}

func TestRepair_Idempotent(t *testing.T) {
	p := &GenerationPlan{
		Tasks: []FileTask{
			{Path: "app/page.tsx", Category: CategoryPage, Priority: 2},
			{Path: "lib/db.ts", Category: CategoryUtility, Priority: 1},
		},
		Packages: []string{"zod"},
	}

	Repair(p)
	afterFirst := *p
	firstTasks := append([]FileTask(nil), p.Tasks...)
	firstPackages := append([]string(nil), p.Packages...)

	Repair(p)

	assert.Equal(t, firstTasks, p.Tasks)
	assert.Equal(t, firstPackages, p.Packages)
	assert.Equal(t, afterFirst.Architecture, p.Architecture)
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"page":          CategoryPage,
		"Pages":         CategoryPage,
		"components":    CategoryComponent,
		"api-route":     CategoryAPI,
		"endpoint":      CategoryAPI,
		"utils":         CategoryUtility,
		"helper":        CategoryUtility,
		"hooks":         CategoryHook,
		"types":         CategoryType,
		"interface":     CategoryType,
		"configuration": CategoryConfig,
		"styles":        CategoryStyle,
		"css":           CategoryStyle,
		"docs":          CategoryDocumentation,
		"readme":        CategoryDocumentation,
		"middleware":    CategoryMiddleware,
		"error":         CategoryErrorPage,
		"404":           CategoryNotFound,
		"":              CategoryUtility,
		"blueprint":     CategoryUtility,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseCategory(input), "input %q", input)
	}
}

func TestPlanValidate(t *testing.T) {
	valid := &GenerationPlan{Tasks: []FileTask{
		{Path: "a.ts"},
		{Path: "b.ts", Dependencies: []string{"a.ts"}},
	}}
	assert.NoError(t, valid.Validate())

	selfDep := &GenerationPlan{Tasks: []FileTask{
		{Path: "a.ts", Dependencies: []string{"a.ts"}},
	}}
	assert.Error(t, selfDep.Validate())

	danglingDep := &GenerationPlan{Tasks: []FileTask{
		{Path: "a.ts", Dependencies: []string{"missing.ts"}},
	}}
	assert.Error(t, danglingDep.Validate())

	duplicate := &GenerationPlan{Tasks: []FileTask{
		{Path: "a.ts"},
		{Path: "a.ts"},
	}}
	assert.Error(t, duplicate.Validate())
}
