package plan

import (
	"fmt"
	"strings"
)

// FileTask is one planned unit of generated output.
type FileTask struct {
	Path         string   `json:"path"`
	Category     Category `json:"category"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	Priority     int      `json:"priority"` // 0 = generate first, clamped to 0..10
}

// GenerationPlan is the full task graph plus its computed linear execution
// order.
type GenerationPlan struct {
	ProjectName     string            `json:"project_name"`
	Specification   string            `json:"specification,omitempty"`
	Tasks           []FileTask        `json:"tasks"`
	Architecture    map[string]string `json:"architecture"`
	Packages        []string          `json:"packages"`
	GenerationOrder []string          `json:"generation_order"`
}

// Task returns the task for path, or nil when the plan has none.
func (p *GenerationPlan) Task(path string) *FileTask {
	for i := range p.Tasks {
		if p.Tasks[i].Path == path {
			return &p.Tasks[i]
		}
	}
	return nil
}

// HasTask reports whether the plan contains a task for path.
func (p *GenerationPlan) HasTask(path string) bool {
	return p.Task(path) != nil
}

// HasPackage reports whether the plan's package list contains name.
func (p *GenerationPlan) HasPackage(name string) bool {
	for _, pkg := range p.Packages {
		if pkg == name {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants on the task set: unique paths,
// dependencies that reference in-plan paths only, and no self-dependencies.
func (p *GenerationPlan) Validate() error {
	seen := make(map[string]bool, len(p.Tasks))
	for _, task := range p.Tasks {
		if task.Path == "" {
			return fmt.Errorf("plan contains a task with an empty path")
		}
		if seen[task.Path] {
			return fmt.Errorf("plan contains duplicate path %q", task.Path)
		}
		seen[task.Path] = true
	}

	for _, task := range p.Tasks {
		for _, dep := range task.Dependencies {
			if dep == task.Path {
				return fmt.Errorf("task %q depends on itself", task.Path)
			}
			if !seen[dep] {
				return fmt.Errorf("task %q depends on %q which is not in the plan", task.Path, dep)
			}
		}
	}
	return nil
}

// normalize clamps priorities, normalizes categories and drops duplicate or
// empty dependency entries. Called once at plan ingestion.
func (p *GenerationPlan) normalize() {
	for i := range p.Tasks {
		task := &p.Tasks[i]
		task.Path = strings.TrimPrefix(strings.TrimSpace(task.Path), "./")
		task.Category = ParseCategory(string(task.Category))
		if task.Priority < 0 {
			task.Priority = 0
		}
		if task.Priority > 10 {
			task.Priority = 10
		}

		deps := task.Dependencies[:0]
		seen := make(map[string]bool, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			dep = strings.TrimPrefix(strings.TrimSpace(dep), "./")
			if dep == "" || dep == task.Path || seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
		}
		task.Dependencies = deps
	}

	if p.Architecture == nil {
		p.Architecture = make(map[string]string)
	}
}

// IsTypeScript reports whether any planned path uses a TypeScript suffix.
func (p *GenerationPlan) IsTypeScript() bool {
	for _, task := range p.Tasks {
		if strings.HasSuffix(task.Path, ".ts") || strings.HasSuffix(task.Path, ".tsx") {
			return true
		}
	}
	return false
}
