// Package orchestrate walks a generation plan's execution order,
// dispatches each file task to its category strategy and collects the
// generated files, tolerating per-file failures.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/plan"
	"github.com/alantheprice/appforge/pkg/utils"
)

// FileFailure records one non-fatal per-file generation failure.
type FileFailure struct {
	Path string
	Err  error
}

// Result is the outcome of one orchestrated run.
type Result struct {
	Files    []*generate.GeneratedFile
	Failures []FileFailure
}

// File returns the generated file for a path, or nil.
func (r *Result) File(filePath string) *generate.GeneratedFile {
	for _, f := range r.Files {
		if f.Path == filePath {
			return f
		}
	}
	return nil
}

// Orchestrator runs a plan's tasks through the strategy registry.
type Orchestrator struct {
	registry *generate.Registry
	cfg      *config.Config
	logger   *utils.Logger
}

// New creates an orchestrator over the given strategy registry.
func New(registry *generate.Registry, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		cfg:      cfg,
		logger:   utils.GetLogger(cfg.Echo),
	}
}

// Run walks the plan's generation order and dispatches every task to its
// category strategy, emitting progress events along the way. A failing
// file is recorded and skipped; the run only aborts on run-fatal errors
// (authentication, context cancellation). Partial results are returned
// alongside a fatal error so callers can persist what was produced.
func (o *Orchestrator) Run(ctx context.Context, p *plan.GenerationPlan, emit events.Emitter) (*Result, error) {
	if emit == nil {
		emit = func(string, any) {}
	}
	if len(p.GenerationOrder) == 0 {
		return &Result{}, nil
	}
	if o.cfg.BatchSize > 1 {
		return o.runBatched(ctx, p, emit)
	}

	runCtx := runContextFor(p)
	result := &Result{Files: make([]*generate.GeneratedFile, 0, len(p.GenerationOrder))}
	total := len(p.GenerationOrder)

	for i, filePath := range p.GenerationOrder {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled before %s: %w", filePath, err)
		}
		task := p.Task(filePath)
		if task == nil {
			result.Failures = append(result.Failures, FileFailure{Path: filePath, Err: fmt.Errorf("no task for ordered path %s", filePath)})
			continue
		}

		emit(events.EventTypeFileStart, events.FileStartEvent(task.Path, string(task.Category), i, total))

		file, err := o.generateOne(ctx, *task, result.Files, runCtx, emit)
		if err != nil {
			if runFatal(err) {
				emit(events.EventTypeFileError, events.FileErrorEvent(task.Path, err))
				return result, err
			}
			o.logger.LogError(fmt.Errorf("generation of %s failed, continuing: %w", task.Path, err))
			result.Failures = append(result.Failures, FileFailure{Path: task.Path, Err: err})
			emit(events.EventTypeFileError, events.FileErrorEvent(task.Path, err))
			continue
		}

		result.Files = append(result.Files, file)
		emit(events.EventTypeFileComplete, events.FileCompleteEvent(file.Path, file.Content))
	}

	return result, nil
}

func (o *Orchestrator) generateOne(ctx context.Context, task plan.FileTask, completed []*generate.GeneratedFile, runCtx generate.RunContext, emit events.Emitter) (*generate.GeneratedFile, error) {
	req := generate.Request{
		Task:         task,
		RelatedFiles: relatedFiles(task, completed),
		Context:      runCtx,
	}
	strategy := o.registry.For(task.Category)

	if !o.cfg.EnableStreaming {
		return strategy.Generate(ctx, req)
	}
	return strategy.GenerateStream(ctx, req, func(delta, accumulated string) {
		emit(events.EventTypeFileChunk, events.FileChunkEvent(task.Path, delta, accumulated))
	})
}

// runFatal reports whether an error aborts the whole run rather than a
// single file. Auth failures and cancellation are not recoverable by
// skipping to the next task.
func runFatal(err error) bool {
	return errors.Is(err, llm.ErrAuth) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func runContextFor(p *plan.GenerationPlan) generate.RunContext {
	return generate.RunContext{
		ProjectName:   p.ProjectName,
		Specification: p.Specification,
		Architecture:  p.Architecture,
		Packages:      p.Packages,
	}
}

// relatedFiles selects the already-generated files worth including as
// context for a task: declared dependencies, files in the same
// directory, files sharing the task's base name, layouts whose
// directory prefixes the task's path, and type definitions when the
// task renders UI.
func relatedFiles(task plan.FileTask, completed []*generate.GeneratedFile) []*generate.GeneratedFile {
	declared := make(map[string]bool, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		declared[dep] = true
	}

	taskDir := path.Dir(task.Path)
	taskBase := baseName(task.Path)
	wantsTypes := task.Category == plan.CategoryPage || task.Category == plan.CategoryComponent ||
		task.Category == plan.CategoryLayout

	var related []*generate.GeneratedFile
	for _, file := range completed {
		switch {
		case declared[file.Path]:
		case path.Dir(file.Path) == taskDir:
		case baseName(file.Path) == taskBase:
		case file.Category == plan.CategoryLayout && strings.HasPrefix(taskDir+"/", path.Dir(file.Path)+"/"):
		case wantsTypes && file.Category == plan.CategoryType:
		default:
			continue
		}
		related = append(related, file)
	}
	return related
}

func baseName(filePath string) string {
	base := path.Base(filePath)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// emitLocked wraps an emitter so concurrent strategy goroutines within a
// batch can share it safely.
func emitLocked(emit events.Emitter) events.Emitter {
	var mu sync.Mutex
	return func(eventType string, data any) {
		mu.Lock()
		defer mu.Unlock()
		emit(eventType, data)
	}
}
