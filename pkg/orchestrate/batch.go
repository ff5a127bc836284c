package orchestrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/plan"
)

// runBatched groups independent tasks into dependency-safe batches of at
// most cfg.BatchSize and dispatches each batch concurrently. A task only
// enters a batch once every dependency is in the completed set, so a
// batch never contains a task together with one of its dependencies.
// The accumulated file list is appended to only between batches.
func (o *Orchestrator) runBatched(ctx context.Context, p *plan.GenerationPlan, emit events.Emitter) (*Result, error) {
	runCtx := runContextFor(p)
	result := &Result{Files: make([]*generate.GeneratedFile, 0, len(p.GenerationOrder))}
	total := len(p.GenerationOrder)

	completed := make(map[string]bool, total)
	remaining := append([]string(nil), p.GenerationOrder...)

	safeEmit := emitLocked(emit)

	batchIndex := 0
	dispatched := 0
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled after %d files: %w", len(result.Files), err)
		}

		batch, rest := nextBatch(p, remaining, completed, o.cfg.BatchSize)
		if len(batch) == 0 {
			// The order is topological, so an empty batch means every
			// remaining task is blocked behind a failed file. Record
			// them as skipped and stop.
			for _, filePath := range rest {
				err := fmt.Errorf("skipped: a dependency of %s failed", filePath)
				result.Failures = append(result.Failures, FileFailure{Path: filePath, Err: err})
				safeEmit(events.EventTypeFileError, events.FileErrorEvent(filePath, err))
			}
			break
		}
		remaining = rest

		type outcome struct {
			task plan.FileTask
			file *generate.GeneratedFile
			err  error
		}
		outcomes := make([]outcome, len(batch))

		var wg sync.WaitGroup
		for i, task := range batch {
			safeEmit(events.EventTypeFileStart, events.FileStartEvent(task.Path, string(task.Category), dispatched+i, total))
		}
		for i, task := range batch {
			wg.Add(1)
			go func(i int, task plan.FileTask) {
				defer wg.Done()
				file, err := o.generateOne(ctx, task, result.Files, runCtx, safeEmit)
				outcomes[i] = outcome{task: task, file: file, err: err}
			}(i, task)
		}
		wg.Wait()
		dispatched += len(batch)

		// Results are folded in on the orchestrating goroutine only.
		for _, out := range outcomes {
			if out.err != nil {
				if runFatal(out.err) {
					safeEmit(events.EventTypeFileError, events.FileErrorEvent(out.task.Path, out.err))
					return result, out.err
				}
				o.logger.LogError(fmt.Errorf("generation of %s failed, continuing: %w", out.task.Path, out.err))
				result.Failures = append(result.Failures, FileFailure{Path: out.task.Path, Err: out.err})
				safeEmit(events.EventTypeFileError, events.FileErrorEvent(out.task.Path, out.err))
				continue
			}
			completed[out.task.Path] = true
			result.Files = append(result.Files, out.file)
			safeEmit(events.EventTypeFileComplete, events.FileCompleteEvent(out.file.Path, out.file.Content))
		}

		batchIndex++
		safeEmit(events.EventTypeBatchComplete, events.BatchCompleteEvent(batchIndex, len(result.Files), total))
	}

	return result, nil
}

// nextBatch takes up to max ready tasks off the remaining order. A task
// is ready when all its dependencies are in the completed set, which
// keeps a task and its dependency out of the same batch.
func nextBatch(p *plan.GenerationPlan, remaining []string, completed map[string]bool, max int) ([]plan.FileTask, []string) {
	var batch []plan.FileTask
	var rest []string

	for _, filePath := range remaining {
		task := p.Task(filePath)
		if task == nil {
			continue
		}
		if len(batch) >= max || !depsSatisfied(task, completed) {
			rest = append(rest, filePath)
			continue
		}
		batch = append(batch, *task)
	}
	return batch, rest
}

func depsSatisfied(task *plan.FileTask, completed map[string]bool) bool {
	for _, dep := range task.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}
