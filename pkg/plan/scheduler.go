package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle indicates the dependency graph contains a cycle. A cyclic plan
// is malformed and fails loudly rather than silently dropping the tasks
// caught in the cycle.
var ErrCycle = errors.New("dependency cycle in generation plan")

// ComputeOrder computes a deterministic topological execution order over
// tasks using Kahn's algorithm. Among ready tasks, lower priority values
// run first; ties break by original plan index.
func ComputeOrder(tasks []FileTask) ([]string, error) {
	index := make(map[string]int, len(tasks)) // path -> original index
	for i, task := range tasks {
		index[task.Path] = i
	}

	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for _, task := range tasks {
		inDegree[task.Path] = len(task.Dependencies)
		for _, dep := range task.Dependencies {
			dependents[dep] = append(dependents[dep], task.Path)
		}
	}

	// Seed the ready queue with zero in-degree tasks.
	var ready []string
	for _, task := range tasks {
		if inDegree[task.Path] == 0 {
			ready = append(ready, task.Path)
		}
	}

	less := func(a, b string) bool {
		ta, tb := tasks[index[a]], tasks[index[b]]
		if ta.Priority != tb.Priority {
			return ta.Priority < tb.Priority
		}
		return index[a] < index[b]
	}

	order := make([]string, 0, len(tasks))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(tasks) {
		var unresolved []string
		for _, task := range tasks {
			if inDegree[task.Path] > 0 {
				unresolved = append(unresolved, task.Path)
			}
		}
		sort.Strings(unresolved)
		return nil, fmt.Errorf("%w: unresolved tasks: %s", ErrCycle, strings.Join(unresolved, ", "))
	}

	return order, nil
}
