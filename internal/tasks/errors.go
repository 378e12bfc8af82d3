package tasks

import (
	"fmt"
	"strings"
)

// CycleError reports that the dependency relation is not acyclic.
type CycleError struct {
	Tasks []string // tasks involved in the cycle, sorted
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving tasks: %s", strings.Join(e.Tasks, ", "))
}

// UnknownDependencyError reports a dependency on a task that is not defined.
type UnknownDependencyError struct {
	Task       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.Task, e.Dependency)
}

// UnknownTaskError reports a requested root task that is not defined.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %q not found", e.Name)
}
