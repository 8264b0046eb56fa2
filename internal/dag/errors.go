package dag

import (
	"fmt"
	"strings"
)

// DuplicateTaskError is returned when a task name is registered twice.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task '%s' is already registered", e.Name)
}

// UnknownTaskError is returned when the requested target was never registered.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task '%s' is not registered", e.Name)
}

// UnknownPrerequisiteError is returned when a reachable task names a
// prerequisite that was never registered.
type UnknownPrerequisiteError struct {
	Task         string
	Prerequisite string
}

func (e *UnknownPrerequisiteError) Error() string {
	return fmt.Sprintf("task '%s' depends on unknown task '%s'", e.Task, e.Prerequisite)
}

// CyclicDependencyError is returned when prerequisite edges loop back onto the
// current resolution path. Path starts and ends with the same task.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}
