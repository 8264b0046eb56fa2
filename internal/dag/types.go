package dag

import (
	"context"
	"sync"
)

// Action is the work performed by a task. A nil Action marks a pure
// aggregation task that succeeds once its prerequisites succeed.
type Action func(ctx context.Context) error

// Task is the registered definition of a named unit of build work.
type Task struct {
	Name          string
	Description   string
	Prerequisites []string
	Action        Action
}

// Graph is the task registry. All operations are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	// index maps a task name to its position in tasks.
	index map[string]int
	tasks []*Task
}

// NodeState is the per-run lifecycle state of a planned task.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
	Skipped
)

func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
