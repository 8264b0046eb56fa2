package config

import "github.com/hashicorp/hcl/v2"

// DefaultTarget is the task run when neither the command line nor the
// buildfile names one.
const DefaultTarget = "default"

// Model is the unified representation of a whole buildfile.
type Model struct {
	// Root is the absolute project root every pattern is relative to.
	Root    string
	Layout  Layout
	Default string
	// Tasks are kept in declaration order.
	Tasks   []*Task
	Watches []*Watch
	Server  *Server
}

// Task returns the task with the given name, or nil.
func (m *Model) Task(name string) *Task {
	for _, t := range m.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Target returns the task to run when none was requested explicitly.
func (m *Model) Target() string {
	if m.Default != "" {
		return m.Default
	}
	return DefaultTarget
}

// Layout names the project's conventional directories.
type Layout struct {
	Source   string
	Rendered string
	Build    string
	Dist     string
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Name        string
	Description string
	DependsOn   []string
	Action      string
	Inputs      []string
	Exclude     []string
	// Watch marks the task as the development entry point: after a successful
	// build the server and watch loop keep running.
	Watch bool
	// Arguments is the raw arguments block, nil when absent.
	Arguments hcl.Body
	DeclRange hcl.Range
}

// WatchKind distinguishes bindings that run tasks from pure reload bindings.
type WatchKind int

const (
	WatchTasks WatchKind = iota
	WatchReload
)

func (k WatchKind) String() string {
	if k == WatchReload {
		return "reload"
	}
	return "watch"
}

// Watch is a `watch` or `reload` block.
type Watch struct {
	Name     string
	Kind     WatchKind
	Patterns []string
	Exclude  []string
	// Tasks run in order when a matching file changes. Empty for reload
	// bindings.
	Tasks []string
	// Reload sends a reload signal once Tasks succeeded.
	Reload bool
}

// Server configures the development server.
type Server struct {
	Listen    string
	Root      string
	StartPath string
}
