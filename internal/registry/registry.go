package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/pipegrid/internal/glob"
)

// Module is the interface that all built-in modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Invocation carries what an action needs to know about the task it runs for.
type Invocation struct {
	// Task is the name of the task being executed.
	Task string
	// Root is the absolute project root.
	Root string
	// Inputs lazily resolves the task's input globs. It walks the filesystem
	// each time it is ranged over.
	Inputs glob.Sequence
	// Env is the environment passed to child processes, in "KEY=value" form.
	Env []string
}

// ActionFunc is the signature of every action. input is the value returned by
// NewInput after the task's arguments block was decoded into it, or nil.
type ActionFunc func(ctx context.Context, inv *Invocation, input any) error

// RegisteredAction holds the compiled Go parts of an action.
type RegisteredAction struct {
	// NewInput returns a pointer to a fresh, gohcl-tagged arguments struct.
	// Nil means the action accepts no arguments.
	NewInput func() any
	Fn       ActionFunc
}

// Registry holds every registered action for a single application instance.
type Registry struct {
	actions map[string]*RegisteredAction
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{actions: make(map[string]*RegisteredAction)}
}

// RegisterAction registers an action under name. Registering the same name
// twice is a programming error and panics.
func (r *Registry) RegisterAction(name string, action *RegisteredAction) {
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action with name '%s' already registered", name))
	}
	if action == nil || action.Fn == nil {
		panic(fmt.Sprintf("action '%s' has no function", name))
	}
	slog.Debug("Registering action.", "name", name)
	r.actions[name] = action
}

// Action looks up a registered action.
func (r *Registry) Action(name string) (*RegisteredAction, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
