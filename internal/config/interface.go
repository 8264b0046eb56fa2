package config

import "context"

// Loader is the interface for a format-specific buildfile loader.
type Loader interface {
	// Load reads the buildfile(s) found at the given paths, translates them
	// into the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds a task's raw arguments to the Go types used by actions.
type Converter interface {
	// DecodeArguments decodes the task's arguments block into target, which
	// must be a pointer to a struct. A task without arguments leaves target
	// untouched apart from required-field checks.
	DecodeArguments(ctx context.Context, task *Task, target any) error
}
