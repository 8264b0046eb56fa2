package registry

import (
	"context"
	"fmt"
)

// Typed builds a RegisteredAction from a handler that takes its concrete
// arguments struct. The struct is allocated per task and filled from the
// task's arguments block before fn is called.
func Typed[T any](fn func(ctx context.Context, inv *Invocation, input *T) error) *RegisteredAction {
	return &RegisteredAction{
		NewInput: func() any { return new(T) },
		Fn: func(ctx context.Context, inv *Invocation, input any) error {
			in, ok := input.(*T)
			if !ok {
				return fmt.Errorf("action input has type %T, want %T", input, in)
			}
			return fn(ctx, inv, in)
		},
	}
}
