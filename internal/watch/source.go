package watch

import (
	"errors"
	"fmt"
	"strings"
)

// Op describes what happened to a path.
type Op uint8

const (
	Create Op = 1 << iota
	Write
	Remove
	Rename
)

func (op Op) String() string {
	var parts []string
	for _, o := range []struct {
		op   Op
		name string
	}{{Create, "CREATE"}, {Write, "WRITE"}, {Remove, "REMOVE"}, {Rename, "RENAME"}} {
		if op&o.op != 0 {
			parts = append(parts, o.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Event is a single change notification.
type Event struct {
	// Path is absolute.
	Path string
	Op   Op
}

// EventSource delivers filesystem change events.
type EventSource interface {
	// Add starts watching dir and everything below it.
	Add(dir string) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// ErrOverflow is reported by a source that dropped events. The loop logs it
// and keeps running.
var ErrOverflow = errors.New("event queue overflow")

// SourceError is returned by Run when the event source failed.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("filesystem event source failed: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// errSourceClosed is wrapped in a SourceError when a source channel closes
// while the loop is still running.
var errSourceClosed = errors.New("event channel closed")
