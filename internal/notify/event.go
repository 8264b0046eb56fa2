package notify

import (
	"fmt"
	"strconv"
	"time"
)

// Outcome is the result of one task execution.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Location points at the source position a transform complained about.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	s := l.File
	if l.Line > 0 {
		s += ":" + strconv.Itoa(l.Line)
		if l.Column > 0 {
			s += ":" + strconv.Itoa(l.Column)
		}
	}
	return s
}

// Event is a transient record of a single task outcome.
type Event struct {
	Task     string
	Outcome  Outcome
	Message  string
	Location *Location
	Duration time.Duration
	Time     time.Time
}

// TransformError is returned when a task's action fails.
type TransformError struct {
	Task     string
	Message  string
	Location *Location
	Err      error
}

func (e *TransformError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Location != nil {
		return fmt.Sprintf("task '%s' failed at %s: %s", e.Task, e.Location, msg)
	}
	return fmt.Sprintf("task '%s' failed: %s", e.Task, msg)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// FailureEvent builds the failure event for err.
func FailureEvent(err *TransformError, took time.Duration) Event {
	msg := err.Message
	if msg == "" && err.Err != nil {
		msg = err.Err.Error()
	}
	return Event{
		Task:     err.Task,
		Outcome:  OutcomeFailure,
		Message:  msg,
		Location: err.Location,
		Duration: took,
		Time:     time.Now(),
	}
}
