package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/pipegrid/internal/notify"
)

// Recorder is a notify.Sink that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
	ch     chan notify.Event
}

// NewRecorder returns a recorder. Events are also published on C.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan notify.Event, 256)}
}

// Report implements notify.Sink.
func (r *Recorder) Report(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.ch <- ev:
	default:
	}
}

// C streams events as they are reported.
func (r *Recorder) C() <-chan notify.Event {
	return r.ch
}

// Events returns a snapshot of all recorded events.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Tasks returns the task names of events with the given outcome, in report order.
func (r *Recorder) Tasks(outcome notify.Outcome) []string {
	var names []string
	for _, ev := range r.Events() {
		if ev.Outcome == outcome {
			names = append(names, ev.Task)
		}
	}
	return names
}

// ExecutionRecord holds the start and end times for a single task's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two executions ran at the same time.
func (e ExecutionRecord) Overlaps(o ExecutionRecord) bool {
	return !e.Start.After(o.End) && !o.Start.After(e.End)
}

// Timeline records task executions for concurrency assertions.
type Timeline struct {
	mu      sync.Mutex
	Records map[string]ExecutionRecord
	Order   []string
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{Records: make(map[string]ExecutionRecord)}
}

// Track returns an action body that sleeps for d and records its window.
func (tl *Timeline) Track(name string, d time.Duration) func(context.Context) error {
	return func(context.Context) error {
		start := time.Now()
		time.Sleep(d)
		end := time.Now()
		tl.mu.Lock()
		tl.Records[name] = ExecutionRecord{Start: start, End: end}
		tl.Order = append(tl.Order, name)
		tl.mu.Unlock()
		return nil
	}
}

// Snapshot returns a copy of the completion order.
func (tl *Timeline) Snapshot() []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]string, len(tl.Order))
	copy(out, tl.Order)
	return out
}
