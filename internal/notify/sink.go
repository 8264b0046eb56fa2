package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/vk/pipegrid/internal/ctxlog"
)

// Sink receives build events.
type Sink interface {
	Report(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Report(ctx context.Context, ev Event) { f(ctx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// SafeReport delivers ev to s, recovering from a panicking sink.
func SafeReport(ctx context.Context, s Sink, ev Event) {
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Notification sink panicked.", "task", ev.Task, "panic", r)
		}
	}()
	s.Report(ctx, ev)
}

// Multi fans an event out to several sinks. Each sink is isolated from the
// others' panics.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) {
		for _, s := range sinks {
			SafeReport(ctx, s, ev)
		}
	})
}

// LogSink writes events to the logger found in the context.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{"task", ev.Task, "duration", ev.Duration}
	if ev.Location != nil {
		attrs = append(attrs, "location", ev.Location.String())
	}
	if ev.Outcome == OutcomeFailure {
		logger.Error("Task failed.", append(attrs, "message", ev.Message)...)
		return
	}
	logger.Log(ctx, slog.LevelInfo, "Task completed.", attrs...)
}

var (
	labelStyle   = color.New(color.FgWhite, color.BgRed)
	successStyle = color.New(color.FgGreen, color.OpBold)
)

// ConsoleSink prints a human readable report, optionally ringing the
// terminal bell on failure.
type ConsoleSink struct {
	mu   sync.Mutex
	w    io.Writer
	beep bool
}

// NewConsoleSink returns a console sink writing to w.
func NewConsoleSink(w io.Writer, beep bool) *ConsoleSink {
	return &ConsoleSink{w: w, beep: beep}
}

func (c *ConsoleSink) Report(_ context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Outcome == OutcomeSuccess {
		fmt.Fprintf(c.w, "%s [%s] %s\n", successStyle.Sprint("Task Completed"), ev.Task, ev.Duration.Round(time.Millisecond))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", labelStyle.Sprint("TASK:"), ev.Task)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Sprint("PROB:"), ev.Message)
	if ev.Location != nil {
		if ev.Location.Line > 0 {
			fmt.Fprintf(&b, "%s %d\n", labelStyle.Sprint("LINE:"), ev.Location.Line)
		}
		if ev.Location.File != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Sprint("FILE:"), ev.Location.File)
		}
	}
	if c.beep {
		b.WriteString("\a")
	}
	io.WriteString(c.w, b.String())
}
