package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformError(t *testing.T) {
	t.Parallel()
	cause := errors.New("exit status 1")

	err := &TransformError{Task: "sass", Message: "Undefined variable", Location: &Location{File: "app/scss/main.scss", Line: 12, Column: 3}, Err: cause}
	assert.Equal(t, "task 'sass' failed at app/scss/main.scss:12:3: Undefined variable", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &TransformError{Task: "zip", Err: cause}
	assert.Equal(t, "task 'zip' failed: exit status 1", bare.Error())

	ev := FailureEvent(bare, time.Second)
	assert.Equal(t, OutcomeFailure, ev.Outcome)
	assert.Equal(t, "exit status 1", ev.Message)
	assert.Equal(t, "zip", ev.Task)
}

func TestConsoleSink(t *testing.T) {
	t.Parallel()

	t.Run("failure report lists location", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewConsoleSink(&buf, true)
		sink.Report(context.Background(), Event{
			Task:     "sass",
			Outcome:  OutcomeFailure,
			Message:  "Undefined variable",
			Location: &Location{File: "main.scss", Line: 7},
		})
		out := buf.String()
		assert.Contains(t, out, "TASK:")
		assert.Contains(t, out, "[sass]")
		assert.Contains(t, out, "Undefined variable")
		assert.Contains(t, out, "LINE:")
		assert.Contains(t, out, "main.scss")
		assert.Contains(t, out, "\a")
	})

	t.Run("success report", func(t *testing.T) {
		var buf bytes.Buffer
		NewConsoleSink(&buf, false).Report(context.Background(), Event{Task: "nunjucks", Outcome: OutcomeSuccess})
		assert.Contains(t, buf.String(), "Task Completed")
		assert.Contains(t, buf.String(), "[nunjucks]")
		assert.NotContains(t, buf.String(), "\a")
	})
}

func TestMulti_IsolatesPanics(t *testing.T) {
	t.Parallel()
	var got []string
	panicky := SinkFunc(func(context.Context, Event) { panic("display unavailable") })
	recorder := SinkFunc(func(_ context.Context, ev Event) { got = append(got, ev.Task) })

	require.NotPanics(t, func() {
		Multi(panicky, recorder).Report(context.Background(), Event{Task: "compile"})
	})
	assert.Equal(t, []string{"compile"}, got)
}

func TestSafeReport_NilSink(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { SafeReport(context.Background(), nil, Event{}) })
}
