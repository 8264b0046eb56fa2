package print

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/glob"
	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Defaults to os.Stdout.
	Out io.Writer
}

// Input defines the arguments for the print action.
type Input struct {
	Message string `hcl:"message,optional"`
}

// OnRunPrint writes the message followed by every resolved input path.
func (m *Module) OnRunPrint(ctx context.Context, inv *registry.Invocation, input *Input) error {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	logger := ctxlog.FromContext(ctx)

	if input.Message != "" {
		fmt.Fprintf(out, "[%s] %s\n", inv.Task, input.Message)
	}
	if inv.Inputs == nil {
		return nil
	}

	matches, err := glob.Collect(inv.Inputs)
	if err != nil {
		return err
	}
	for _, match := range matches {
		fmt.Fprintf(out, "      %s\n", match.Rel())
	}
	logger.Debug("Printed task inputs.", "count", len(matches))
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", registry.Typed(m.OnRunPrint))
}
