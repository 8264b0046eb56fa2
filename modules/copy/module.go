package copy

import (
	"context"
	"fmt"
	"path/filepath"

	cp "github.com/otiai10/copy"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the copy action.
type Input struct {
	Dest string `hcl:"dest"`
}

// OnRunCopy copies every task input into Dest, keeping each file's path
// relative to the glob base of the pattern that matched it.
func OnRunCopy(ctx context.Context, inv *registry.Invocation, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	dest := input.Dest
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(inv.Root, dest)
	}
	if inv.Inputs == nil {
		logger.Warn("Copy task has no inputs.", "dest", dest)
		return nil
	}

	opts := cp.Options{PreserveTimes: true}
	count := 0
	for match, err := range inv.Inputs {
		if err != nil {
			return err
		}
		target := filepath.Join(dest, match.Rel())
		if err := cp.Copy(match.Path, target, opts); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", match.Path, target, err)
		}
		count++
	}
	logger.Info("Files copied.", "count", count, "dest", dest)
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("copy", registry.Typed(OnRunCopy))
}
