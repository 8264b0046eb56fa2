package clean

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the clean action.
type Input struct {
	Paths []string `hcl:"paths"`
}

// OnRunClean removes every listed path below the project root. Missing
// paths are not an error.
func OnRunClean(ctx context.Context, inv *registry.Invocation, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	targets := make([]string, 0, len(input.Paths))
	for _, p := range input.Paths {
		target, err := within(inv.Root, p)
		if err != nil {
			return err
		}
		targets = append(targets, target)
	}

	for _, target := range targets {
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove %s: %w", target, err)
		}
		logger.Info("Removed path.", "path", target)
	}
	return nil
}

// within resolves p against root and refuses the root itself and anything
// outside it.
func within(root, p string) (string, error) {
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("refusing to remove %q: %w", p, err)
	}
	if rel == "." {
		return "", fmt.Errorf("refusing to remove the project root (%q)", p)
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing to remove %q: outside the project root", p)
	}
	return target, nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("clean", registry.Typed(OnRunClean))
}
