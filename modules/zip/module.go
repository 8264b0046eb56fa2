package zip

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	kzip "github.com/klauspost/compress/zip"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the zip action.
type Input struct {
	// Output is the archive path, relative to the project root.
	Output string `hcl:"output"`
	// Base overrides the directory entry names are relative to. By default
	// each file's glob base is used.
	Base string `hcl:"base,optional"`
}

type entry struct {
	name string
	path string
}

// OnRunZip archives the task inputs. Entries are sorted and carry no
// timestamps, so identical inputs give byte-identical archives.
func OnRunZip(ctx context.Context, inv *registry.Invocation, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	output := absolute(inv.Root, input.Output)
	entries, err := collect(inv, input, output)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), ".zip-*")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp, entries); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	logger.Info("Archive written.", "output", output, "entries", len(entries))
	return nil
}

func absolute(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func collect(inv *registry.Invocation, input *Input, output string) ([]entry, error) {
	if inv.Inputs == nil {
		return nil, nil
	}
	var base string
	if input.Base != "" {
		base = absolute(inv.Root, input.Base)
	}

	var entries []entry
	for match, err := range inv.Inputs {
		if err != nil {
			return nil, err
		}
		if match.Path == output {
			continue
		}
		name := match.Rel()
		if base != "" {
			rel, err := filepath.Rel(base, match.Path)
			if err != nil || !filepath.IsLocal(rel) {
				return nil, fmt.Errorf("input %s is outside the archive base %s", match.Path, base)
			}
			name = rel
		}
		entries = append(entries, entry{name: filepath.ToSlash(name), path: match.Path})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.name, b.name) })
	return entries, nil
}

func write(w io.Writer, entries []entry) error {
	zw := kzip.NewWriter(w)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *kzip.Writer, e entry) error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.path, err)
	}
	defer f.Close()

	hdr := &kzip.FileHeader{Name: e.name, Method: kzip.Deflate}
	hdr.SetMode(0o644)
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", e.name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to compress %s: %w", e.name, err)
	}
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("zip", registry.Typed(OnRunZip))
}
