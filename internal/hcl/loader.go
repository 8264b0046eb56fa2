package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/glob"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	root string
	env  map[string]string
}

// NewLoader creates a loader for a project rooted at root. env is exposed to
// buildfiles as env.*.
func NewLoader(root string, env map[string]string) *Loader {
	return &Loader{root: root, env: env}
}

type parsedFile struct {
	path string
	body hcl.Body
}

// Load parses every buildfile found at paths and merges them into one model.
// A path may name a file or a directory searched recursively for *.hcl.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	root, err := filepath.Abs(l.root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving project root: %w", err)
	}

	hclFiles, err := l.findAllHCLFiles(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no buildfile found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var files []parsedFile
	for _, path := range hclFiles {
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		files = append(files, parsedFile{path: path, body: f.Body})
	}

	// First pass: layout only.
	layoutCtx := newEvalContext(root, l.env, nil)
	var layout *layoutBlock
	var layoutFile string
	for i, f := range files {
		var lr layoutRoot
		if diags := gohcl.DecodeBody(f.body, layoutCtx, &lr); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode layout in %s: %w", f.path, diags)
		}
		if lr.Layout != nil {
			if layout != nil {
				return nil, nil, fmt.Errorf("duplicate layout block in %s, already defined in %s", f.path, layoutFile)
			}
			layout, layoutFile = lr.Layout, f.path
		}
		files[i].body = lr.Remain
	}

	model := &config.Model{Root: root, Layout: translateLayout(layout)}
	evalCtx := newEvalContext(root, l.env, &model.Layout)

	// Second pass: everything else.
	var defaultFile, serverFile string
	seen := make(map[string]string)
	for _, f := range files {
		var fr fileRoot
		if diags := gohcl.DecodeBody(f.body, evalCtx, &fr); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", f.path, diags)
		}

		if fr.Default != nil {
			if defaultFile != "" {
				return nil, nil, fmt.Errorf("duplicate default in %s, already set in %s", f.path, defaultFile)
			}
			model.Default, defaultFile = *fr.Default, f.path
		}
		if fr.Server != nil {
			if serverFile != "" {
				return nil, nil, fmt.Errorf("duplicate server block in %s, already defined in %s", f.path, serverFile)
			}
			model.Server, serverFile = translateServer(fr.Server, root), f.path
		}

		for _, tb := range fr.Tasks {
			t := translateTask(tb)
			if prev, ok := seen["task."+t.Name]; ok {
				return nil, nil, fmt.Errorf("duplicate task '%s' at %s, first declared at %s", t.Name, t.DeclRange, prev)
			}
			seen["task."+t.Name] = t.DeclRange.String()
			model.Tasks = append(model.Tasks, t)
		}
		for _, wb := range fr.Watches {
			w, err := translateWatch(wb)
			if err != nil {
				return nil, nil, err
			}
			if err := checkBindingName(seen, w.Name, declRange(wb.Body)); err != nil {
				return nil, nil, err
			}
			model.Watches = append(model.Watches, w)
		}
		for _, rb := range fr.Reloads {
			if err := checkBindingName(seen, rb.Name, declRange(rb.Body)); err != nil {
				return nil, nil, err
			}
			model.Watches = append(model.Watches, translateReload(rb))
		}
	}

	if err := checkWatchTasks(model); err != nil {
		return nil, nil, err
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "watches", len(model.Watches), "server", model.Server != nil)
	return model, NewConverter(evalCtx), nil
}

func checkBindingName(seen map[string]string, name string, rng hcl.Range) error {
	key := "binding." + name
	if prev, ok := seen[key]; ok {
		return fmt.Errorf("duplicate watch binding '%s' at %s, first declared at %s", name, rng, prev)
	}
	seen[key] = rng.String()
	return nil
}

// checkWatchTasks rejects bindings that name tasks the buildfile never
// declares.
func checkWatchTasks(model *config.Model) error {
	var errs []error
	for _, w := range model.Watches {
		for _, name := range w.Tasks {
			if model.Task(name) == nil {
				errs = append(errs, fmt.Errorf("watch '%s' references unknown task '%s'", w.Name, name))
			}
		}
	}
	return errors.Join(errs...)
}

// findAllHCLFiles expands paths into a sorted, deduplicated list of files.
// Directories are searched recursively for *.hcl files.
func (l *Loader) findAllHCLFiles(ctx context.Context, paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.root, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("error accessing buildfile %s: %w", path, err)
		}
		if !info.IsDir() {
			add(abs)
			continue
		}

		resolver, err := glob.NewResolver(abs)
		if err != nil {
			return nil, err
		}
		matches, err := glob.Collect(resolver.Resolve([]string{"**/*.hcl"}, nil))
		if err != nil {
			return nil, fmt.Errorf("searching %s for buildfiles: %w", path, err)
		}
		var found []string
		for _, m := range matches {
			found = append(found, m.Path)
		}
		slices.Sort(found)
		ctxlog.FromContext(ctx).Debug("Buildfile directory scanned.", "path", abs, "files", len(found))
		for _, p := range found {
			add(p)
		}
	}
	return allFiles, nil
}
