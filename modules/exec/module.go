package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/notify"
	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec action.
type Input struct {
	// Command is split into arguments with shell quoting rules. It is not
	// run through a shell.
	Command string `hcl:"command"`
	// Dir is the working directory, relative to the project root.
	Dir string `hcl:"dir,optional"`
	// Env adds variables on top of the invocation environment.
	Env map[string]string `hcl:"env,optional"`
	// AppendInputs passes every resolved input path as a trailing argument.
	AppendInputs bool `hcl:"append_inputs,optional"`
}

// locationPattern finds "file.ext:line" or "file.ext:line:col" in tool output.
var locationPattern = regexp.MustCompile(`([^\s:'"()]+\.[A-Za-z0-9]+):(\d+)(?::(\d+))?`)

// OnRunExec runs an external command. A non-zero exit becomes a
// TransformError carrying the last line of output and, when the output names
// an existing file, its location.
func OnRunExec(ctx context.Context, inv *registry.Invocation, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	args, err := shlex.Split(input.Command)
	if err != nil {
		return fmt.Errorf("invalid command %q: %w", input.Command, err)
	}
	if len(args) == 0 {
		return errors.New("command is empty")
	}
	if input.AppendInputs && inv.Inputs != nil {
		for match, err := range inv.Inputs {
			if err != nil {
				return err
			}
			args = append(args, match.Path)
		}
	}

	dir := inv.Root
	if input.Dir != "" {
		dir = input.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(inv.Root, dir)
		}
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = environ(inv.Env, input.Env)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug("Running command.", "command", args[0], "args", len(args)-1, "dir", dir)
	if err := cmd.Run(); err != nil {
		lines := nonEmptyLines(output.String())
		for _, line := range lines {
			logger.Debug("Command output.", "line", line)
		}
		msg := err.Error()
		if len(lines) > 0 {
			msg = lines[len(lines)-1]
		}
		return &notify.TransformError{
			Message:  msg,
			Location: findLocation(lines, dir, inv.Root),
			Err:      err,
		}
	}

	for _, line := range nonEmptyLines(output.String()) {
		logger.Debug("Command output.", "line", line)
	}
	return nil
}

// environ merges the invocation environment with extra variables. Later
// entries win.
func environ(base []string, extra map[string]string) []string {
	if base == nil {
		base = os.Environ()
	}
	env := slices.Clone(base)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func nonEmptyLines(s string) []string {
	var lines []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// findLocation scans output from the end for a file reference that exists
// relative to dir, root or as an absolute path.
func findLocation(lines []string, dir, root string) *notify.Location {
	for i := len(lines) - 1; i >= 0; i-- {
		for _, m := range locationPattern.FindAllStringSubmatch(lines[i], -1) {
			file, ok := existing(m[1], dir, root)
			if !ok {
				continue
			}
			line, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			return &notify.Location{File: file, Line: line, Column: col}
		}
	}
	return nil
}

func existing(name, dir, root string) (string, bool) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(dir, name), filepath.Join(root, name)}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if rel, err := filepath.Rel(root, c); err == nil && filepath.IsLocal(rel) {
				return filepath.ToSlash(rel), true
			}
			return c, true
		}
	}
	return "", false
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("exec", registry.Typed(OnRunExec))
}
