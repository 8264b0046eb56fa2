package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
)

// Validate checks the loaded buildfile against the registered actions: every
// task action must exist, and arguments may only be given to actions that
// accept them. All problems are reported together.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, task := range model.Tasks {
		if task.Action == "" {
			if hasAttributes(task.Arguments) {
				errs = append(errs, fmt.Sprintf("task '%s' (%s): arguments given but no action set", task.Name, task.DeclRange))
			}
			continue
		}

		action, ok := r.actions[task.Action]
		if !ok {
			errs = append(errs, fmt.Sprintf("task '%s' (%s): unknown action '%s' (available: %s)",
				task.Name, task.DeclRange, task.Action, strings.Join(r.Names(), ", ")))
			continue
		}
		if action.NewInput == nil && hasAttributes(task.Arguments) {
			errs = append(errs, fmt.Sprintf("task '%s' (%s): action '%s' takes no arguments", task.Name, task.DeclRange, task.Action))
		}
		logger.Debug("Task action validated.", "task", task.Name, "action", task.Action)
	}

	if len(errs) > 0 {
		return fmt.Errorf("buildfile validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func hasAttributes(body hcl.Body) bool {
	if body == nil {
		return false
	}
	attrs, diags := body.JustAttributes()
	return diags.HasErrors() || len(attrs) > 0
}
