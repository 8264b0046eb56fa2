package hcl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	evalCtx *hcl.EvalContext
}

// NewConverter creates a converter evaluating arguments against evalCtx.
func NewConverter(evalCtx *hcl.EvalContext) *Converter {
	return &Converter{evalCtx: evalCtx}
}

// DecodeArguments decodes task.Arguments into target using gohcl struct tags.
func (c *Converter) DecodeArguments(ctx context.Context, task *config.Task, target any) error {
	logger := ctxlog.FromContext(ctx)

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("task '%s': arguments target must be a non-nil pointer, got %T", task.Name, target)
	}

	body := task.Arguments
	if body == nil {
		// An empty body still reports missing required arguments.
		body = &hclsyntax.Body{SrcRange: task.DeclRange, EndRange: task.DeclRange}
	}
	if diags := gohcl.DecodeBody(body, c.evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("task '%s': invalid arguments: %w", task.Name, diags)
	}
	logger.Debug("Decoded task arguments.", "task", task.Name, "type", rv.Elem().Type().String())
	return nil
}
