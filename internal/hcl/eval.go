package hcl

import (
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions available to every buildfile expression.
var functions = map[string]function.Function{
	"upper":  stdlib.UpperFunc,
	"lower":  stdlib.LowerFunc,
	"join":   stdlib.JoinFunc,
	"format": stdlib.FormatFunc,
	"concat": stdlib.ConcatFunc,
}

// newEvalContext builds the context for the given pass. layout is nil during
// the first pass.
func newEvalContext(root string, env map[string]string, layout *config.Layout) *hcl.EvalContext {
	vars := map[string]cty.Value{
		"root": cty.StringVal(root),
		"env":  envValue(env),
	}
	if layout != nil {
		vars["layout"] = cty.ObjectVal(map[string]cty.Value{
			"source":   cty.StringVal(layout.Source),
			"rendered": cty.StringVal(layout.Rendered),
			"build":    cty.StringVal(layout.Build),
			"dist":     cty.StringVal(layout.Dist),
		})
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}
}

func envValue(env map[string]string) cty.Value {
	if len(env) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		attrs[k] = cty.StringVal(env[k])
	}
	return cty.ObjectVal(attrs)
}
