package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/pipegrid/internal/config"
)

const (
	defaultSource    = "app"
	defaultRendered  = "tpl"
	defaultBuild     = "build"
	defaultDist      = "dist"
	defaultListen    = "localhost:3000"
	defaultStartPath = "/"
)

// declRange returns the source range of a decoded block body.
func declRange(body hcl.Body) hcl.Range {
	if sb, ok := body.(*hclsyntax.Body); ok {
		return sb.SrcRange
	}
	if body == nil {
		return hcl.Range{}
	}
	return body.MissingItemRange()
}

func orDefault(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func translateLayout(b *layoutBlock) config.Layout {
	if b == nil {
		b = &layoutBlock{}
	}
	return config.Layout{
		Source:   orDefault(b.Source, defaultSource),
		Rendered: orDefault(b.Rendered, defaultRendered),
		Build:    orDefault(b.Build, defaultBuild),
		Dist:     orDefault(b.Dist, defaultDist),
	}
}

func translateTask(b *taskBlock) *config.Task {
	t := &config.Task{
		Name:        b.Name,
		Description: b.Description,
		DependsOn:   b.DependsOn,
		Action:      b.Action,
		Inputs:      b.Inputs,
		Exclude:     b.Exclude,
		Watch:       b.Watch,
		DeclRange:   declRange(b.Body),
	}
	if b.Arguments != nil {
		t.Arguments = b.Arguments.Body
	}
	return t
}

func translateWatch(b *watchBlock) (*config.Watch, error) {
	if len(b.Tasks) == 0 && !b.Reload {
		return nil, fmt.Errorf("watch '%s' (%s): needs at least one task or reload = true", b.Name, declRange(b.Body))
	}
	return &config.Watch{
		Name:     b.Name,
		Kind:     config.WatchTasks,
		Patterns: b.Patterns,
		Exclude:  b.Exclude,
		Tasks:    b.Tasks,
		Reload:   b.Reload,
	}, nil
}

func translateReload(b *reloadBlock) *config.Watch {
	return &config.Watch{
		Name:     b.Name,
		Kind:     config.WatchReload,
		Patterns: b.Patterns,
		Exclude:  b.Exclude,
		Reload:   true,
	}
}

func translateServer(b *serverBlock, root string) *config.Server {
	dir := orDefault(b.Root, ".")
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return &config.Server{
		Listen:    orDefault(b.Listen, defaultListen),
		Root:      dir,
		StartPath: orDefault(b.StartPath, defaultStartPath),
	}
}
