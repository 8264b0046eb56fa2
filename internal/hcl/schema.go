package hcl

import "github.com/hashicorp/hcl/v2"

// layoutRoot is decoded in the first pass. Everything but the layout block is
// left in Remain for the second pass.
type layoutRoot struct {
	Layout *layoutBlock `hcl:"layout,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type layoutBlock struct {
	Source   *string `hcl:"source,optional"`
	Rendered *string `hcl:"rendered,optional"`
	Build    *string `hcl:"build,optional"`
	Dist     *string `hcl:"dist,optional"`
}

// fileRoot holds every top-level construct except the layout block.
type fileRoot struct {
	Default *string        `hcl:"default,optional"`
	Tasks   []*taskBlock   `hcl:"task,block"`
	Watches []*watchBlock  `hcl:"watch,block"`
	Reloads []*reloadBlock `hcl:"reload,block"`
	Server  *serverBlock   `hcl:"server,block"`
}

type taskBlock struct {
	Name        string          `hcl:"name,label"`
	Description string          `hcl:"description,optional"`
	DependsOn   []string        `hcl:"depends_on,optional"`
	Action      string          `hcl:"action,optional"`
	Inputs      []string        `hcl:"inputs,optional"`
	Exclude     []string        `hcl:"exclude,optional"`
	Watch       bool            `hcl:"watch,optional"`
	Arguments   *argumentsBlock `hcl:"arguments,block"`
	Body        hcl.Body        `hcl:",body"`
}

// argumentsBlock keeps the raw body; it is decoded later against the
// action's own input struct.
type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type watchBlock struct {
	Name     string   `hcl:"name,label"`
	Patterns []string `hcl:"patterns"`
	Exclude  []string `hcl:"exclude,optional"`
	Tasks    []string `hcl:"tasks,optional"`
	Reload   bool     `hcl:"reload,optional"`
	Body     hcl.Body `hcl:",body"`
}

type reloadBlock struct {
	Name     string   `hcl:"name,label"`
	Patterns []string `hcl:"patterns"`
	Exclude  []string `hcl:"exclude,optional"`
	Body     hcl.Body `hcl:",body"`
}

type serverBlock struct {
	Listen    *string  `hcl:"listen,optional"`
	Root      *string  `hcl:"root,optional"`
	StartPath *string  `hcl:"start_path,optional"`
	Body      hcl.Body `hcl:",body"`
}
