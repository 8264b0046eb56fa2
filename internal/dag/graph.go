package dag

import (
	"slices"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// Register adds a task. Prerequisites may name tasks that are registered
// later; they are only checked by Resolve.
func (g *Graph) Register(name string, prerequisites []string, action Action) error {
	return g.RegisterTask(Task{Name: name, Prerequisites: prerequisites, Action: action})
}

// RegisterTask adds a fully described task.
func (g *Graph) RegisterTask(t Task) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, exists := g.index[t.Name]; exists {
		return &DuplicateTaskError{Name: t.Name}
	}
	t.Prerequisites = slices.Clone(t.Prerequisites)
	g.index[t.Name] = len(g.tasks)
	g.tasks = append(g.tasks, &t)
	return nil
}

// Names returns all registered task names in sorted order.
func (g *Graph) Names() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	names := make([]string, 0, len(g.tasks))
	for _, t := range g.tasks {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Task returns a copy of the named task definition.
func (g *Graph) Task(name string) (Task, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	id, ok := g.index[name]
	if !ok {
		return Task{}, false
	}
	t := *g.tasks[id]
	t.Prerequisites = slices.Clone(t.Prerequisites)
	return t, true
}

// Plan is the execution order derived for one target. It is created per
// build invocation and discarded afterwards.
type Plan struct {
	Target string
	steps  []*step
}

// step is one planned task. deps and dependents index into Plan.steps.
type step struct {
	name       string
	action     Action
	deps       []int
	dependents []int
}

// Order returns task names so that every prerequisite precedes its dependents.
func (p *Plan) Order() []string {
	order := make([]string, len(p.steps))
	for i, s := range p.steps {
		order[i] = s.name
	}
	return order
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int {
	return len(p.steps)
}

// Resolve computes the plan for name: its transitive prerequisites in
// depth-first post-order, following declaration order, each task once.
func (g *Graph) Resolve(name string) (*Plan, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	rootID, ok := g.index[name]
	if !ok {
		return nil, &UnknownTaskError{Name: name}
	}

	const (
		unvisited = iota
		onPath
		visited
	)
	state := make([]uint8, len(g.tasks))
	position := make(map[int]int)
	var path []string
	plan := &Plan{Target: name}

	var visit func(id int) error
	visit = func(id int) error {
		t := g.tasks[id]
		switch state[id] {
		case visited:
			return nil
		case onPath:
			start := slices.Index(path, t.Name)
			cycle := append(slices.Clone(path[start:]), t.Name)
			return &CyclicDependencyError{Path: cycle}
		}

		state[id] = onPath
		path = append(path, t.Name)

		deps := make([]int, 0, len(t.Prerequisites))
		for _, prereq := range t.Prerequisites {
			depID, ok := g.index[prereq]
			if !ok {
				return &UnknownPrerequisiteError{Task: t.Name, Prerequisite: prereq}
			}
			if err := visit(depID); err != nil {
				return err
			}
			if pos := position[depID]; !slices.Contains(deps, pos) {
				deps = append(deps, pos)
			}
		}

		path = path[:len(path)-1]
		state[id] = visited

		pos := len(plan.steps)
		position[id] = pos
		plan.steps = append(plan.steps, &step{name: t.Name, action: t.Action, deps: deps})
		for _, d := range deps {
			plan.steps[d].dependents = append(plan.steps[d].dependents, pos)
		}
		return nil
	}

	if err := visit(rootID); err != nil {
		return nil, err
	}
	return plan, nil
}
