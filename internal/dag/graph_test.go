package dag

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestRegister(t *testing.T) {
	t.Parallel()
	g := New()

	require.NoError(t, g.Register("clean", nil, noop))
	require.NoError(t, g.Register("build", []string{"clean"}, nil))

	err := g.Register("clean", nil, noop)
	var dup *DuplicateTaskError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "clean", dup.Name)

	assert.Equal(t, []string{"build", "clean"}, g.Names())

	task, ok := g.Task("build")
	require.True(t, ok)
	assert.Equal(t, []string{"clean"}, task.Prerequisites)
	assert.Nil(t, task.Action)

	_, ok = g.Task("missing")
	assert.False(t, ok)
}

func TestRegister_ForwardReferenceCheckedAtResolve(t *testing.T) {
	t.Parallel()
	g := New()

	// Registering with a prerequisite that does not exist yet is allowed.
	require.NoError(t, g.Register("package", []string{"compile"}, noop))

	_, err := g.Resolve("package")
	var unknown *UnknownPrerequisiteError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "package", unknown.Task)
	assert.Equal(t, "compile", unknown.Prerequisite)

	require.NoError(t, g.Register("compile", nil, noop))
	plan, err := g.Resolve("package")
	require.NoError(t, err)
	assert.Equal(t, []string{"compile", "package"}, plan.Order())
}

func TestResolve_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Register("clean", nil, noop))
	require.NoError(t, g.Register("compile", []string{"clean"}, noop))
	require.NoError(t, g.Register("package", []string{"compile"}, noop))

	plan, err := g.Resolve("package")
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "compile", "package"}, plan.Order())
	assert.Equal(t, "package", plan.Target)
}

func TestResolve_DiamondIncludesSharedPrerequisiteOnce(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Register("icons", nil, noop))
	require.NoError(t, g.Register("sass", []string{"icons"}, noop))
	require.NoError(t, g.Register("nunjucks", []string{"icons"}, noop))
	require.NoError(t, g.Register("serve", []string{"sass", "icons", "nunjucks", "sass"}, nil))
	require.NoError(t, g.Register("unrelated", nil, noop))

	plan, err := g.Resolve("serve")
	require.NoError(t, err)
	assert.Equal(t, []string{"icons", "sass", "nunjucks", "serve"}, plan.Order())
	assert.Equal(t, 4, plan.Len())
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown target", func(t *testing.T) {
		g := New()
		_, err := g.Resolve("prod")
		var unknown *UnknownTaskError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "prod", unknown.Name)
	})

	t.Run("direct cycle", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Register("A", []string{"B"}, noop))
		require.NoError(t, g.Register("B", []string{"A"}, noop))

		_, err := g.Resolve("A")
		var cycle *CyclicDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"A", "B", "A"}, cycle.Path)
		assert.ErrorContains(t, err, "cycle detected: A -> B -> A")
	})

	t.Run("self reference", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Register("A", []string{"A"}, noop))
		_, err := g.Resolve("A")
		var cycle *CyclicDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"A", "A"}, cycle.Path)
	})

	t.Run("longer cycle below the target", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Register("top", []string{"a"}, noop))
		require.NoError(t, g.Register("a", []string{"b"}, noop))
		require.NoError(t, g.Register("b", []string{"c"}, noop))
		require.NoError(t, g.Register("c", []string{"a"}, noop))

		_, err := g.Resolve("top")
		var cycle *CyclicDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
	})

	t.Run("cycle outside the target is ignored", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Register("ok", nil, noop))
		require.NoError(t, g.Register("x", []string{"y"}, noop))
		require.NoError(t, g.Register("y", []string{"x"}, noop))

		plan, err := g.Resolve("ok")
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, plan.Order())
	})
}

// TestResolve_RandomAcyclicGraphs checks the ordering property over many
// generated graphs: every prerequisite precedes its dependent.
func TestResolve_RandomAcyclicGraphs(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	for iteration := 0; iteration < 200; iteration++ {
		size := 1 + rng.Intn(20)
		g := New()
		prereqs := make(map[string][]string, size)
		// Tasks may only depend on lower-numbered tasks, which keeps the graph acyclic.
		for i := 0; i < size; i++ {
			name := fmt.Sprintf("t%d", i)
			var deps []string
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					deps = append(deps, fmt.Sprintf("t%d", j))
				}
			}
			prereqs[name] = deps
		}
		// Register in shuffled order to exercise forward references.
		names := make([]string, 0, size)
		for name := range prereqs {
			names = append(names, name)
		}
		rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
		for _, name := range names {
			require.NoError(t, g.Register(name, prereqs[name], noop))
		}

		target := fmt.Sprintf("t%d", size-1)
		plan, err := g.Resolve(target)
		require.NoError(t, err)

		order := plan.Order()
		require.Equal(t, target, order[len(order)-1])
		seen := make(map[string]bool, len(order))
		for _, name := range order {
			require.False(t, seen[name], "task %s planned twice", name)
			for _, dep := range prereqs[name] {
				require.True(t, slices.Contains(order, dep), "missing prerequisite %s of %s", dep, name)
				require.True(t, seen[dep], "prerequisite %s planned after %s", dep, name)
			}
			seen[name] = true
		}
	}
}
