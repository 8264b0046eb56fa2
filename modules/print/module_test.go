package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/glob"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/testutil"
)

func TestOnRunPrint(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"app/scss/main.scss":      "",
		"app/scss/_partial.scss":  "",
		"app/scss/vendor/bs.scss": "",
	})
	resolver, err := glob.NewResolver(root)
	require.NoError(t, err)

	var out bytes.Buffer
	m := &Module{Out: &out}
	reg := registry.New()
	m.Register(reg)
	action, ok := reg.Action("print")
	require.True(t, ok)

	input := action.NewInput().(*Input)
	input.Message = "stylesheets"
	inv := &registry.Invocation{
		Task:   "show",
		Root:   root,
		Inputs: resolver.Resolve([]string{"app/scss/*.scss"}, nil),
	}
	require.NoError(t, action.Fn(context.Background(), inv, input))

	got := out.String()
	assert.Contains(t, got, "[show] stylesheets\n")
	assert.Contains(t, got, "      main.scss\n")
	assert.Contains(t, got, "      _partial.scss\n")
	assert.NotContains(t, got, "bs.scss")
}
