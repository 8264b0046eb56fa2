package registry

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/config"
)

func nopAction(context.Context, *Invocation, any) error { return nil }

type testModule struct{ names []string }

func (m *testModule) Register(r *Registry) {
	for _, n := range m.names {
		r.RegisterAction(n, &RegisteredAction{Fn: nopAction})
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	var mod Module = &testModule{names: []string{"zip", "clean"}}
	mod.Register(r)

	a, ok := r.Action("zip")
	require.True(t, ok)
	assert.NotNil(t, a.Fn)

	_, ok = r.Action("sass")
	assert.False(t, ok)
	assert.Equal(t, []string{"clean", "zip"}, r.Names())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterAction("copy", &RegisteredAction{Fn: nopAction})
	assert.PanicsWithValue(t, "action with name 'copy' already registered", func() {
		r.RegisterAction("copy", &RegisteredAction{Fn: nopAction})
	})
	assert.Panics(t, func() { r.RegisterAction("empty", &RegisteredAction{}) })
}

func body(t *testing.T, src string) hcl.Body {
	t.Helper()
	f, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return f.Body
}

func TestRegistry_Validate(t *testing.T) {
	r := New()
	r.RegisterAction("clean", &RegisteredAction{Fn: nopAction})
	r.RegisterAction("copy", &RegisteredAction{NewInput: func() any { return &struct{}{} }, Fn: nopAction})
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		model := &config.Model{Tasks: []*config.Task{
			{Name: "build-clean", Action: "clean"},
			{Name: "icons", Action: "copy", Arguments: body(t, `dest = "build/fonts"`)},
			{Name: "serve", DependsOn: []string{"icons"}},
		}}
		require.NoError(t, r.Validate(ctx, model))
	})

	t.Run("reports every problem", func(t *testing.T) {
		model := &config.Model{Tasks: []*config.Task{
			{Name: "sass", Action: "sassc"},
			{Name: "build-clean", Action: "clean", Arguments: body(t, `paths = ["build"]`)},
			{Name: "serve", Arguments: body(t, `x = 1`)},
			{Name: "noop", Action: "clean", Arguments: body(t, ``)},
		}}
		err := r.Validate(ctx, model)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task 'sass'")
		assert.Contains(t, err.Error(), "unknown action 'sassc' (available: clean, copy)")
		assert.Contains(t, err.Error(), "action 'clean' takes no arguments")
		assert.Contains(t, err.Error(), "task 'serve'")
		assert.NotContains(t, err.Error(), "task 'noop'")
	})
}

func TestTyped(t *testing.T) {
	type args struct{ Dest string }
	var got string
	action := Typed(func(_ context.Context, inv *Invocation, in *args) error {
		got = inv.Task + ":" + in.Dest
		return nil
	})

	input := action.NewInput()
	require.IsType(t, &args{}, input)
	input.(*args).Dest = "build/fonts"

	require.NoError(t, action.Fn(context.Background(), &Invocation{Task: "icons"}, input))
	assert.Equal(t, "icons:build/fonts", got)

	err := action.Fn(context.Background(), &Invocation{Task: "icons"}, "wrong")
	assert.ErrorContains(t, err, "action input has type string")
}
