package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/testutil"
)

// SetupAppTest writes buildfile into a fresh project tree alongside files and
// returns an app for it with debug logging captured.
func SetupAppTest(t *testing.T, buildfile string, files map[string]string, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, string) {
	t.Helper()

	tree := map[string]string{DefaultBuildfile: buildfile}
	for k, v := range files {
		tree[k] = v
	}
	root := testutil.WriteTree(t, tree)

	cfg.Root = root
	if cfg.BuildfilePath == "" {
		cfg.BuildfilePath = DefaultBuildfile
	}
	cfg.LogLevel = "debug"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := NewApp(logBuffer, appConfig, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("PIPEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer, root
}
