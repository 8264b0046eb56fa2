package clean

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/testutil"
)

func TestOnRunClean(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"build/index.html":   "",
		"build/css/main.css": "",
		"dist/dist.zip":      "",
		"app/index.html":     "",
	})
	inv := &registry.Invocation{Task: "build-clean", Root: root}

	require.NoError(t, OnRunClean(context.Background(), inv, &Input{Paths: []string{"build", "dist/", "never-existed"}}))

	assert.NoDirExists(t, filepath.Join(root, "build"))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
	assert.FileExists(t, filepath.Join(root, "app", "index.html"))
}

func TestOnRunClean_Refuses(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"build/a": ""})
	outside := t.TempDir()
	inv := &registry.Invocation{Task: "prod-clean", Root: root}

	testCases := []struct {
		name    string
		paths   []string
		wantErr string
	}{
		{name: "root", paths: []string{"."}, wantErr: "project root"},
		{name: "root via absolute path", paths: []string{root}, wantErr: "project root"},
		{name: "parent", paths: []string{".."}, wantErr: "outside the project root"},
		{name: "escape", paths: []string{"build/../../x"}, wantErr: "outside the project root"},
		{name: "absolute elsewhere", paths: []string{outside}, wantErr: "outside the project root"},
		{name: "bad entry aborts all", paths: []string{"build", ".."}, wantErr: "outside the project root"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := OnRunClean(context.Background(), inv, &Input{Paths: tc.paths})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
	assert.DirExists(t, filepath.Join(root, "build"))
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}
