package zip

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	kzip "github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/glob"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/testutil"
)

func invocation(t *testing.T, root string, patterns ...string) *registry.Invocation {
	t.Helper()
	resolver, err := glob.NewResolver(root)
	require.NoError(t, err)
	return &registry.Invocation{Task: "prod", Root: root, Inputs: resolver.Resolve(patterns, nil)}
}

func entryNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := kzip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestOnRunZip_Idempotent(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"build/index.html":    "<html></html>",
		"build/css/main.css":  "body{}",
		"build/fonts/fa.woff": "font",
		"build/js/app.min.js": "x()",
	})
	input := &Input{Output: "dist/dist.zip"}
	archive := filepath.Join(root, "dist", "dist.zip")

	require.NoError(t, OnRunZip(context.Background(), invocation(t, root, "build/**/*"), input))
	first, err := os.ReadFile(archive)
	require.NoError(t, err)

	// Touch a file: mtimes must not leak into the archive.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "build", "index.html"), later, later))

	require.NoError(t, OnRunZip(context.Background(), invocation(t, root, "build/**/*"), input))
	second, err := os.ReadFile(archive)
	require.NoError(t, err)

	assert.Equal(t, first, second, "zipping unchanged inputs twice must give identical archives")
	assert.Equal(t, []string{"css/main.css", "fonts/fa.woff", "index.html", "js/app.min.js"}, entryNames(t, archive))
}

func TestOnRunZip_BaseAndSelfExclusion(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"out/site/a.txt": "a",
		"out/site/b.txt": "b",
	})
	// The archive lands inside the input tree and must not include itself.
	input := &Input{Output: "out/site.zip", Base: "out"}
	require.NoError(t, OnRunZip(context.Background(), invocation(t, root, "out/**/*"), input))
	require.NoError(t, OnRunZip(context.Background(), invocation(t, root, "out/**/*"), input))

	assert.Equal(t, []string{"site/a.txt", "site/b.txt"}, entryNames(t, filepath.Join(root, "out", "site.zip")))
}

func TestOnRunZip_InputOutsideBase(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"a/x.txt": "x"})
	err := OnRunZip(context.Background(), invocation(t, root, "a/*.txt"), &Input{Output: "z.zip", Base: "b"})
	require.ErrorContains(t, err, "outside the archive base")
	assert.NoFileExists(t, filepath.Join(root, "z.zip"))
}

func TestOnRunZip_EmptyInputs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, OnRunZip(context.Background(), invocation(t, root, "build/**/*"), &Input{Output: "dist/dist.zip"}))
	assert.Empty(t, entryNames(t, filepath.Join(root, "dist", "dist.zip")))
}
