package glob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates the given relative files (with placeholder content) under a temp root.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
	return root
}

func resolvePaths(t *testing.T, r *Resolver, includes, excludes []string) []string {
	t.Helper()
	matches, err := Collect(r.Resolve(includes, excludes))
	require.NoError(t, err)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(r.Root(), m.Path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths
}

func TestResolve_RecursiveExtension(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "scss/a.scss", "scss/sub/b.scss", "scss/a.css")
	r, err := NewResolver(root)
	require.NoError(t, err)

	got := resolvePaths(t, r, []string{"scss/**/*.scss"}, nil)
	assert.ElementsMatch(t, []string{"scss/a.scss", "scss/sub/b.scss"}, got)
}

func TestResolve_AbsolutePaths(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "app/index.html")
	r, err := NewResolver(root)
	require.NoError(t, err)

	matches, err := Collect(r.Resolve([]string{"app/*.html"}, nil))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, filepath.IsAbs(matches[0].Path))
	assert.Equal(t, filepath.Join(root, "app"), matches[0].Base)
	assert.Equal(t, "index.html", matches[0].Rel())
}

func TestResolve_Exclusions(t *testing.T) {
	t.Parallel()
	root := writeTree(t,
		"app/index.html",
		"app/css/main.css",
		"app/js/app.js",
		"app/images/logo.png",
		"app/fonts/icons.woff",
	)
	r, err := NewResolver(root)
	require.NoError(t, err)

	t.Run("exclude list", func(t *testing.T) {
		got := resolvePaths(t, r, []string{"app/**/*"}, []string{"app/**/*.html", "app/css"})
		assert.ElementsMatch(t, []string{"app/js/app.js", "app/images/logo.png", "app/fonts/icons.woff"}, got)
	})

	t.Run("negated include", func(t *testing.T) {
		got := resolvePaths(t, r, []string{"app/**/*", "!app/**/*.js", "!app/css", "!app/*.html"}, nil)
		assert.ElementsMatch(t, []string{"app/images/logo.png", "app/fonts/icons.woff"}, got)
	})
}

func TestResolve_GlobExclusionKeepsSubdirectories(t *testing.T) {
	t.Parallel()
	root := writeTree(t,
		"scss/a.scss",
		"scss/sub/b.scss",
		"app/css/main.css",
		"app/css/vendor/bootstrap.css",
		"app/index.html",
	)
	r, err := NewResolver(root)
	require.NoError(t, err)

	got := resolvePaths(t, r, []string{"scss/**/*.scss"}, []string{"scss/*"})
	assert.ElementsMatch(t, []string{"scss/sub/b.scss"}, got)

	got = resolvePaths(t, r, []string{"app/**/*"}, []string{"app/css"})
	assert.ElementsMatch(t, []string{"app/index.html"}, got)

	m, err := r.Matcher([]string{"scss/**/*.scss"}, []string{"scss/*"})
	require.NoError(t, err)
	assert.False(t, m.Match(filepath.Join(root, "scss", "a.scss")))
	assert.True(t, m.Match(filepath.Join(root, "scss", "sub", "b.scss")))
}

func TestResolve_Deduplicates(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "tpl/pages/index.njk", "tpl/pages/about.html")
	r, err := NewResolver(root)
	require.NoError(t, err)

	got := resolvePaths(t, r, []string{"tpl/pages/**/*.{html,njk}", "tpl/**/*", "tpl/pages/index.njk"}, nil)
	assert.ElementsMatch(t, []string{"tpl/pages/index.njk", "tpl/pages/about.html"}, got)
}

func TestResolve_NoMatchesIsEmpty(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "scss/a.css")
	r, err := NewResolver(root)
	require.NoError(t, err)

	assert.Empty(t, resolvePaths(t, r, []string{"scss/**/*.scss"}, nil))
	assert.Empty(t, resolvePaths(t, r, []string{"does-not-exist/**/*"}, nil))
	assert.Empty(t, resolvePaths(t, r, nil, nil))
}

func TestResolve_ReflectsFilesystemChanges(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "scss/a.scss")
	r, err := NewResolver(root)
	require.NoError(t, err)
	seq := r.Resolve([]string{"scss/*.scss"}, nil)

	first, err := Collect(seq)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, os.WriteFile(filepath.Join(root, "scss", "b.scss"), nil, 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "scss", "a.scss")))

	second, err := Collect(seq)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, filepath.Join(root, "scss", "b.scss"), second[0].Path)
}

func TestResolve_StopsWhenConsumerStops(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "a/1.txt", "a/2.txt", "a/3.txt")
	r, err := NewResolver(root)
	require.NoError(t, err)

	count := 0
	for _, err := range r.Resolve([]string{"a/*.txt"}, nil) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestResolve_InvalidPattern(t *testing.T) {
	t.Parallel()
	r, err := NewResolver(t.TempDir())
	require.NoError(t, err)

	_, err = Collect(r.Resolve([]string{"scss/[.scss"}, nil))
	assert.ErrorContains(t, err, "invalid glob pattern")

	_, err = Collect(r.Resolve([]string{" "}, nil))
	assert.ErrorContains(t, err, "empty")
}

func TestMatcher(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	r, err := NewResolver(root)
	require.NoError(t, err)

	m, err := r.Matcher([]string{"app/*.html", "tpl/**/*.{html,njk}"}, []string{"tpl/partials"})
	require.NoError(t, err)

	assert.True(t, m.Match(filepath.Join(root, "app", "index.html")))
	assert.False(t, m.Match(filepath.Join(root, "app", "sub", "index.html")))
	assert.True(t, m.Match(filepath.Join(root, "tpl", "pages", "a.njk")))
	assert.False(t, m.Match(filepath.Join(root, "tpl", "partials", "nav.njk")))
	assert.False(t, m.Match(filepath.Join(root, "app", "main.css")))

	assert.ElementsMatch(t, []string{filepath.Join(root, "app"), filepath.Join(root, "tpl")}, m.Bases())
}
