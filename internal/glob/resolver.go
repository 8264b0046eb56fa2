package glob

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// errStop aborts a walk once the consumer of a Sequence stops pulling.
var errStop = errors.New("glob: iteration stopped")

// Match is a single resolved file.
type Match struct {
	// Path is the absolute path of the file.
	Path string
	// Base is the static directory prefix of the pattern that produced the
	// match. Writers preserve the path below Base when copying or archiving.
	Base string
}

// Rel returns Path relative to Base.
func (m Match) Rel() string {
	rel, err := filepath.Rel(m.Base, m.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(m.Path)
	}
	return rel
}

// Sequence is a lazily produced stream of matches. A non-nil error is always
// the last element.
type Sequence iter.Seq2[Match, error]

// Resolver expands patterns against a fixed project root.
type Resolver struct {
	root string
}

// NewResolver returns a resolver rooted at root, which is made absolute.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve glob root %q: %w", root, err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute project root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the files matching at least one include pattern and no
// exclude pattern, deduplicated by absolute path. The filesystem is walked
// only while the sequence is consumed. Order is not guaranteed.
func (r *Resolver) Resolve(includes, excludes []string) Sequence {
	return func(yield func(Match, error) bool) {
		incs, excs, err := r.compile(includes, excludes)
		if err != nil {
			yield(Match{}, err)
			return
		}

		seen := make(map[string]struct{})
		for _, inc := range incs {
			stopped := false
			err := inc.walk(func(p string) bool {
				if _, dup := seen[p]; dup {
					return true
				}
				seen[p] = struct{}{}
				if excs.matches(p) {
					return true
				}
				if !yield(Match{Path: p, Base: inc.base}, nil) {
					stopped = true
					return false
				}
				return true
			})
			if stopped {
				return
			}
			if err != nil {
				yield(Match{}, err)
				return
			}
		}
	}
}

// Collect drains seq into a slice.
func Collect(seq Sequence) ([]Match, error) {
	var out []Match
	for m, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Matcher tests single paths against a compiled include/exclude set. The
// watch loop uses it to route filesystem events to bindings.
type Matcher struct {
	includes []pattern
	excludes exclusions
}

// Matcher compiles includes and excludes for repeated single-path tests.
func (r *Resolver) Matcher(includes, excludes []string) (*Matcher, error) {
	incs, excs, err := r.compile(includes, excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{includes: incs, excludes: excs}, nil
}

// Match reports whether the absolute path p is selected by the matcher.
func (m *Matcher) Match(p string) bool {
	slashed := filepath.ToSlash(filepath.Clean(p))
	if m.excludes.matches(p) {
		return false
	}
	for _, inc := range m.includes {
		if ok, _ := doublestar.Match(inc.abs, slashed); ok {
			return true
		}
	}
	return false
}

// Bases returns the distinct static directories of the include patterns.
func (m *Matcher) Bases() []string {
	seen := make(map[string]struct{}, len(m.includes))
	var bases []string
	for _, inc := range m.includes {
		if _, ok := seen[inc.base]; ok {
			continue
		}
		seen[inc.base] = struct{}{}
		bases = append(bases, inc.base)
	}
	return bases
}

// pattern is one compiled include pattern.
type pattern struct {
	raw  string
	abs  string // absolute, slash separated
	base string // absolute, OS separators
	glob string // remainder below base, slash separated
}

func (r *Resolver) compile(includes, excludes []string) ([]pattern, exclusions, error) {
	var incs []pattern
	var excs exclusions
	for _, raw := range includes {
		if neg, ok := strings.CutPrefix(raw, "!"); ok {
			excludes = append(excludes, neg)
			continue
		}
		p, err := r.compilePattern(raw)
		if err != nil {
			return nil, nil, err
		}
		incs = append(incs, p)
	}
	for _, raw := range excludes {
		p, err := r.compilePattern(strings.TrimPrefix(raw, "!"))
		if err != nil {
			return nil, nil, err
		}
		excs = append(excs, exclusion{
			pattern: p.abs,
			dir:     !strings.ContainsAny(p.raw, globMeta),
		})
	}
	return incs, excs, nil
}

func (r *Resolver) compilePattern(raw string) (pattern, error) {
	if strings.TrimSpace(raw) == "" {
		return pattern{}, fmt.Errorf("invalid glob pattern %q: empty", raw)
	}
	abs := raw
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.root, raw)
	}
	slashed := filepath.ToSlash(abs)
	if !doublestar.ValidatePattern(slashed) {
		return pattern{}, fmt.Errorf("invalid glob pattern %q", raw)
	}
	base, rest := doublestar.SplitPattern(slashed)
	return pattern{
		raw:  raw,
		abs:  slashed,
		base: filepath.FromSlash(base),
		glob: rest,
	}, nil
}

// walk calls fn for every regular file under the pattern base that matches.
// A missing base directory yields no matches.
func (p pattern) walk(fn func(string) bool) error {
	info, err := os.Stat(p.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat glob base %s: %w", p.base, err)
	}
	if !info.IsDir() {
		return nil
	}

	err = doublestar.GlobWalk(os.DirFS(p.base), p.glob, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		if !fn(filepath.Join(p.base, filepath.FromSlash(rel))) {
			return errStop
		}
		return nil
	}, doublestar.WithFilesOnly())
	if errors.Is(err, errStop) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to expand glob %q: %w", p.raw, err)
	}
	return nil
}

// globMeta are the characters that make a pattern a glob rather than a path.
const globMeta = "*?[{\\"

// exclusion is one absolute, slash separated exclude pattern. A plain path
// without glob characters also excludes everything below it, so `!app/css`
// drops `app/css/**`. Glob patterns match the path itself only.
type exclusion struct {
	pattern string
	dir     bool
}

type exclusions []exclusion

func (x exclusions) matches(p string) bool {
	if len(x) == 0 {
		return false
	}
	candidate := filepath.ToSlash(filepath.Clean(p))
	for _, ex := range x {
		if ok, _ := doublestar.Match(ex.pattern, candidate); ok {
			return true
		}
		if ex.dir && strings.HasPrefix(candidate, strings.TrimSuffix(ex.pattern, "/")+"/") {
			return true
		}
	}
	return false
}
