package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/romdo/go-debounce"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/glob"
	"github.com/vk/pipegrid/internal/notify"
)

// DefaultDebounce is the quiet period after the last matching event before a
// binding fires.
const DefaultDebounce = 200 * time.Millisecond

// State is the lifecycle state of a Loop.
type State int32

const (
	Idle State = iota
	Watching
	Triggering
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Watching:
		return "Watching"
	case Triggering:
		return "Triggering"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Runner executes a target and its prerequisites. *dag.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, target string) error
}

// Reloader is told which paths changed when a reload binding fires.
type Reloader interface {
	Reload(ctx context.Context, paths []string) error
}

// ErrNotIdle is returned when bindings are added after Run was called.
var ErrNotIdle = errors.New("watch loop already started")

// Option configures a Loop.
type Option func(*Loop)

// WithDebounce sets the coalescing window. Zero or negative keeps the default.
func WithDebounce(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.wait = d
		}
	}
}

// WithReloader sets the target of reload signals.
func WithReloader(r Reloader) Option {
	return func(l *Loop) { l.reloader = r }
}

// WithSink sets where failures that never reached the scheduler are reported.
func WithSink(s notify.Sink) Option {
	return func(l *Loop) { l.sink = s }
}

// Loop dispatches filesystem changes to bindings.
type Loop struct {
	resolver *glob.Resolver
	source   EventSource
	runner   Runner
	reloader Reloader
	sink     notify.Sink
	wait     time.Duration

	state  atomic.Int32
	active atomic.Int32

	mu       sync.Mutex
	bindings []*Binding
	stopping bool
	inFlight sync.WaitGroup
}

// New creates an idle loop for the project at root.
func New(root string, source EventSource, runner Runner, opts ...Option) (*Loop, error) {
	resolver, err := glob.NewResolver(root)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		resolver: resolver,
		source:   source,
		runner:   runner,
		sink:     notify.Discard,
		wait:     DefaultDebounce,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Watch binds patterns to tasks, run in order when a matching file changes.
func (l *Loop) Watch(patterns, excludes []string, tasks ...string) (*Binding, error) {
	if len(tasks) == 0 {
		return nil, errors.New("watch binding needs at least one task")
	}
	return l.bind(patterns, excludes, tasks, false)
}

// Reload binds patterns to a reload signal.
func (l *Loop) Reload(patterns, excludes []string) (*Binding, error) {
	return l.bind(patterns, excludes, nil, true)
}

func (l *Loop) bind(patterns, excludes, tasks []string, reload bool) (*Binding, error) {
	if len(patterns) == 0 {
		return nil, errors.New("binding needs at least one pattern")
	}
	m, err := l.resolver.Matcher(patterns, excludes)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.State() != Idle {
		return nil, ErrNotIdle
	}
	b := &Binding{
		loop:     l,
		matcher:  m,
		patterns: patterns,
		tasks:    tasks,
		reload:   reload,
		changed:  make(map[string]struct{}),
	}
	l.bindings = append(l.bindings, b)
	return b, nil
}

// Run watches until ctx is cancelled or the event source fails. Bindings
// executing at that point are allowed to finish.
func (l *Loop) Run(ctx context.Context) error {
	ctx, logger := ctxlog.With(ctx, "component", "watch")

	l.mu.Lock()
	if !l.state.CompareAndSwap(int32(Idle), int32(Watching)) {
		l.mu.Unlock()
		return ErrNotIdle
	}
	bindings := slices.Clone(l.bindings)
	l.mu.Unlock()

	for _, b := range bindings {
		b.start(ctx)
	}
	defer l.shutdown(bindings)

	for _, dir := range watchRoots(bindings) {
		if err := l.source.Add(dir); err != nil {
			return l.fail(&SourceError{Err: err})
		}
		logger.Debug("Watching directory.", "path", dir)
	}
	logger.Info("Watching for changes.", "bindings", len(bindings))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch loop stopping.")
			return nil
		case ev, ok := <-l.source.Events():
			if !ok {
				return l.fail(&SourceError{Err: errSourceClosed})
			}
			for _, b := range bindings {
				if b.matcher.Match(ev.Path) {
					logger.Debug("Change matched binding.", "path", ev.Path, "op", ev.Op.String(), "binding", b.String())
					b.notify(ev.Path)
				}
			}
		case err, ok := <-l.source.Errors():
			if !ok {
				return l.fail(&SourceError{Err: errSourceClosed})
			}
			if errors.Is(err, ErrOverflow) {
				logger.Warn("Filesystem events were dropped.", "error", err)
				continue
			}
			return l.fail(&SourceError{Err: err})
		}
	}
}

func (l *Loop) fail(err error) error {
	l.state.Store(int32(Stopped))
	return err
}

// shutdown stops pending triggers, waits for running ones and closes the
// source.
func (l *Loop) shutdown(bindings []*Binding) {
	l.mu.Lock()
	l.stopping = true
	l.mu.Unlock()
	for _, b := range bindings {
		b.stop()
	}
	l.inFlight.Wait()
	l.state.Store(int32(Stopped))
	_ = l.source.Close()
}

// enter registers a trigger. It returns false once shutdown has begun.
func (l *Loop) enter() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopping {
		return false
	}
	l.inFlight.Add(1)
	if l.active.Add(1) == 1 {
		l.state.CompareAndSwap(int32(Watching), int32(Triggering))
	}
	return true
}

func (l *Loop) leave() {
	if l.active.Add(-1) == 0 {
		l.state.CompareAndSwap(int32(Triggering), int32(Watching))
	}
	l.inFlight.Done()
}

// watchRoots returns the minimal set of existing directories covering every
// binding's pattern bases.
func watchRoots(bindings []*Binding) []string {
	var dirs []string
	for _, b := range bindings {
		for _, base := range b.matcher.Bases() {
			dirs = append(dirs, existingAncestor(base))
		}
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	var roots []string
	for _, d := range dirs {
		covered := false
		for _, r := range roots {
			if d == r || isWithin(r, d) {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, d)
		}
	}
	return roots
}

func existingAncestor(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Binding is one watch or reload registration.
type Binding struct {
	loop     *Loop
	matcher  *glob.Matcher
	patterns []string
	tasks    []string
	reload   bool

	mu          sync.Mutex
	reloadAfter bool
	changed     map[string]struct{}
	running     bool
	pending     bool
	trigger     func()
	cancel      func()
}

// ReloadAfter makes a task binding send a reload signal after all of its
// tasks succeeded. It must be called before Run.
func (b *Binding) ReloadAfter() *Binding {
	b.mu.Lock()
	b.reloadAfter = true
	b.mu.Unlock()
	return b
}

func (b *Binding) String() string {
	if b.reload {
		return fmt.Sprintf("reload%v", b.patterns)
	}
	return fmt.Sprintf("watch%v->%v", b.patterns, b.tasks)
}

func (b *Binding) start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trigger, b.cancel = debounce.New(b.loop.wait, func() { b.fire(ctx) })
}

func (b *Binding) stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// notify records a changed path and (re)arms the debounce timer.
func (b *Binding) notify(path string) {
	b.mu.Lock()
	b.changed[path] = struct{}{}
	trigger := b.trigger
	b.mu.Unlock()
	trigger()
}

// fire runs the binding. A fire arriving while a run is in flight is folded
// into one more run after it.
func (b *Binding) fire(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.pending = true
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	for {
		if ctx.Err() != nil || !b.loop.enter() {
			b.mu.Lock()
			b.running, b.pending = false, false
			b.mu.Unlock()
			return
		}
		b.execute(ctx, b.drain())
		b.loop.leave()

		// running and pending change together.
		b.mu.Lock()
		if !b.pending {
			b.running = false
			b.mu.Unlock()
			return
		}
		b.pending = false
		b.mu.Unlock()
	}
}

func (b *Binding) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.changed))
	for p := range b.changed {
		paths = append(paths, p)
	}
	clear(b.changed)
	slices.Sort(paths)
	return paths
}

func (b *Binding) execute(ctx context.Context, paths []string) {
	ctx, logger := ctxlog.With(ctx, "binding", b.String())
	logger.Info("Change detected.", "paths", len(paths))

	for _, task := range b.tasks {
		err := b.loop.runner.Run(ctx, task)
		if err == nil {
			continue
		}
		var terr *notify.TransformError
		if !errors.As(err, &terr) {
			// Resolution errors never reach the scheduler's sink.
			notify.SafeReport(ctx, b.loop.sink, notify.FailureEvent(&notify.TransformError{
				Task: task, Message: err.Error(), Err: err,
			}, 0))
		}
		logger.Warn("Rebuild failed, still watching.", "task", task, "error", err)
		return
	}

	b.mu.Lock()
	reload := b.reload || b.reloadAfter
	b.mu.Unlock()
	if !reload {
		return
	}
	if b.loop.reloader == nil {
		logger.Debug("Reload requested but no reloader configured.")
		return
	}
	if err := b.loop.reloader.Reload(ctx, paths); err != nil {
		logger.Warn("Reload failed.", "error", err)
	}
}
