package dag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/notify"
)

// Executor runs resolved plans on a bounded worker pool.
type Executor struct {
	graph      *Graph
	numWorkers int
	sink       notify.Sink
}

// NewExecutor returns an executor over g. workers below 1 run sequentially.
func NewExecutor(g *Graph, workers int, sink notify.Sink) *Executor {
	if workers < 1 {
		workers = 1
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Executor{graph: g, numWorkers: workers, sink: sink}
}

// Graph returns the registry the executor resolves targets against.
func (e *Executor) Graph() *Graph {
	return e.graph
}

// runNode is the per-invocation state of a planned step.
type runNode struct {
	step     *step
	depCount atomic.Int32
	state    atomic.Int32
	err      error
	// finish releases the node's WaitGroup slot exactly once, whichever of
	// execute, skip-on-halt or skip-dependents gets there first.
	finish sync.Once
}

type run struct {
	nodes  []*runNode
	wg     sync.WaitGroup
	halted atomic.Bool

	mu         sync.Mutex
	rootCause  error
	failedTask string
}

func (r *run) fail(task string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rootCause == nil {
		r.rootCause = err
		r.failedTask = task
	}
	r.halted.Store(true)
}

// Run resolves target and executes its plan. Resolution errors are returned
// before any task starts. Otherwise the first task failure is returned once
// every task that had already started has finished.
func (e *Executor) Run(ctx context.Context, target string) error {
	plan, err := e.graph.Resolve(target)
	if err != nil {
		return err
	}
	return e.Execute(ctx, plan)
}

// Execute runs an already resolved plan.
func (e *Executor) Execute(ctx context.Context, plan *Plan) error {
	ctx, logger := ctxlog.With(ctx, "target", plan.Target, "run_id", uuid.NewString())

	r := &run{nodes: make([]*runNode, len(plan.steps))}
	for i, s := range plan.steps {
		n := &runNode{step: s}
		n.depCount.Store(int32(len(s.deps)))
		r.nodes[i] = n
	}
	if len(r.nodes) == 0 {
		return nil
	}

	readyChan := make(chan *runNode, len(r.nodes))
	rootCount := 0
	for _, n := range r.nodes {
		if n.depCount.Load() == 0 {
			readyChan <- n
			rootCount++
		}
	}
	logger.Debug("Plan resolved.", "tasks", plan.Order(), "roots", rootCount)

	r.wg.Add(len(r.nodes))

	workers := min(e.numWorkers, len(r.nodes))
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, r, readyChan, i)
	}

	r.wg.Wait()
	close(readyChan)

	if r.rootCause != nil {
		skipped := 0
		for _, n := range r.nodes {
			if NodeState(n.state.Load()) == Skipped {
				skipped++
			}
		}
		logger.Error("Build failed.", "failed_task", r.failedTask, "skipped", skipped)
		return fmt.Errorf("execution of '%s' failed: %w", plan.Target, r.rootCause)
	}

	logger.Debug("Build finished.", "tasks", len(r.nodes))
	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, r *run, readyChan chan *runNode, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for n := range readyChan {
		taskCtx, taskLogger := ctxlog.With(ctx, "workerID", workerID, "task", n.step.name)

		if r.halted.Load() {
			n.finish.Do(func() {
				taskLogger.Warn("Build halted, task not started.")
				n.state.Store(int32(Skipped))
				n.err = errors.New("skipped: build halted after an earlier failure")
				r.wg.Done()
				e.skipDependents(ctx, r, n)
			})
			continue
		}

		taskLogger.Debug("Task started.")
		n.state.Store(int32(Running))
		start := time.Now()
		err := invoke(taskCtx, n.step)
		took := time.Since(start)

		if err != nil {
			terr := asTransformError(n.step.name, err)
			n.err = terr
			n.state.Store(int32(Failed))
			r.fail(n.step.name, terr)
			notify.SafeReport(taskCtx, e.sink, notify.FailureEvent(terr, took))
			e.skipDependents(ctx, r, n)
			n.finish.Do(r.wg.Done)
			continue
		}

		n.state.Store(int32(Done))
		notify.SafeReport(taskCtx, e.sink, notify.Event{
			Task:     n.step.name,
			Outcome:  notify.OutcomeSuccess,
			Message:  "completed",
			Duration: took,
			Time:     time.Now(),
		})

		for _, idx := range n.step.dependents {
			dependent := r.nodes[idx]
			if dependent.depCount.Add(-1) == 0 {
				taskLogger.Debug("Unlocking dependent task.", "dependent", dependent.step.name)
				readyChan <- dependent
			}
		}
		n.finish.Do(r.wg.Done)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream tasks as skipped.
func (e *Executor) skipDependents(ctx context.Context, r *run, n *runNode) {
	logger := ctxlog.FromContext(ctx)
	for _, idx := range n.step.dependents {
		dependent := r.nodes[idx]
		dependent.finish.Do(func() {
			logger.Warn("Skipping dependent task due to upstream failure.", "task", dependent.step.name, "dependency", n.step.name)
			dependent.state.Store(int32(Skipped))
			dependent.err = fmt.Errorf("skipped due to upstream failure of '%s'", n.step.name)
			r.wg.Done()
			e.skipDependents(ctx, r, dependent)
		})
	}
}

// invoke runs the step's action, turning a panic into an error.
func invoke(ctx context.Context, s *step) (err error) {
	if s.action == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action panicked: %v", rec)
		}
	}()
	return s.action(ctx)
}

func asTransformError(task string, err error) *notify.TransformError {
	var terr *notify.TransformError
	if errors.As(err, &terr) {
		if terr.Task == "" {
			terr.Task = task
		}
		return terr
	}
	return &notify.TransformError{Task: task, Message: err.Error(), Err: err}
}
