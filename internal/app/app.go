package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/dag"
	"github.com/vk/pipegrid/internal/glob"
	"github.com/vk/pipegrid/internal/hcl"
	"github.com/vk/pipegrid/internal/notify"
	"github.com/vk/pipegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	model     *config.Model
	converter config.Converter
	registry  *registry.Registry
	resolver  *glob.Resolver
	graph     *dag.Graph
	executor  *dag.Executor
	sink      notify.Sink
	env       []string
}

// NewApp loads the buildfile, registers modules and builds the task graph.
// Any buildfile, action or argument problem is returned before a task runs.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	env, err := loadEnv(cfg.EnvFile)
	if err != nil {
		return nil, err
	}

	loader := hcl.NewLoader(cfg.Root, env)
	model, converter, err := loader.Load(ctx, cfg.BuildfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load buildfile: %w", err)
	}
	logger.Debug("Buildfile loaded.", "root", model.Root, "tasks", len(model.Tasks))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "actions", reg.Names())

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}

	resolver, err := glob.NewResolver(model.Root)
	if err != nil {
		return nil, err
	}

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		model:     model,
		converter: converter,
		registry:  reg,
		resolver:  resolver,
		graph:     dag.New(),
		env:       environList(env),
		sink:      notify.Multi(notify.LogSink{}, notify.NewConsoleSink(outW, cfg.Beep)),
	}
	if err := a.buildGraph(ctx); err != nil {
		return nil, err
	}
	a.executor = dag.NewExecutor(a.graph, cfg.WorkerCount, a.sink)
	return a, nil
}

// buildGraph registers every buildfile task, binding its action and decoded
// arguments.
func (a *App) buildGraph(ctx context.Context) error {
	for _, task := range a.model.Tasks {
		action, err := a.taskAction(ctx, task)
		if err != nil {
			return err
		}
		err = a.graph.RegisterTask(dag.Task{
			Name:          task.Name,
			Description:   task.Description,
			Prerequisites: task.DependsOn,
			Action:        action,
		})
		if err != nil {
			return err
		}
	}
	a.logger.Debug("Task graph built.", "tasks", len(a.model.Tasks))
	return nil
}

func (a *App) taskAction(ctx context.Context, task *config.Task) (dag.Action, error) {
	if task.Action == "" {
		return nil, nil
	}
	ra, ok := a.registry.Action(task.Action)
	if !ok {
		return nil, fmt.Errorf("task '%s': unknown action '%s'", task.Name, task.Action)
	}

	var input any
	if ra.NewInput != nil {
		input = ra.NewInput()
		if err := a.converter.DecodeArguments(ctx, task, input); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context) error {
		inv := &registry.Invocation{
			Task: task.Name,
			Root: a.model.Root,
			Env:  a.env,
		}
		if len(task.Inputs) > 0 {
			inv.Inputs = a.resolver.Resolve(task.Inputs, task.Exclude)
		}
		return ra.Fn(ctx, inv, input)
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded buildfile.
func (a *App) Model() *config.Model {
	return a.model
}
