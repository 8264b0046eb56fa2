package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/livereload"
	"github.com/vk/pipegrid/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Run builds the configured target. When the target task is marked with
// `watch = true`, the dev server and watch loop keep running after a
// successful build until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.List {
		return a.listTasks()
	}

	target := a.config.Target
	if target == "" {
		target = a.model.Target()
	}

	a.logger.Info("Starting build.", "target", target, "workers", a.config.WorkerCount)
	if err := a.executor.Run(ctx, target); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	a.logger.Info("Build finished.", "target", target)

	if task := a.model.Task(target); task == nil || !task.Watch {
		return nil
	}
	return a.serve(ctx)
}

// serve runs the dev server (if any) and the watch loop side by side. The
// first one to fail stops the other. Nothing is started until every watch
// binding is in place.
func (a *App) serve(ctx context.Context) error {
	opts := []watch.Option{watch.WithDebounce(a.config.Debounce), watch.WithSink(a.sink)}
	var srv *livereload.Server
	if srvCfg := a.serverConfig(); srvCfg != nil {
		srv = livereload.New(*srvCfg, a.logger)
		opts = append(opts, watch.WithReloader(srv))
	}

	source, err := watch.NewFSSource(a.logger)
	if err != nil {
		return err
	}
	loop, err := watch.New(a.model.Root, source, a.executor, opts...)
	if err != nil {
		_ = source.Close()
		return err
	}
	if err := a.bindWatches(loop); err != nil {
		_ = source.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if srv != nil {
		if _, err := srv.Listen(); err != nil {
			_ = source.Close()
			return err
		}
		g.Go(func() error { return srv.Run(ctx) })
	}
	g.Go(func() error { return loop.Run(ctx) })
	return g.Wait()
}

func (a *App) serverConfig() *livereload.Config {
	srv := a.model.Server
	if srv == nil && a.config.Listen == "" {
		return nil
	}
	cfg := livereload.Config{Root: a.model.Root, StartPath: "/"}
	if srv != nil {
		cfg = livereload.Config{Listen: srv.Listen, Root: srv.Root, StartPath: srv.StartPath}
	}
	if a.config.Listen != "" {
		cfg.Listen = a.config.Listen
	}
	return &cfg
}

func (a *App) bindWatches(loop *watch.Loop) error {
	for _, w := range a.model.Watches {
		switch w.Kind {
		case config.WatchReload:
			if _, err := loop.Reload(w.Patterns, w.Exclude); err != nil {
				return fmt.Errorf("reload '%s': %w", w.Name, err)
			}
		default:
			b, err := loop.Watch(w.Patterns, w.Exclude, w.Tasks...)
			if err != nil {
				return fmt.Errorf("watch '%s': %w", w.Name, err)
			}
			if w.Reload {
				b.ReloadAfter()
			}
		}
		a.logger.Debug("Watch binding registered.", "binding", w.Name, "kind", w.Kind.String())
	}
	return nil
}

// listTasks prints every task with its prerequisites and description.
func (a *App) listTasks() error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tDEPENDS ON\tDESCRIPTION")
	for _, name := range a.graph.Names() {
		task, _ := a.graph.Task(name)
		marker := ""
		if name == a.model.Target() {
			marker = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", name, marker, strings.Join(task.Prerequisites, ", "), task.Description)
	}
	return tw.Flush()
}
