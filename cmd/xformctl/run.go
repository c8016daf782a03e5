package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/danmuck/xformctl/internal/config"
	"github.com/danmuck/xformctl/internal/engine"
	"github.com/danmuck/xformctl/internal/launch"
	"github.com/danmuck/xformctl/internal/resource"
	"github.com/danmuck/xformctl/internal/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

type runOptions struct {
	file        string
	print       bool
	noSave      bool
	watch       bool
	metricsFile string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transformation described by a launch file",
		Long: `Run loads the launch file, binds its schemas and graphs, executes the
module and saves every output and inout graph to its location.

Examples:
  xformctl run -f launch.toml
  xformctl run -f launch.toml --print --no-save
  xformctl run -f launch.toml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return watch(ctx, opts, root.logger, cmd.OutOrStdout())
			}
			err := runOnce(opts, schema.DefaultRegistry().WithLogger(root.logger), root.logger, cmd.OutOrStdout())
			if opts.metricsFile != "" {
				if merr := prometheus.WriteToTextfile(opts.metricsFile, prometheus.DefaultGatherer); merr != nil {
					root.logger.Warn().Err(merr).Str("path", opts.metricsFile).Msg("metrics write failed")
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "launch.toml", "launch file")
	cmd.Flags().BoolVar(&opts.print, "print", false, "print result graphs")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not write result graphs")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-run when the module, schemas or inputs change")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write prometheus metrics to this file after the run")
	return cmd
}

func runOnce(opts *runOptions, registry *schema.Registry, logger zerolog.Logger, out io.Writer) error {
	cfg, err := config.Load(opts.file)
	if err != nil {
		return err
	}
	factory, err := engine.Get(cfg.Engine)
	if err != nil {
		return err
	}
	built, err := cfg.Builder().Build()
	if err != nil {
		return err
	}
	result, err := launch.NewLauncher(factory, registry, logger).Run(built)
	if err != nil {
		return err
	}

	save := cfg.Output.Save && !opts.noSave
	printGraphs := cfg.Output.Print || opts.print
	for _, name := range result.Names() {
		g := result[name]
		data, err := g.Encode()
		if err != nil {
			return err
		}
		if save && g.Location != "" {
			if err := saveIfChanged(g, data, logger); err != nil {
				return err
			}
		}
		if printGraphs {
			fmt.Fprintf(out, "# %s\n%s", name, data)
		}
	}
	return nil
}

// saveIfChanged leaves files that already hold data untouched so their
// modification time and inode survive idempotent runs.
func saveIfChanged(g *resource.Graph, data []byte, logger zerolog.Logger) error {
	if resource.Equal(g.Location, data) {
		logger.Debug().Str("graph", g.Name).Str("path", g.Location).Msg("graph unchanged")
		return nil
	}
	if err := resource.WriteFileAtomic(g.Location, data); err != nil {
		return err
	}
	logger.Info().Str("graph", g.Name).Str("path", g.Location).Msg("graph saved")
	return nil
}

// watchTargets returns the files whose changes trigger a run and the
// directories to subscribe to.
func watchTargets(cfg config.LaunchConfig, launchFile string) (targets, dirs map[string]bool) {
	targets = map[string]bool{launchFile: true}
	dirs = map[string]bool{filepath.Dir(launchFile): true}
	for _, p := range cfg.WatchPaths() {
		targets[p] = true
		dirs[filepath.Dir(p)] = true
	}
	return targets, dirs
}

// watch re-runs the launch file whenever one of the files it reads changes.
// Parent directories are watched so editors that replace files on save are
// seen. Each run gets a fresh schema registry so schema edits apply.
func watch(ctx context.Context, opts *runOptions, logger zerolog.Logger, out io.Writer) error {
	cfg, err := config.Load(opts.file)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	launchFile, err := filepath.Abs(opts.file)
	if err != nil {
		return err
	}
	targets, dirs := watchTargets(cfg, launchFile)
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	rerun := func() {
		if err := runOnce(opts, schema.NewRegistry(nil).WithLogger(logger), logger, out); err != nil {
			logger.Error().Err(err).Msg("run failed")
		}
	}
	rerun()

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")
				timer = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		case <-timer:
			timer = nil
			rerun()
		}
	}
}
