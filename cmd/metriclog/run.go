package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danpilch/metriclog/pkg/collectors/cpu"
	"github.com/danpilch/metriclog/pkg/config"
	"github.com/danpilch/metriclog/pkg/debug"
	"github.com/danpilch/metriclog/pkg/manager"
	"github.com/danpilch/metriclog/pkg/workload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	cpuMetricName      = "CPU"
	requestsMetricName = "HTTP requests RPS"
	averageMetricName  = "Rand Avg value"
)

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("file", "f", config.DefaultPath, "metrics file to append to")
	flags.DurationP("interval", "i", config.DefaultInterval, "flush interval")
	flags.DurationP("duration", "d", config.DefaultDemoDuration, "how long to feed synthetic values (0 runs until interrupted)")
	flags.Duration("feed-interval", config.DefaultFeedInterval, "pause between synthetic values")
	flags.Int("load-workers", -1, "CPU burning goroutines (negative: logical cores - 1)")
	flags.Int64("seed", config.DefaultSeed, "seed for synthetic values")
	flags.String("pprof", "", "serve pprof on this address")
}

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Feed synthetic metrics and append them to the metrics file",
		Example: `  metriclog run
  metriclog run --file /tmp/metrics.log --interval 500ms --duration 30s
  metriclog run --config metriclog.toml --load-workers 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, a.cfg, a.logger)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// runDemo registers the demo metrics, starts the manager, drives synthetic
// load until the configured duration elapses or ctx is cancelled, and stops.
func runDemo(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (err error) {
	if cfg.Debug.PprofAddr != "" {
		stopPprof, err := debug.StartPprofServer(cfg.Debug.PprofAddr, logger)
		if err != nil {
			return err
		}
		defer stopPprof()
	}

	m := manager.New(logger)

	if _, err := m.NewCPUUtilization(cpuMetricName); err != nil {
		if !errors.Is(err, cpu.ErrUnsupported) {
			return err
		}
		logger.WithError(err).Warn("CPU utilization metric disabled")
	}
	requests := m.NewCounter(requestsMetricName)
	average := m.NewAverage(averageMetricName)

	path := cfg.Output.Path
	if err := m.Start(path, time.Duration(cfg.Output.Interval)); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, m.Stop())
		if err == nil {
			logger.WithField("path", path).Info("Simulation finished")
		}
	}()

	if d := time.Duration(cfg.Demo.Duration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	workers := workload.Workers(cfg.Demo.LoadWorkers, cpu.LogicalCores())
	feeder := workload.NewFeeder(requests, average, time.Duration(cfg.Demo.FeedInterval), cfg.Demo.Seed, logger)

	logger.WithFields(logrus.Fields{
		"path":     path,
		"interval": time.Duration(cfg.Output.Interval),
		"duration": time.Duration(cfg.Demo.Duration),
		"workers":  workers,
	}).Info("Starting metric simulation")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return workload.BurnCPU(gctx, workers, logger)
	})
	g.Go(func() error {
		steps := feeder.Run(gctx)
		logger.WithField("steps", steps).Debug("Feeder stopped")
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	return nil
}
