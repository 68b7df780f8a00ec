// Package workload generates synthetic activity for demonstrating the metric
// manager: busy CPU goroutines and random metric feeds.
package workload

import (
	"context"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Workers resolves a configured worker count. A negative value means one
// less than the number of logical cores, but at least one.
func Workers(configured, cores int) int {
	if configured >= 0 {
		return configured
	}
	if cores > 1 {
		return cores - 1
	}
	return 1
}

// BurnCPU keeps workers goroutines busy with floating point work until ctx
// is done.
func BurnCPU(ctx context.Context, workers int, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	logger.WithField("workers", workers).Info("Starting cpu load")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			spin(ctx)
			return nil
		})
	}
	return g.Wait()
}

func spin(ctx context.Context) {
	result := 1.23
	for {
		for i := 0; i < 1<<14; i++ {
			result = math.Sqrt(math.Abs(result))*math.Sin(result) + math.Cos(result)*math.Tan(result)
		}
		select {
		case <-ctx.Done():
			return
		default:
			runtime.KeepAlive(result)
		}
	}
}
