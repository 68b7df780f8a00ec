package main

import (
	"errors"

	"github.com/danpilch/metriclog/pkg/benchmark"
	"github.com/danpilch/metriclog/pkg/collectors/cpu"
	"github.com/danpilch/metriclog/pkg/metric"
	"github.com/spf13/cobra"
)

func newBenchCommand(a *app) *cobra.Command {
	opts := benchmark.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure how long each demo metric takes to read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := benchMetrics()
			if err != nil {
				if !errors.Is(err, cpu.ErrUnsupported) {
					return err
				}
				a.logger.WithError(err).Warn("CPU utilization metric disabled")
			}

			results := benchmark.Run(metrics, opts)
			benchmark.RenderResults(cmd.OutOrStdout(), results, benchmark.MeasureOverhead())
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Iterations, "iterations", opts.Iterations, "timed reads per metric")
	cmd.Flags().IntVar(&opts.Warmup, "warmup", opts.Warmup, "untimed reads per metric")
	return cmd
}

// benchMetrics builds the demo metrics. When CPU sampling fails the counter
// and average are still returned alongside the error.
func benchMetrics() ([]metric.Metric, error) {
	requests := metric.NewCounter(requestsMetricName)
	requests.Add(1)
	average := metric.NewAverage(averageMetricName)
	average.Add(1)
	metrics := []metric.Metric{requests, average}

	c, err := metric.NewCPUUtilization(cpuMetricName, cpu.DefaultSource())
	if err != nil {
		return metrics, err
	}
	return append([]metric.Metric{c}, metrics...), nil
}
