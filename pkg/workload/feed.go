package workload

import (
	"context"
	"math/rand"
	"time"

	"github.com/danpilch/metriclog/pkg/metric"
	"github.com/sirupsen/logrus"
)

const (
	minRequests = 10
	maxRequests = 1000
	maxValue    = 2.0
)

// Feeder adds random values to a counter and an average at a fixed pace.
type Feeder struct {
	Counter  *metric.Counter
	Average  *metric.Average
	Interval time.Duration

	rng    *rand.Rand
	logger *logrus.Logger
}

// NewFeeder creates a feeder with a deterministic generator.
func NewFeeder(counter *metric.Counter, average *metric.Average, interval time.Duration, seed int64, logger *logrus.Logger) *Feeder {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Feeder{
		Counter:  counter,
		Average:  average,
		Interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

// Step adds one counter value in [10,1000] and one average value in [0,2).
func (f *Feeder) Step() (requests uint64, value float64) {
	requests = uint64(minRequests + f.rng.Intn(maxRequests-minRequests+1))
	value = f.rng.Float64() * maxValue

	f.Counter.Add(requests)
	f.Average.Add(value)

	f.logger.WithFields(logrus.Fields{
		"requests": requests,
		"value":    value,
	}).Debug("Fed synthetic values")
	return requests, value
}

// Run calls Step every Interval until ctx is done. It returns the number of steps.
func (f *Feeder) Run(ctx context.Context) int {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	steps := 0
	for {
		f.Step()
		steps++

		select {
		case <-ctx.Done():
			return steps
		case <-ticker.C:
		}
	}
}
