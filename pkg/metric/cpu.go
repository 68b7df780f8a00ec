package metric

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/danpilch/metriclog/pkg/collectors/cpu"
)

// CPUUtilization reports the summed per-core utilization of the host since
// the previous read. A fully busy 4-core machine reports 4.00.
//
// The value is derived from OS counters only, so Reset does nothing.
type CPUUtilization struct {
	name   string
	source cpu.Source

	mu      sync.Mutex
	tracker *cpu.Tracker
}

// NewCPUUtilization creates the metric and takes the baseline sample. A nil
// source selects the platform default.
func NewCPUUtilization(name string, source cpu.Source) (*CPUUtilization, error) {
	if source == nil {
		source = cpu.DefaultSource()
	}

	initial, err := source()
	if err != nil {
		return nil, fmt.Errorf("sampling initial cpu times: %w", err)
	}

	return &CPUUtilization{
		name:    name,
		source:  source,
		tracker: cpu.NewTracker(initial),
	}, nil
}

// Name returns the metric name.
func (c *CPUUtilization) Name() string {
	return c.name
}

// Value samples the cores and returns the summed utilization with two decimals.
// A sampling failure is returned as is and leaves the baseline untouched.
func (c *CPUUtilization) Value() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.source()
	if err != nil {
		return "", fmt.Errorf("sampling cpu times: %w", err)
	}
	c.tracker.Update(current)

	return strconv.FormatFloat(c.tracker.Sum(), 'f', 2, 64), nil
}

// Usages returns the per-core utilization computed by the last Value call.
func (c *CPUUtilization) Usages() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Usages()
}

// Reset is a no-op.
func (c *CPUUtilization) Reset() {}
