package metric

import (
	"strconv"
	"sync"
)

// Average tracks the arithmetic mean of the values added since the last reset.
type Average struct {
	name string

	mu    sync.Mutex
	sum   float64
	count uint64
}

// NewAverage creates an empty average.
func NewAverage(name string) *Average {
	return &Average{name: name}
}

// Name returns the average name.
func (a *Average) Name() string {
	return a.name
}

// Add records one value.
func (a *Average) Add(v float64) {
	a.mu.Lock()
	a.sum += v
	a.count++
	a.mu.Unlock()
}

// Snapshot returns the running sum and count as one consistent pair.
func (a *Average) Snapshot() (sum float64, count uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum, a.count
}

// Value returns the mean with two decimals, or EmptyAverage when nothing was added.
func (a *Average) Value() (string, error) {
	return formatMean(a.Snapshot()), nil
}

// Drain returns the mean and clears the average under one lock.
func (a *Average) Drain() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := formatMean(a.sum, a.count)
	a.sum = 0
	a.count = 0
	return v, nil
}

// Reset clears the sum and count.
func (a *Average) Reset() {
	a.mu.Lock()
	a.sum = 0
	a.count = 0
	a.mu.Unlock()
}

func formatMean(sum float64, count uint64) string {
	if count == 0 {
		return EmptyAverage
	}
	return strconv.FormatFloat(sum/float64(count), 'f', 2, 64)
}
