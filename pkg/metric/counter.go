package metric

import (
	"strconv"
	"sync/atomic"
)

// Counter is an unsigned accumulator.
type Counter struct {
	name  string
	value atomic.Uint64
}

// NewCounter creates a counter starting at zero.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Add adds delta to the counter.
func (c *Counter) Add(delta uint64) {
	c.value.Add(delta)
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Load returns the current count.
func (c *Counter) Load() uint64 {
	return c.value.Load()
}

// Value returns the count as a decimal integer.
func (c *Counter) Value() (string, error) {
	return strconv.FormatUint(c.value.Load(), 10), nil
}

// Drain returns the count and sets the counter to zero atomically.
func (c *Counter) Drain() (string, error) {
	return strconv.FormatUint(c.value.Swap(0), 10), nil
}

// Reset sets the counter to zero.
func (c *Counter) Reset() {
	c.value.Store(0)
}
