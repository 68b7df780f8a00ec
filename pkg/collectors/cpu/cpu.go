// Package cpu samples per-core CPU time counters and turns successive samples
// into utilization ratios.
package cpu

import "errors"

// ErrUnsupported is returned by ReadCoreTimes on platforms without a sampling source.
var ErrUnsupported = errors.New("cpu: core time sampling is not supported on this platform")

// CoreTimes holds cumulative tick counters for one logical core since boot.
type CoreTimes struct {
	User   uint64
	System uint64
	Idle   uint64
}

// Total returns the sum of user, system and idle ticks.
func (t CoreTimes) Total() uint64 {
	return t.User + t.System + t.Idle
}

// Source returns one CoreTimes entry per logical core. Platforms that only
// expose aggregate counters return a single entry.
type Source func() ([]CoreTimes, error)

// DefaultSource returns the platform sampling source.
func DefaultSource() Source {
	return ReadCoreTimes
}
