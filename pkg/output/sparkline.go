package output

import (
	"strings"
	"sync"
)

// DefaultSparklineWidth is the window used when NewSparklineTracker gets a
// non-positive size.
const DefaultSparklineWidth = 20

// SparklineTracker keeps the most recent values of each metric.
type SparklineTracker struct {
	mu     sync.Mutex
	data   map[string][]float64
	maxLen int
}

// NewSparklineTracker creates a tracker keeping maxLen values per metric.
func NewSparklineTracker(maxLen int) *SparklineTracker {
	if maxLen < 1 {
		maxLen = DefaultSparklineWidth
	}
	return &SparklineTracker{
		data:   make(map[string][]float64),
		maxLen: maxLen,
	}
}

// Record appends a value for the named metric, dropping the oldest value
// once the window is full.
func (s *SparklineTracker) Record(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := append(s.data[name], value)
	if len(values) > s.maxLen {
		values = values[len(values)-s.maxLen:]
	}
	s.data[name] = values
}

// Values returns a copy of the window for the named metric.
func (s *SparklineTracker) Values(name string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float64, len(s.data[name]))
	copy(out, s.data[name])
	return out
}

// Sparkline renders the window for the named metric, or "" when empty.
func (s *SparklineTracker) Sparkline(name string) string {
	return renderSparkline(s.Values(name))
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

func renderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	span := hi - lo
	top := len(sparkBlocks) - 1
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(top))
		}
		b.WriteRune(sparkBlocks[max(0, min(idx, top))])
	}

	return b.String()
}
