package cpu

// Tracker turns successive core time samples into per-core utilization.
// It is not safe for concurrent use; callers serialize Update.
type Tracker struct {
	prev   []CoreTimes
	usages []float64
}

// NewTracker creates a tracker using initial as the baseline sample.
func NewTracker(initial []CoreTimes) *Tracker {
	return &Tracker{
		prev:   cloneTimes(initial),
		usages: make([]float64, len(initial)),
	}
}

// Update folds a new sample into the tracker.
//
// When the number of cores differs from the baseline, history is discarded,
// every slot reports zero for this cycle and current becomes the new baseline.
func (t *Tracker) Update(current []CoreTimes) {
	if len(current) != len(t.prev) {
		t.prev = cloneTimes(current)
		t.usages = make([]float64, len(current))
		return
	}

	for i := range current {
		prev, curr := t.prev[i], current[i]

		prevTotal, currTotal := prev.Total(), curr.Total()
		if currTotal <= prevTotal {
			// no elapsed ticks, or the counters wrapped
			t.usages[i] = 0
			continue
		}
		totalDiff := currTotal - prevTotal

		var idleDiff uint64
		if curr.Idle > prev.Idle {
			idleDiff = curr.Idle - prev.Idle
		}

		t.usages[i] = clamp(1 - float64(idleDiff)/float64(totalDiff))
	}

	t.prev = cloneTimes(current)
}

// Usages returns a copy of the per-core utilization ratios, each in [0,1].
func (t *Tracker) Usages() []float64 {
	out := make([]float64, len(t.usages))
	copy(out, t.usages)
	return out
}

// Sum returns the sum of per-core utilization ratios. On a machine with N
// cores the result lies in [0,N].
func (t *Tracker) Sum() float64 {
	var sum float64
	for _, u := range t.usages {
		sum += u
	}
	return sum
}

// Cores returns the number of cores in the current baseline.
func (t *Tracker) Cores() int {
	return len(t.prev)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cloneTimes(times []CoreTimes) []CoreTimes {
	out := make([]CoreTimes, len(times))
	copy(out, times)
	return out
}
