package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_NoElapsedTicks(t *testing.T) {
	sample := []CoreTimes{
		{User: 100, System: 50, Idle: 850},
		{User: 10, System: 5, Idle: 85},
	}
	tr := NewTracker(sample)

	tr.Update(sample)

	assert.Equal(t, []float64{0, 0}, tr.Usages())
	assert.Zero(t, tr.Sum())
}

func TestTracker_AllIdle(t *testing.T) {
	tr := NewTracker([]CoreTimes{{User: 100, System: 50, Idle: 850}})

	tr.Update([]CoreTimes{{User: 100, System: 50, Idle: 950}})

	assert.Equal(t, []float64{0}, tr.Usages())
}

func TestTracker_FullyBusy(t *testing.T) {
	tr := NewTracker([]CoreTimes{{User: 100, System: 50, Idle: 850}})

	tr.Update([]CoreTimes{{User: 160, System: 90, Idle: 850}})

	assert.Equal(t, []float64{1}, tr.Usages())
}

func TestTracker_PartialAndSum(t *testing.T) {
	tr := NewTracker([]CoreTimes{
		{User: 0, System: 0, Idle: 0},
		{User: 0, System: 0, Idle: 0},
	})

	tr.Update([]CoreTimes{
		{User: 20, System: 5, Idle: 75},
		{User: 40, System: 10, Idle: 50},
	})

	usages := tr.Usages()
	require.Len(t, usages, 2)
	assert.InDelta(t, 0.25, usages[0], 1e-9)
	assert.InDelta(t, 0.5, usages[1], 1e-9)
	assert.InDelta(t, 0.75, tr.Sum(), 1e-9)
}

func TestTracker_CoreCountChangeDiscardsHistory(t *testing.T) {
	tr := NewTracker([]CoreTimes{{User: 0, System: 0, Idle: 0}})
	tr.Update([]CoreTimes{{User: 50, System: 0, Idle: 50}})
	require.InDelta(t, 0.5, tr.Sum(), 1e-9)

	// a second core appears: no delta is computed this cycle
	tr.Update([]CoreTimes{
		{User: 100, System: 0, Idle: 100},
		{User: 1000, System: 0, Idle: 0},
	})
	assert.Equal(t, []float64{0, 0}, tr.Usages())
	assert.Equal(t, 2, tr.Cores())

	// the next cycle diffs against the new baseline
	tr.Update([]CoreTimes{
		{User: 100, System: 0, Idle: 200},
		{User: 1100, System: 0, Idle: 0},
	})
	assert.Equal(t, []float64{0, 1}, tr.Usages())
}

func TestTracker_CounterWrap(t *testing.T) {
	tr := NewTracker([]CoreTimes{{User: 500, System: 500, Idle: 500}})

	tr.Update([]CoreTimes{{User: 1, System: 1, Idle: 1}})

	assert.Equal(t, []float64{0}, tr.Usages())
}

func TestTracker_UsagesIsCopy(t *testing.T) {
	tr := NewTracker([]CoreTimes{{}})
	tr.Update([]CoreTimes{{User: 10, Idle: 10}})

	u := tr.Usages()
	u[0] = 42

	assert.InDelta(t, 0.5, tr.Usages()[0], 1e-9)
}
