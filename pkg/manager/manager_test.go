package manager

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danpilch/metriclog/pkg/output"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestManager(t *testing.T) (*Manager, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(logger), hook
}

func readRecords(t *testing.T, path string) []output.Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := output.ReadRecords(f)
	require.NoError(t, err)
	return records
}

func entriesAt(hook *test.Hook, level logrus.Level) []logrus.Entry {
	var out []logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, *e)
		}
	}
	return out
}

// failingMetric fails to sample while fail is set.
type failingMetric struct {
	mu   sync.Mutex
	fail bool
}

func (f *failingMetric) Name() string { return "flaky" }

func (f *failingMetric) Value() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("sensor unavailable")
	}
	return "1.00", nil
}

func (f *failingMetric) Reset() {}

func (f *failingMetric) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func TestManager_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	c := m.NewCounter("HTTP requests RPS")
	for i := 0; i < 3; i++ {
		c.Add(5)
	}

	require.NoError(t, m.Start(path, 100*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, m.Stop())

	records := readRecords(t, path)
	require.NotEmpty(t, records)

	v, ok := records[0].Get("HTTP requests RPS")
	require.True(t, ok)
	assert.Equal(t, "15", v)

	var total uint64
	for _, rec := range records {
		v, _ := rec.Get("HTTP requests RPS")
		n, err := strconv.ParseUint(v, 10, 64)
		require.NoError(t, err)
		total += n
	}
	assert.EqualValues(t, 15, total)
}

func TestManager_StopFlushesPendingValues(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	c := m.NewCounter("count")
	a := m.NewAverage("avg")

	require.NoError(t, m.Start(path, time.Hour))
	c.Inc()
	c.Add(2)
	a.Add(1)
	a.Add(2)
	require.NoError(t, m.Stop())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSuffix(string(data), "\n")
	require.Len(t, line, len(output.TimestampLayout)+len(` "count" 3 "avg" 1.50`))
	assert.True(t, strings.HasSuffix(line, ` "count" 3 "avg" 1.50`), line)
	assert.Zero(t, c.Load())
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	m.NewCounter("count").Inc()

	require.NoError(t, m.Stop())
	require.NoError(t, m.Start(path, time.Hour))
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	assert.Len(t, readRecords(t, path), 1)
	assert.False(t, m.Running())
}

func TestManager_StartWhileRunning(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	m.NewCounter("count").Inc()

	require.NoError(t, m.Start(first, time.Hour))
	require.NoError(t, m.Start(second, time.Millisecond))

	assert.Equal(t, time.Hour, m.Interval())
	assert.NoFileExists(t, second)

	require.NoError(t, m.Stop())
	assert.Len(t, readRecords(t, first), 1)
}

func TestManager_StartAppends(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")

	for i := 1; i <= 2; i++ {
		c.Add(uint64(i))
		require.NoError(t, m.Start(path, time.Hour))
		require.NoError(t, m.Stop())
	}

	records := readRecords(t, path)
	require.Len(t, records, 2)
	v, _ := records[1].Get("count")
	assert.Equal(t, "2", v)
}

func TestManager_StartFailure(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "missing", "metrics.log")

	err := m.Start(path, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, m.Running())
	assert.NoError(t, m.Stop())

	err = m.Start(filepath.Join(t.TempDir(), "metrics.log"), 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.False(t, m.Running())
}

func TestManager_SetInterval(t *testing.T) {
	m, _ := newTestManager(t)

	assert.ErrorIs(t, m.SetInterval(0), ErrInvalidInterval)
	assert.ErrorIs(t, m.SetInterval(-time.Second), ErrInvalidInterval)

	require.NoError(t, m.SetInterval(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, m.Interval())
}

func TestManager_SetIntervalAppliesToNextWait(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")

	require.NoError(t, m.Start(path, time.Hour))
	// the loop is already waiting on the hour-long timer
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.SetInterval(5*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, m.Interval())

	c.Inc()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Stop())

	// only the final flush from Stop was written
	records := readRecords(t, path)
	require.Len(t, records, 1)
	v, _ := records[0].Get("count")
	assert.Equal(t, "1", v)
}

func TestManager_PeriodicFlushWithMockClock(t *testing.T) {
	m, _ := newTestManager(t)
	mock := clock.NewMock()
	now := time.Date(2024, 5, 1, 12, 30, 45, 678*int(time.Millisecond), time.Local)
	mock.Set(now)
	m.Clock = mock

	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")
	c.Add(4)

	require.NoError(t, m.Start(path, time.Second))

	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		data, err := os.ReadFile(path)
		return err == nil && len(data) > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())

	records := readRecords(t, path)
	require.GreaterOrEqual(t, len(records), 2)
	assert.True(t, records[0].Time.After(now))
	v, _ := records[0].Get("count")
	assert.Equal(t, "4", v)
}

func TestManager_Timestamp(t *testing.T) {
	m, _ := newTestManager(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 9, 8, 7, 6*int(time.Millisecond), time.Local))
	m.Clock = mock

	path := filepath.Join(t.TempDir(), "metrics.log")
	m.NewCounter("count").Add(2)

	require.NoError(t, m.Start(path, time.Hour))
	require.NoError(t, m.Stop())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 09:08:07.006 \"count\" 2\n", string(data))
}

func TestManager_NoMetricsWritesNothing(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	require.NoError(t, m.Start(path, 5*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Stop())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestManager_ClearMetrics(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	m.NewCounter("a").Inc()
	m.NewAverage("b").Add(1)
	require.Len(t, m.Metrics(), 2)

	m.ClearMetrics()
	assert.Empty(t, m.Metrics())

	require.NoError(t, m.Start(path, time.Hour))
	require.NoError(t, m.Stop())
	assert.Empty(t, readRecords(t, path))
}

func TestManager_RegistrationOrder(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		m.NewCounter(n)
	}

	require.NoError(t, m.Start(path, time.Hour))
	require.NoError(t, m.Flush())
	m.NewAverage("late")
	require.NoError(t, m.Stop())

	records := readRecords(t, path)
	require.Len(t, records, 2)
	for i, n := range names {
		assert.Equal(t, n, records[0].Samples[i].Name)
		assert.Equal(t, n, records[1].Samples[i].Name)
	}
	assert.Len(t, records[0].Samples, 3)
	assert.Equal(t, output.Sample{Name: "late", Value: "0.0"}, records[1].Samples[3])
}

func TestManager_StickyWriteError(t *testing.T) {
	m, hook := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")

	require.NoError(t, m.Start(path, time.Hour))

	// invalidate the handle behind the manager's back
	m.fileMu.Lock()
	require.NoError(t, m.file.Close())
	m.fileMu.Unlock()

	c.Add(3)
	err := m.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Equal(t, err, m.Err())
	assert.Zero(t, c.Load())

	// degraded mode: nothing written, state still reset, no new diagnostics
	c.Add(4)
	assert.NoError(t, m.Flush())
	assert.Zero(t, c.Load())
	assert.Len(t, entriesAt(hook, logrus.ErrorLevel), 1)

	assert.Error(t, m.Stop(), "closing an already closed file")
	assert.Empty(t, readRecords(t, path))

	// a fresh start clears the sticky state
	c.Add(5)
	require.NoError(t, m.Start(path, time.Hour))
	assert.NoError(t, m.Err())
	require.NoError(t, m.Stop())

	records := readRecords(t, path)
	require.Len(t, records, 1)
	v, _ := records[0].Get("count")
	assert.Equal(t, "5", v)
}

func TestManager_StickyErrorResetsDuringPeriodicFlush(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")

	require.NoError(t, m.Start(path, 10*time.Millisecond))

	m.fileMu.Lock()
	require.NoError(t, m.file.Close())
	m.fileMu.Unlock()

	require.Eventually(t, func() bool { return m.Err() != nil }, time.Second, 5*time.Millisecond)

	c.Add(7)
	require.Eventually(t, func() bool { return c.Load() == 0 }, time.Second, 5*time.Millisecond)

	_ = m.Stop()
}

func TestManager_SamplingFailureUsesPlaceholder(t *testing.T) {
	m, hook := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	c := m.NewCounter("count")
	flaky := Register(m, &failingMetric{fail: true})

	require.NoError(t, m.Start(path, time.Hour))
	c.Inc()
	require.NoError(t, m.Flush())
	c.Inc()
	require.NoError(t, m.Flush())
	flaky.setFail(false)
	require.NoError(t, m.Stop())

	records := readRecords(t, path)
	require.Len(t, records, 3)
	for i, want := range []string{DefaultPlaceholder, DefaultPlaceholder, "1.00"} {
		v, _ := records[i].Get("flaky")
		assert.Equal(t, want, v, "record %d", i)
	}
	v, _ := records[1].Get("count")
	assert.Equal(t, "1", v)

	assert.Len(t, entriesAt(hook, logrus.WarnLevel), 1)
	assert.NoError(t, m.Err())
}

func TestManager_ConcurrentProducersLoseNothing(t *testing.T) {
	const (
		workers = 8
		adds    = 20000
	)

	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")
	c := m.NewCounter("count")
	a := m.NewAverage("avg")

	require.NoError(t, m.Start(path, 2*time.Millisecond))

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < adds; j++ {
				c.Inc()
				a.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, m.Stop())

	var total uint64
	for _, rec := range readRecords(t, path) {
		v, _ := rec.Get("count")
		n, err := strconv.ParseUint(v, 10, 64)
		require.NoError(t, err)
		total += n

		avg, _ := rec.Get("avg")
		assert.Contains(t, []string{"0.0", "1.00"}, avg)
	}
	assert.EqualValues(t, workers*adds, total)
}

func TestManager_ConcurrentRegistration(t *testing.T) {
	m, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "metrics.log")

	require.NoError(t, m.Start(path, time.Millisecond))

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		i := i
		g.Go(func() error {
			m.NewCounter("c" + strconv.Itoa(i)).Inc()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, m.Stop())

	assert.Len(t, m.Metrics(), 50)
	records := readRecords(t, path)
	require.NotEmpty(t, records)
	assert.Len(t, records[len(records)-1].Samples, 50)
}
