// Package manager owns a set of metrics and periodically appends their values
// to a log file, resetting them after every write.
package manager

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danpilch/metriclog/pkg/collectors/cpu"
	"github.com/danpilch/metriclog/pkg/metric"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultPlaceholder is written in place of a value whose sampling failed.
const DefaultPlaceholder = "nan"

// ErrInvalidInterval is returned for non-positive flush intervals.
var ErrInvalidInterval = errors.New("flush interval must be positive")

// Manager drives one metrics file.
//
// Metrics are written in registration order. Register, Flush and ClearMetrics
// serialize on one lock, so a flush never observes a half-registered set.
type Manager struct {
	// Clock provides timestamps and flush timers. It must not be changed
	// after Start.
	Clock clock.Clock

	// Placeholder replaces the value of a metric whose Value call failed.
	Placeholder string

	logger *logrus.Logger

	mu      sync.Mutex
	metrics []metric.Metric
	failing []bool // per metric: sampling failure already logged
	buf     []byte

	// Lock order: mu before fileMu.
	fileMu   sync.Mutex
	file     *os.File
	path     string
	writeErr error // sticky

	ctlMu    sync.Mutex // serializes Start and Stop
	running  atomic.Bool
	interval atomic.Int64
	stop     chan struct{}
	done     chan struct{}
}

// New creates a stopped manager. A nil logger logs warnings to stderr.
func New(logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Manager{
		Clock:       clock.New(),
		Placeholder: DefaultPlaceholder,
		logger:      logger,
	}
}

// Register adds mt to m and returns it for the caller to update.
func Register[T metric.Metric](m *Manager, mt T) T {
	m.mu.Lock()
	m.metrics = append(m.metrics, mt)
	m.failing = append(m.failing, false)
	m.mu.Unlock()

	m.logger.WithField("metric", mt.Name()).Debug("Registered metric")
	return mt
}

// NewCounter registers a counter.
func (m *Manager) NewCounter(name string) *metric.Counter {
	return Register(m, metric.NewCounter(name))
}

// NewAverage registers an average.
func (m *Manager) NewAverage(name string) *metric.Average {
	return Register(m, metric.NewAverage(name))
}

// NewCPUUtilization registers a host CPU utilization metric using the
// platform sampling source.
func (m *Manager) NewCPUUtilization(name string) (*metric.CPUUtilization, error) {
	c, err := metric.NewCPUUtilization(name, cpu.DefaultSource())
	if err != nil {
		return nil, err
	}
	m.logger.WithFields(logrus.Fields{
		"metric": name,
		"cores":  cpu.LogicalCores(),
	}).Debug("Sampling cpu utilization")
	return Register(m, c), nil
}

// Metrics returns the registered metrics in registration order.
func (m *Manager) Metrics() []metric.Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]metric.Metric, len(m.metrics))
	copy(out, m.metrics)
	return out
}

// ClearMetrics removes every registered metric. A flush racing with this call
// sees either the full set or none.
func (m *Manager) ClearMetrics() {
	m.mu.Lock()
	m.metrics = nil
	m.failing = nil
	m.mu.Unlock()
}

// Start opens path for appending and starts flushing every interval.
// It does nothing when m is already running.
func (m *Manager) Start(path string, interval time.Duration) error {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()

	if m.running.Load() {
		return nil
	}
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open metrics file %q: %w", path, err)
	}

	m.fileMu.Lock()
	m.file = f
	m.path = path
	m.writeErr = nil
	m.fileMu.Unlock()

	m.interval.Store(int64(interval))
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running.Store(true)

	go m.run(m.stop, m.done)

	m.logger.WithFields(logrus.Fields{
		"path":     path,
		"interval": interval,
	}).Info("Metric manager started")
	return nil
}

// Stop wakes the flush loop, waits for it to exit, flushes once more and
// closes the file. It does nothing when m is not running.
func (m *Manager) Stop() error {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()

	if !m.running.Load() {
		return nil
	}

	close(m.stop)
	<-m.done
	m.running.Store(false)

	err := m.Flush()

	m.fileMu.Lock()
	if cerr := m.file.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("closing metrics file %q: %w", m.path, cerr))
	}
	m.file = nil
	m.fileMu.Unlock()

	m.logger.WithField("path", m.path).Info("Metric manager stopped")
	return err
}

// Running reports whether the flush loop is active.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// SetInterval changes the flush interval. The loop picks it up when it next
// starts waiting; a wait already in progress keeps the old interval.
func (m *Manager) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	m.interval.Store(int64(d))
	return nil
}

// Interval returns the flush interval.
func (m *Manager) Interval() time.Duration {
	return time.Duration(m.interval.Load())
}

// Err returns the sticky write error, or nil while writes succeed.
func (m *Manager) Err() error {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	return m.writeErr
}

func (m *Manager) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		timer := m.Clock.Timer(m.Interval())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// stop wins a tie with the timer
		select {
		case <-stop:
			return
		default:
		}

		m.Flush()
	}
}
