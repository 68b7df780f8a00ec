package manager

import (
	"fmt"

	"github.com/danpilch/metriclog/pkg/metric"
	"github.com/danpilch/metriclog/pkg/output"
	"github.com/sirupsen/logrus"
)

// Flush runs one flush cycle: it appends one line with every metric value to
// the file and resets every metric. Metrics are reset even when nothing can
// be written, so producers never accumulate unbounded state.
//
// The returned error is the write error of this cycle. Once a write has
// failed, later cycles skip writing and return nil; see Err.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.metrics) == 0 {
		return nil
	}

	m.fileMu.Lock()
	defer m.fileMu.Unlock()

	if m.writeErr != nil {
		m.resetLocked()
		return nil
	}
	if m.file == nil {
		m.logger.Debug("Metrics file is not open, discarding values")
		m.resetLocked()
		return nil
	}

	m.buf = output.AppendLine(m.buf[:0], m.Clock.Now(), m.collectLocked())

	// os.File is unbuffered; a completed Write has reached the kernel.
	if _, err := m.file.Write(m.buf); err != nil {
		m.writeErr = fmt.Errorf("writing metrics file %q: %w", m.path, err)
		m.logger.WithFields(logrus.Fields{
			"path":  m.path,
			"error": err,
		}).Error("Metrics file is no longer writable, dropping further output")
		return m.writeErr
	}

	return nil
}

// collectLocked reads and resets every metric. A metric that fails to sample
// is reported as the placeholder; the failure is logged once until the metric
// recovers.
func (m *Manager) collectLocked() []output.Sample {
	samples := make([]output.Sample, len(m.metrics))

	for i, mt := range m.metrics {
		name := mt.Name()
		value, err := drain(mt)
		if err != nil {
			if !m.failing[i] {
				m.failing[i] = true
				m.logger.WithFields(logrus.Fields{
					"metric": name,
					"error":  err,
				}).Warn("Metric sampling failed")
			}
			value = m.Placeholder
		} else if m.failing[i] {
			m.failing[i] = false
			m.logger.WithField("metric", name).Info("Metric sampling recovered")
		}

		samples[i] = output.Sample{Name: name, Value: value}
	}

	return samples
}

func (m *Manager) resetLocked() {
	for _, mt := range m.metrics {
		mt.Reset()
	}
}

// drain returns the value of mt and resets it, atomically when mt supports it.
func drain(mt metric.Metric) (string, error) {
	if d, ok := mt.(metric.Drainer); ok {
		return d.Drain()
	}
	value, err := mt.Value()
	mt.Reset()
	return value, err
}
