// Package metric provides named, resettable aggregates that producers update
// concurrently and a manager periodically reads and resets.
package metric

// Metric is the interface that all metrics must implement.
//
// Implementations are safe for concurrent use: producers may update a metric
// while the manager calls Value and Reset.
type Metric interface {
	// Name returns the immutable metric identifier.
	Name() string

	// Value returns the current aggregate formatted as a decimal string.
	// Only metrics that sample external state return an error.
	Value() (string, error)

	// Reset clears accumulated state. It is idempotent.
	Reset()
}

// Drainer is implemented by metrics that can read their value and reset in
// one step, so that no update lands between the read and the reset.
type Drainer interface {
	Drain() (string, error)
}

// EmptyAverage is the value reported by an Average with no samples.
const EmptyAverage = "0.0"
