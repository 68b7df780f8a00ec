//go:build !linux && !darwin

package cpu

import "runtime"

// ReadCoreTimes always fails with ErrUnsupported.
func ReadCoreTimes() ([]CoreTimes, error) {
	return nil, ErrUnsupported
}

// LogicalCores returns runtime.NumCPU.
func LogicalCores() int {
	return runtime.NumCPU()
}
