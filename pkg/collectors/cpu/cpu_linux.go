//go:build linux

package cpu

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

const procStat = "/proc/stat"

// ReadCoreTimes samples per-core counters from /proc/stat.
func ReadCoreTimes() ([]CoreTimes, error) {
	file, err := os.Open(procStat)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", procStat, err)
	}
	defer file.Close()

	times, err := ParseStat(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", procStat, err)
	}
	return times, nil
}

// LogicalCores returns the number of cores this process may be scheduled on.
func LogicalCores() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	return set.Count()
}
