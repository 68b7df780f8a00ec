package cpu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseStat reads CPU time counters in /proc/stat format.
//
// Each cpuN line yields one entry: nice is folded into User, irq and softirq
// into System. When no per-core lines are present the aggregate "cpu" line is
// returned as a single entry.
func ParseStat(r io.Reader) ([]CoreTimes, error) {
	var (
		cores     []CoreTimes
		aggregate *CoreTimes
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		times, err := parseStatFields(fields)
		if err != nil {
			return nil, err
		}

		if fields[0] == "cpu" {
			aggregate = &times
			continue
		}
		cores = append(cores, times)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cpu stats: %w", err)
	}

	if len(cores) == 0 {
		if aggregate == nil {
			return nil, fmt.Errorf("no cpu lines found in stat data")
		}
		return []CoreTimes{*aggregate}, nil
	}
	return cores, nil
}

// parseStatFields parses "cpuN user nice system idle iowait irq softirq ...".
// Kernels older than 2.6 omit iowait, irq and softirq.
func parseStatFields(fields []string) (CoreTimes, error) {
	if len(fields) < 5 {
		return CoreTimes{}, fmt.Errorf("unexpected stat format for %q: %d fields", fields[0], len(fields))
	}

	values := make([]uint64, 7)
	for i := 1; i < len(fields) && i <= len(values); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return CoreTimes{}, fmt.Errorf("parsing %s field %d: %w", fields[0], i, err)
		}
		values[i-1] = v
	}

	user, nice, system, idle := values[0], values[1], values[2], values[3]
	irq, softirq := values[5], values[6]

	return CoreTimes{
		User:   user + nice,
		System: system + irq + softirq,
		Idle:   idle,
	}, nil
}
