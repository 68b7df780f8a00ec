package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// TimestampLayout is the local-time prefix of every log line.
const TimestampLayout = "2006-01-02 15:04:05.000"

// ErrMalformedLine is returned when a log line cannot be decoded.
var ErrMalformedLine = errors.New("malformed metrics line")

// Sample is one metric value in a log line.
type Sample struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one decoded log line.
type Record struct {
	Time    time.Time `json:"time"`
	Samples []Sample  `json:"samples"`
}

// Get returns the value recorded for name.
func (r Record) Get(name string) (string, bool) {
	for _, s := range r.Samples {
		if s.Name == name {
			return s.Value, true
		}
	}
	return "", false
}

// AppendLine appends the encoded line for samples, newline included, to dst.
//
//	2024-01-02 15:04:05.123 "name one" 12 "name two" 0.50
//
// Names are written verbatim between double quotes.
func AppendLine(dst []byte, ts time.Time, samples []Sample) []byte {
	dst = ts.AppendFormat(dst, TimestampLayout)
	for _, s := range samples {
		dst = append(dst, ' ', '"')
		dst = append(dst, s.Name...)
		dst = append(dst, '"', ' ')
		dst = append(dst, s.Value...)
	}
	return append(dst, '\n')
}

// ParseLine decodes a single log line. The timestamp is interpreted in local time.
func ParseLine(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < len(TimestampLayout) {
		return Record{}, fmt.Errorf("%w: too short: %q", ErrMalformedLine, line)
	}

	ts, err := time.ParseInLocation(TimestampLayout, line[:len(TimestampLayout)], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedLine, err)
	}

	rec := Record{Time: ts}
	rest := line[len(TimestampLayout):]
	for rest != "" {
		if !strings.HasPrefix(rest, ` "`) {
			return Record{}, fmt.Errorf("%w: expected quoted name at %q", ErrMalformedLine, rest)
		}
		rest = rest[2:]

		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return Record{}, fmt.Errorf("%w: unterminated name", ErrMalformedLine)
		}
		name := rest[:end]
		rest = rest[end+1:]

		if !strings.HasPrefix(rest, " ") {
			return Record{}, fmt.Errorf("%w: missing value for %q", ErrMalformedLine, name)
		}
		rest = rest[1:]

		end = strings.IndexByte(rest, ' ')
		if end < 0 {
			end = len(rest)
		}
		value := rest[:end]
		if value == "" {
			return Record{}, fmt.Errorf("%w: empty value for %q", ErrMalformedLine, name)
		}
		rest = rest[end:]

		rec.Samples = append(rec.Samples, Sample{Name: name, Value: value})
	}

	return rec, nil
}

// ReadRecords decodes every non-empty line from r. It fails on the first
// malformed line.
func ReadRecords(r io.Reader) ([]Record, error) {
	return readRecords(r, func(lineNo int, err error) error {
		return fmt.Errorf("line %d: %w", lineNo, err)
	})
}

// ReadRecordsSkipping decodes every non-empty line from r, passing malformed
// lines to skip instead of failing. skip may be nil.
func ReadRecordsSkipping(r io.Reader, skip func(lineNo int, err error)) ([]Record, error) {
	return readRecords(r, func(lineNo int, err error) error {
		if skip != nil {
			skip(lineNo, err)
		}
		return nil
	})
}

func readRecords(r io.Reader, malformed func(lineNo int, err error) error) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			if err := malformed(lineNo, err); err != nil {
				return nil, err
			}
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
