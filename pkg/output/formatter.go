// Package output encodes and decodes metric log lines and renders decoded
// records for humans and tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or tsv)", s)
	}
}

// Formatter handles output formatting.
type Formatter struct {
	format    Format
	writer    io.Writer
	sparkline *SparklineTracker
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// SetSparklineTracker enables the TREND column of the table format.
func (f *Formatter) SetSparklineTracker(s *SparklineTracker) {
	f.sparkline = s
}

// Render outputs the records in the configured format.
func (f *Formatter) Render(records []Record) error {
	if f.sparkline != nil {
		for _, rec := range records {
			for _, s := range rec.Samples {
				if v, ok := numeric(s.Value); ok {
					f.sparkline.Record(s.Name, v)
				}
			}
		}
	}

	switch f.format {
	case FormatJSON:
		return f.renderJSON(records)
	case FormatTSV:
		return f.renderTSV(records)
	default:
		return f.renderTable(records)
	}
}

func (f *Formatter) renderJSON(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	out := struct {
		Records []Record `json:"records"`
	}{
		Records: records,
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// renderTable shows the latest record as a styled table.
func (f *Formatter) renderTable(records []Record) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	if len(records) == 0 {
		fmt.Fprintln(f.writer, dim.Render("No metric records"))
		return nil
	}

	latest := records[len(records)-1]
	fmt.Fprintln(f.writer, titleStyle.Render("Metrics at "+latest.Time.Format(TimestampLayout)))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	hasSparklines := f.sparkline != nil
	rows := make([][]string, len(latest.Samples))
	for i, s := range latest.Samples {
		row := []string{s.Name, s.Value}
		if hasSparklines {
			row = append(row, f.sparkline.Sparkline(s.Name))
		}
		rows[i] = row
	}

	headers := []string{"METRIC", "VALUE"}
	if hasSparklines {
		headers = append(headers, "TREND")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, dim.Render(fmt.Sprintf("%d records from %s to %s",
		len(records),
		records[0].Time.Format(TimestampLayout),
		latest.Time.Format(TimestampLayout))))

	return nil
}

// renderTSV outputs one row per sample.
func (f *Formatter) renderTSV(records []Record) error {
	fmt.Fprintln(f.writer, "TIME\tMETRIC\tVALUE")

	for _, rec := range records {
		ts := rec.Time.Format(TimestampLayout)
		for _, s := range rec.Samples {
			fmt.Fprintf(f.writer, "%s\t%s\t%s\n", ts, s.Name, s.Value)
		}
	}

	return nil
}

// numeric parses a sample value, rejecting placeholders.
func numeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
