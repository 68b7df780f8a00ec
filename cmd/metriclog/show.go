package main

import (
	"fmt"
	"os"

	"github.com/danpilch/metriclog/pkg/config"
	"github.com/danpilch/metriclog/pkg/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newShowCommand(a *app) *cobra.Command {
	var (
		format string
		last   int
		width  int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the records of a metrics file",
		Example: `  metriclog show --file metrics.log
  metriclog show --file metrics.log --format json --last 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			path := a.cfg.Output.Path
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening metrics file: %w", err)
			}
			defer file.Close()

			records, err := output.ReadRecordsSkipping(file, func(lineNo int, err error) {
				a.logger.WithFields(logrus.Fields{
					"path":  path,
					"line":  lineNo,
					"error": err,
				}).Warn("Skipping malformed metrics line")
			})
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if last > 0 && len(records) > last {
				records = records[len(records)-last:]
			}

			formatter := output.NewFormatter(f, cmd.OutOrStdout())
			formatter.SetSparklineTracker(output.NewSparklineTracker(width))
			return formatter.Render(records)
		},
	}

	cmd.Flags().StringP("file", "f", config.DefaultPath, "metrics file to read")
	cmd.Flags().StringVar(&format, "format", string(output.FormatTable), "output format (table, json, tsv)")
	cmd.Flags().IntVarP(&last, "last", "n", 0, "only show the last N records")
	cmd.Flags().IntVar(&width, "width", output.DefaultSparklineWidth, "number of records in the trend column")
	return cmd
}
