package main

import (
	"fmt"
	"io"

	"github.com/danpilch/metriclog/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "metriclog",
		Short: "Periodically append metric values to a log file",
		Long: `metriclog registers counters, averages and CPU utilization, feeds them
with synthetic data and appends their values to a log file on a fixed
interval, one line per interval.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, cmd.ErrOrStderr())
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	flags.StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "diagnostic log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", config.DefaultLogFormat, "diagnostic log format (text, json)")

	root.AddCommand(
		newRunCommand(a),
		newShowCommand(a),
		newBenchCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// init loads the configuration, applies global flag overrides and builds the logger.
func (a *app) init(cmd *cobra.Command, stderr io.Writer) error {
	cfg := config.NewConfig()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := applyCommandFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// applyCommandFlags copies explicitly set subcommand flags into cfg.
func applyCommandFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("file") {
		if cfg.Output.Path, err = flags.GetString("file"); err != nil {
			return err
		}
	}
	if flags.Changed("interval") {
		d, err := flags.GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Output.Interval = config.Duration(d)
	}
	if flags.Changed("duration") {
		d, err := flags.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Demo.Duration = config.Duration(d)
	}
	if flags.Changed("feed-interval") {
		d, err := flags.GetDuration("feed-interval")
		if err != nil {
			return err
		}
		cfg.Demo.FeedInterval = config.Duration(d)
	}
	if flags.Changed("load-workers") {
		if cfg.Demo.LoadWorkers, err = flags.GetInt("load-workers"); err != nil {
			return err
		}
	}
	if flags.Changed("seed") {
		if cfg.Demo.Seed, err = flags.GetInt64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("pprof") {
		if cfg.Debug.PprofAddr, err = flags.GetString("pprof"); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg config.Log, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "metriclog %s (commit %s)\n", version, commit)
			return nil
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Write(cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd)
	return cmd
}
