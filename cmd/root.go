package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swarmroute/swarmroute/sched/recorder"
)

var (
	logLevel string
	sinkKind string
	sinkPath string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "swarmroute",
	Short: "Adaptive partition scheduler and dual-strategy query optimizer",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// newRecorder builds the event recorder for the configured sink.
// "none" returns a nil recorder, which drops all events.
func newRecorder() (*recorder.Recorder, error) {
	switch sinkKind {
	case "", "none":
		return nil, nil
	case "jsonl":
		sink, err := recorder.NewJSONLSink(sinkPath)
		if err != nil {
			return nil, fmt.Errorf("open jsonl sink: %w", err)
		}
		return recorder.New(sink, 1024), nil
	case "bolt":
		sink, err := recorder.NewBoltSink(sinkPath, 0o600, "events")
		if err != nil {
			return nil, fmt.Errorf("open bolt sink: %w", err)
		}
		return recorder.New(sink, 1024), nil
	default:
		return nil, fmt.Errorf("unknown sink %q (none, jsonl, bolt)", sinkKind)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&sinkKind, "sink", "none", "Event sink (none, jsonl, bolt)")
	rootCmd.PersistentFlags().StringVar(&sinkPath, "sink-path", "events.jsonl", "Event sink file path")
}
