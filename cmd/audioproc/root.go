package main

import (
	"github.com/spf13/cobra"

	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/logging"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "audioproc",
	Short: "Split interview recordings into per-message audio clips",
	Long: `audioproc runs the recording pipeline locally: it deduplicates ASR hypotheses,
maps them onto wall-clock time, assigns them to chat messages and cuts one
clip per message from the recording. No database, storage or queue is used.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func setupLogging() {
	level := "info"
	if verbose {
		level = "debug"
	}
	if quiet {
		level = "error"
	}
	logging.Init(config.LogConfig{Level: level, Format: "console"}, "audioproc")
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}
