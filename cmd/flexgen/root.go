package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/flexgen/internal/logging"
)

const version = "0.1.0"

var (
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "flexgen",
		Short:   "Descriptive flexfield input generator",
		Version: version,
		Long: `Build the descriptive flexfield input workbook from a primary spreadsheet,
a folder of configuration files and an optional DFF reference workbook.`,
		Example: `  # Generate with an empty reference
  $ flexgen generate -i input.xlsx -c config/ -o output.xlsx

  # Generate against a DFF export and mark the rows as XML processed
  $ flexgen generate -i input.xlsx -c config/ -d dff.xlsx -o output.xlsx --xml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(os.Stderr, logLevel, logFormat)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format (text, json)")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
