// Package cmd provides the command-line interface for guardian.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/config"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Guardian turns technician ticket sheets into reports and metrics",
	Long: `Guardian reads the trouble ticket sheet maintained by field technician teams,
normalizes its rows and reports on them.

The sheet can be a local export, standard input or the published CSV link of
the spreadsheet. From there guardian can print the tickets, rewrite the export
in its canonical form, summarize team performance, serve Prometheus metrics,
mirror tickets into JIRA and publish the monthly report as a GitHub issue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("log-level") || flags.Changed("log-format") {
			level, _ := flags.GetString("log-level")
			format, _ := flags.GetString("log-format")
			logging.Configure(cmd.ErrOrStderr(), logging.ParseLevel(level), logging.Format(format))
		}

		path, _ := flags.GetString("config")
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		if url, _ := flags.GetString("url"); url != "" {
			loaded.Sheet.URL = url
		}
		if flags.Changed("keyed") {
			loaded.Parse.Keyed, _ = flags.GetBool("keyed")
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML configuration file")
	flags.String("url", "", "published CSV link of the sheet (overrides sheet.url)")
	flags.Bool("keyed", false, "look columns up by header name instead of position")
	flags.String("log-level", envOr("GUARDIAN_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flags.String("log-format", envOr("GUARDIAN_LOG_FORMAT", "text"), "log format (text, json)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
