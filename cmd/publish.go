package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/github"
	"github.com/rifqisp97-lab/technician-guardian/internal/report"
)

var publishCmd = &cobra.Command{
	Use:   "publish [file|-]",
	Short: "Publish the monthly report as a GitHub issue",
	Long: `Publish renders the report as markdown and stores it in an issue of
github.repository titled "Technician report <yyyy-mm>". An existing issue with
that title is updated (and reopened) instead of creating a second one.

Example:
  GITHUB_TOKEN=... GITHUB_REPOSITORY=ops/reports guardian publish --month 2024-07`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := github.NewClient(cfg.GitHub)
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}
		if _, err := client.Verify(cmd.Context()); err != nil {
			return err
		}

		r, err := buildReport(cmd, args)
		if err != nil {
			return err
		}

		issue, err := client.Publish(cmd.Context(), report.Title(r.Month), report.Markdown(r))
		if err != nil {
			return err
		}
		verb := "updated"
		if issue.Created {
			verb = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s issue #%d %s\n", verb, issue.Number, issue.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().String("date", "", "day for the closed-on figure, dd/mm/yyyy (default today)")
	publishCmd.Flags().String("month", "", "month of the report, yyyy-mm (default the month of --date)")
	publishCmd.Flags().Int("not-comply-minutes", 0, "resolution time above which a ticket does not comply")
}
