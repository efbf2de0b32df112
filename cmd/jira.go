package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/jira"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/internal/store"
)

// jiraCmd mirrors the tickets of the sheet into a JIRA project.
var jiraCmd = &cobra.Command{
	Use:   "jira [file|-]",
	Short: "Mirror tickets into JIRA",
	Long: `Mirror every ticket of the sheet into the configured JIRA project.

1. Creates an issue for each ticket that has none yet. The summary starts
   with the ticket number and the issue carries the 'guardian' label.
2. Transitions the issue with jira.done_transition (default 'Done') once the
   ticket is CLOSE.

Issue keys are remembered in the store file so later runs skip the search.
Running the command twice on the same sheet changes nothing the second time.

Example:
  JIRA_URL=https://example.atlassian.net JIRA_PROJECT=OPS guardian jira export.csv --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		client, err := jira.NewClient(cfg.Jira)
		if err != nil {
			return fmt.Errorf("failed to initialize jira client: %w", err)
		}

		tickets, _, err := loadTickets(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.Store.Path, cfg.Store.Retain)
		if err != nil {
			return err
		}
		defer db.Close()

		logging.Info("starting synchronization",
			"project", cfg.Jira.Project,
			"tickets", len(tickets),
			"dry_run", dryRun)

		res, err := jira.NewMirror(client, db, cfg.Jira.DoneTransition, dryRun).Sync(cmd.Context(), tickets)
		if err != nil {
			return err
		}

		logging.Info("synchronization complete",
			"created", res.Created,
			"transitioned", res.Transitioned,
			"unchanged", res.Unchanged,
			"failed", len(res.Failed))
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, transitioned %d, unchanged %d, failed %d\n",
			res.Created, res.Transitioned, res.Unchanged, len(res.Failed))
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d tickets could not be mirrored, first: %s: %w",
				len(res.Failed), res.Failed[0].TicketNo, res.Failed[0].Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jiraCmd)
	jiraCmd.Flags().Bool("dry-run", false, "log what would change without touching JIRA")
}
