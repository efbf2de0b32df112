package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/report"
	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Print the normalized tickets of a sheet",
	Long: `Parse reads a sheet export and prints the tickets that survive normalization.

Rows without a ticket number or team are dropped. With --diagnostics the
dropped rows and the reason for each are printed as well. --search, --team
and --owner narrow the list; tickets without an owner group match
--owner Unassigned.

Examples:
  guardian parse export.csv
  guardian parse - --output json < export.csv
  guardian parse export.csv --team TEAM_A --search odp-bdg
  guardian parse --url "https://docs.google.com/.../pub?output=csv"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		withDiag, _ := cmd.Flags().GetBool("diagnostics")
		var filter report.Filter
		filter.Search, _ = cmd.Flags().GetString("search")
		filter.Team, _ = cmd.Flags().GetString("team")
		filter.OwnerGroup, _ = cmd.Flags().GetString("owner")

		all, diag, err := loadTickets(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}
		tickets := filter.Apply(all)

		w := cmd.OutOrStdout()
		if output != outputTable {
			if withDiag {
				return writeData(w, output, struct {
					Tickets     []models.Ticket    `json:"tickets" yaml:"tickets"`
					Diagnostics ticket.Diagnostics `json:"diagnostics" yaml:"diagnostics"`
				}{tickets, diag})
			}
			return writeData(w, output, tickets)
		}

		fmt.Fprintln(w, renderTable(w, ticketHeaders, ticketRows(tickets)))
		fmt.Fprintf(w, "Showing %d of %d tickets\n", len(tickets), len(all))
		if withDiag {
			fmt.Fprintln(w, diagnosticsText(diag))
		}
		return nil
	},
}

var ticketHeaders = []string{"Ticket", "Team", "Owner group", "Status", "Reported", "Closed", "TTR (min)", "ODP"}

func ticketRows(tickets []models.Ticket) [][]string {
	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		closed := ""
		if t.CloseDate != nil {
			closed = t.CloseDate.Format(ticket.DateLayout)
		}
		rows = append(rows, []string{
			t.TicketNo,
			t.Team,
			t.OwnerGroup,
			t.Status,
			t.ReportedDate.Format(ticket.TimestampLayout),
			closed,
			strconv.Itoa(t.TTRMinutes),
			t.ODP,
		})
	}
	return rows
}

func diagnosticsText(d ticket.Diagnostics) string {
	s := fmt.Sprintf("kept %d, dropped %d, date fallbacks %d", d.Kept, len(d.Dropped), d.DateFallbacks)
	for _, drop := range d.Dropped {
		s += fmt.Sprintf("\n  line %d: %s", drop.Line, drop.Reason)
	}
	if len(d.UnknownColumns) > 0 {
		s += fmt.Sprintf("\n  ignored columns: %v", d.UnknownColumns)
	}
	return s
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringP("output", "o", outputTable, "output format (table, json, yaml)")
	parseCmd.Flags().Bool("diagnostics", false, "also report dropped rows")
	parseCmd.Flags().String("search", "", "match ticket number, ODP or service number")
	parseCmd.Flags().String("team", report.All, "only tickets of this team")
	parseCmd.Flags().String("owner", report.All, "only tickets of this owner group")
}
