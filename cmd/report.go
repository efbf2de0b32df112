package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/report"
	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report [file|-]",
	Short: "Summarize ticket figures and team performance",
	Long: `Report prints the dashboard figures of a sheet: backlog, owner group
classification, daily and monthly counts and the per-team performance table.

--date selects the day used for "closed on" (default today) and --month the
month used for the monthly counts (default the month of --date).

Examples:
  guardian report export.csv --date 05/07/2024
  guardian report --month 2024-07 --output markdown`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		r, err := buildReport(cmd, args)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch output {
		case outputMarkdown:
			_, err := io.WriteString(w, report.Markdown(r))
			return err
		case outputTable:
			writeReportTable(w, r)
			return nil
		default:
			return writeData(w, output, r)
		}
	},
}

// buildReport loads the tickets and aggregates them for the --date and
// --month flags.
func buildReport(cmd *cobra.Command, args []string) (report.Report, error) {
	loc, err := cfg.Location()
	if err != nil {
		return report.Report{}, err
	}
	day, month, err := reportPeriod(cmd, loc)
	if err != nil {
		return report.Report{}, err
	}
	tickets, _, err := loadTickets(cmd.Context(), cmd, args)
	if err != nil {
		return report.Report{}, err
	}
	notComply := cfg.Report.NotComplyMinutes
	if cmd.Flags().Changed("not-comply-minutes") {
		notComply, _ = cmd.Flags().GetInt("not-comply-minutes")
	}
	return report.Build(tickets, day, month, notComply), nil
}

func reportPeriod(cmd *cobra.Command, loc *time.Location) (time.Time, time.Time, error) {
	dateFlag, _ := cmd.Flags().GetString("date")
	monthFlag, _ := cmd.Flags().GetString("month")

	day := time.Now().In(loc)
	if dateFlag != "" {
		parsed, ok := ticket.ParseTimestamp(dateFlag, loc)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --date %q, expected dd/mm/yyyy", dateFlag)
		}
		day = parsed
	}

	month := day
	if monthFlag != "" {
		parsed, err := time.ParseInLocation("2006-01", monthFlag, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --month %q, expected yyyy-mm", monthFlag)
		}
		month = parsed
	}
	return day, month, nil
}

func writeReportTable(w io.Writer, r report.Report) {
	s := r.Summary
	figures := [][]string{
		{"Total tickets", strconv.Itoa(s.Total)},
		{"Closed", strconv.Itoa(s.Closed)},
		{"Open backlog", strconv.Itoa(s.OpenBacklog)},
		{"Teams", strconv.Itoa(s.UniqueTeams)},
		{"Closed on " + r.Day.Format(ticket.DateLayout), strconv.Itoa(s.ClosedOnDay)},
		{"Incoming in " + r.Month.Format("01/2006"), strconv.Itoa(s.IncomingInMonth)},
		{"Closed in " + r.Month.Format("01/2006"), strconv.Itoa(s.ClosedInMonth)},
	}
	fmt.Fprintln(w, title(w, report.Title(r.Month)))
	fmt.Fprintln(w, renderTable(w, []string{"Figure", "Value"}, figures))

	groups := func(name string, gs []models.GroupCount) {
		rows := make([][]string, 0, len(gs))
		for _, g := range gs {
			rows = append(rows, []string{g.Group, strconv.Itoa(g.Count)})
		}
		fmt.Fprintln(w, title(w, name))
		fmt.Fprintln(w, renderTable(w, []string{"Owner group", "Tickets"}, rows))
	}
	groups("Open by owner group", s.OpenClassification)
	groups("Closed by owner group", s.ClosedClassification)

	rows := make([][]string, 0, len(r.Teams)+1)
	for _, p := range append(append([]models.TeamPerformance(nil), r.Teams...), r.Totals) {
		rows = append(rows, []string{
			p.Team,
			strconv.Itoa(p.Tickets),
			strconv.Itoa(p.Closed),
			strconv.Itoa(p.Open),
			strconv.Itoa(p.NotComply),
			strconv.Itoa(p.Regular),
			strconv.Itoa(p.Platinum),
			strconv.FormatFloat(p.AvgTTR, 'f', 0, 64),
			strconv.Itoa(p.ProgressScore) + "%",
		})
	}
	fmt.Fprintln(w, title(w, "Team performance"))
	fmt.Fprintln(w, renderTable(w,
		[]string{"Team", "Tickets", "Closed", "Open", "Not comply", "Regular", "Platinum", "Avg TTR", "Progress"},
		rows))
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("output", "o", outputTable, "output format (table, markdown, json, yaml)")
	reportCmd.Flags().String("date", "", "day for the closed-on figure, dd/mm/yyyy (default today)")
	reportCmd.Flags().String("month", "", "month for the monthly figures, yyyy-mm (default the month of --date)")
	reportCmd.Flags().Int("not-comply-minutes", 0, "resolution time above which a ticket does not comply")
}
