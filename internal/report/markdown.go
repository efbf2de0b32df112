package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// Report bundles every aggregate for one selected day and month.
type Report struct {
	Day     time.Time                `json:"day" yaml:"day"`
	Month   time.Time                `json:"month" yaml:"month"`
	Summary models.Summary           `json:"summary" yaml:"summary"`
	Teams   []models.TeamPerformance `json:"teams" yaml:"teams"`
	Totals  models.TeamPerformance   `json:"totals" yaml:"totals"`
	Trend   []models.DayCount        `json:"trend" yaml:"trend"`
}

// Build computes a Report.
func Build(tickets []models.Ticket, day, month time.Time, notComplyMinutes int) Report {
	teams := TeamPerformance(tickets, notComplyMinutes)
	return Report{
		Day:     day,
		Month:   month,
		Summary: Summarize(tickets, day, month),
		Teams:   teams,
		Totals:  Totals(teams),
		Trend:   DailyTrend(tickets),
	}
}

// Title is the heading used for the report of month, e.g. "Technician report 2024-07".
func Title(month time.Time) string {
	return "Technician report " + month.Format("2006-01")
}

// Markdown renders r as a GitHub flavoured markdown document.
func Markdown(r Report) string {
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "# %s\n\n", Title(r.Month))
	b.WriteString("| Figure | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total tickets | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Closed | %d |\n", s.Closed)
	fmt.Fprintf(&b, "| Open backlog | %d |\n", s.OpenBacklog)
	fmt.Fprintf(&b, "| Open since | %s |\n", openRange(s))
	fmt.Fprintf(&b, "| Teams | %d |\n", s.UniqueTeams)
	fmt.Fprintf(&b, "| Closed on %s | %d |\n", r.Day.Format("02/01/2006"), s.ClosedOnDay)
	fmt.Fprintf(&b, "| Incoming in %s | %d |\n", r.Month.Format("01/2006"), s.IncomingInMonth)
	fmt.Fprintf(&b, "| Closed in %s | %d |\n", r.Month.Format("01/2006"), s.ClosedInMonth)

	writeGroups(&b, "Open by owner group", s.OpenClassification)
	writeGroups(&b, "Closed by owner group", s.ClosedClassification)

	b.WriteString("\n## Team performance\n\n")
	b.WriteString("| Team | Tickets | Closed | Open | Not comply | Regular | Platinum | Avg TTR (min) | Progress |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	rows := append(append([]models.TeamPerformance(nil), r.Teams...), r.Totals)
	for _, t := range rows {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d | %d | %.0f | %d%% |\n",
			escapeCell(t.Team), t.Tickets, t.Closed, t.Open, t.NotComply, t.Regular, t.Platinum, t.AvgTTR, t.ProgressScore)
	}

	if len(r.Trend) > 0 {
		b.WriteString("\n## Daily trend\n\n| Day | Reported |\n|---|---:|\n")
		for _, d := range r.Trend {
			fmt.Fprintf(&b, "| %s | %d |\n", d.Day.Format("02/01/2006"), d.Count)
		}
	}
	return b.String()
}

func writeGroups(b *strings.Builder, title string, groups []models.GroupCount) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if len(groups) == 0 {
		b.WriteString("_none_\n")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(b, "- %s: %d\n", g.Group, g.Count)
	}
}

func openRange(s models.Summary) string {
	if s.OpenBacklog == 0 {
		return "clear"
	}
	if s.OpenFrom == nil {
		return "-"
	}
	from := s.OpenFrom.Format("02/01/2006")
	to := s.OpenTo.Format("02/01/2006")
	if from == to {
		return from
	}
	return from + " - " + to
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
