// Package report aggregates normalized tickets into the figures shown on the
// operations dashboard.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// DefaultNotComplyMinutes is the resolution time above which a ticket breaks
// the service agreement (36 hours).
const DefaultNotComplyMinutes = 36 * 60

// TopGroups is how many owner groups a classification keeps.
const TopGroups = 4

// Unassigned labels tickets without an owner group in classifications.
const Unassigned = "Unassigned"

// regularMarker identifies the regular customer segment. Every other owner
// group counts as platinum.
const regularMarker = "REGULER"

// TotalLabel is the team name of the row returned by Totals.
const TotalLabel = "TOTAL"

// Summarize computes the headline figures. day selects the day for
// ClosedOnDay and month selects the month for the monthly counts; both are
// compared as calendar dates in day's and month's locations.
func Summarize(tickets []models.Ticket, day, month time.Time) models.Summary {
	s := models.Summary{Total: len(tickets)}

	var open, closed []models.Ticket
	teams := make(map[string]struct{})
	for _, t := range tickets {
		teams[t.Team] = struct{}{}
		if t.IsClosed() {
			closed = append(closed, t)
		} else {
			open = append(open, t)
		}
	}
	s.Closed = len(closed)
	s.OpenBacklog = len(open)
	s.UniqueTeams = len(teams)
	s.OpenClassification = classify(open)
	s.ClosedClassification = classify(closed)

	for _, t := range open {
		if t.ReportedDate.IsZero() {
			continue
		}
		d := t.ReportedDate
		if s.OpenFrom == nil || d.Before(*s.OpenFrom) {
			s.OpenFrom = &d
		}
		if s.OpenTo == nil || d.After(*s.OpenTo) {
			s.OpenTo = &d
		}
	}

	for _, t := range tickets {
		if sameMonth(t.ReportedDate, month) {
			s.IncomingInMonth++
		}
		if !t.IsClosed() || t.CloseDate == nil {
			continue
		}
		if sameDay(*t.CloseDate, day) {
			s.ClosedOnDay++
		}
		if sameMonth(*t.CloseDate, month) {
			s.ClosedInMonth++
		}
	}
	return s
}

// TeamPerformance builds one row per team, sorted by closed tickets in
// descending order and then by team name. A ticket counts as not complying
// when its TTR exceeds notComplyMinutes; a value <= 0 selects
// DefaultNotComplyMinutes.
func TeamPerformance(tickets []models.Ticket, notComplyMinutes int) []models.TeamPerformance {
	if notComplyMinutes <= 0 {
		notComplyMinutes = DefaultNotComplyMinutes
	}

	byTeam := make(map[string]*models.TeamPerformance)
	totalTTR := make(map[string]int)
	for _, t := range tickets {
		row, ok := byTeam[t.Team]
		if !ok {
			row = &models.TeamPerformance{Team: t.Team}
			byTeam[t.Team] = row
		}
		row.Tickets++
		if t.IsClosed() {
			row.Closed++
		} else {
			row.Open++
		}
		if t.TTRMinutes > notComplyMinutes {
			row.NotComply++
		}
		if IsRegular(t.OwnerGroup) {
			row.Regular++
		} else {
			row.Platinum++
		}
		totalTTR[t.Team] += t.TTRMinutes
	}

	rows := make([]models.TeamPerformance, 0, len(byTeam))
	for team, row := range byTeam {
		row.AvgTTR = float64(totalTTR[team]) / float64(row.Tickets)
		row.ProgressScore = progress(row.Closed, row.Tickets)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Closed != rows[j].Closed {
			return rows[i].Closed > rows[j].Closed
		}
		return rows[i].Team < rows[j].Team
	})
	return rows
}

// Totals sums rows into a single row labelled TotalLabel. AvgTTR is weighted
// by ticket count.
func Totals(rows []models.TeamPerformance) models.TeamPerformance {
	total := models.TeamPerformance{Team: TotalLabel}
	var ttr float64
	for _, r := range rows {
		total.Tickets += r.Tickets
		total.Closed += r.Closed
		total.Open += r.Open
		total.NotComply += r.NotComply
		total.Regular += r.Regular
		total.Platinum += r.Platinum
		ttr += r.AvgTTR * float64(r.Tickets)
	}
	if total.Tickets > 0 {
		total.AvgTTR = ttr / float64(total.Tickets)
	}
	total.ProgressScore = progress(total.Closed, total.Tickets)
	return total
}

// DailyTrend counts tickets per reported calendar day in ascending order.
// Tickets without a reported date are skipped.
func DailyTrend(tickets []models.Ticket) []models.DayCount {
	counts := make(map[time.Time]int)
	for _, t := range tickets {
		if t.ReportedDate.IsZero() {
			continue
		}
		counts[truncateDay(t.ReportedDate)]++
	}

	out := make([]models.DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// IsRegular reports whether ownerGroup belongs to the regular segment.
func IsRegular(ownerGroup string) bool {
	return strings.Contains(strings.ToUpper(ownerGroup), regularMarker)
}

func classify(tickets []models.Ticket) []models.GroupCount {
	counts := make(map[string]int)
	for _, t := range tickets {
		group := t.OwnerGroup
		if group == "" {
			group = Unassigned
		}
		counts[group]++
	}

	out := make([]models.GroupCount, 0, len(counts))
	for group, n := range counts {
		out = append(out, models.GroupCount{Group: group, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Group < out[j].Group
	})
	if len(out) > TopGroups {
		out = out[:TopGroups]
	}
	return out
}

func progress(closed, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(closed) / float64(count) * 100))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(t, ref time.Time) bool {
	if t.IsZero() || ref.IsZero() {
		return false
	}
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func sameMonth(t, ref time.Time) bool {
	if t.IsZero() || ref.IsZero() {
		return false
	}
	y1, m1, _ := t.In(ref.Location()).Date()
	y2, m2, _ := ref.Date()
	return y1 == y2 && m1 == m2
}
