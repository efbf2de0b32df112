// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Ticket statuses as they appear in the spreadsheet export. Any other value
// is carried through unchanged.
const (
	StatusOpen    = "OPEN"
	StatusClose   = "CLOSE"
	StatusUnknown = "UNKNOWN"
)

// MissingTeam is the marker used for a ticket whose team column was empty.
const MissingTeam = "N/A"

// Ticket is one normalized trouble ticket row.
type Ticket struct {
	// ID keys the ticket in lists. It equals TicketNo when one is present,
	// otherwise it is a short random token.
	ID string `json:"id" yaml:"id"`

	// InputDate is when the row was entered in the sheet
	InputDate time.Time `json:"inputDate" yaml:"inputDate"`

	// Team is the technician team assigned to the ticket
	Team string `json:"team" yaml:"team"`

	// TicketNo is the external ticket identifier (e.g., "IN123")
	TicketNo string `json:"ticketNo" yaml:"ticketNo"`

	// OwnerGroup is the customer segment tag (e.g., "REGULER", "PLATINUM")
	OwnerGroup string `json:"ownerGroup" yaml:"ownerGroup"`

	// InetNo is the customer service identifier
	InetNo string `json:"inetNo" yaml:"inetNo"`

	// ReportedDate is when the customer reported the issue
	ReportedDate time.Time `json:"reportedDate" yaml:"reportedDate"`

	// Status is OPEN, CLOSE, UNKNOWN or whatever the sheet contained
	Status string `json:"status" yaml:"status"`

	// ODP is the physical distribution point code
	ODP string `json:"odp" yaml:"odp"`

	// TTRRaw is the time-to-resolve text exactly as typed (e.g., "1 jam 30 menit")
	TTRRaw string `json:"ttrRaw" yaml:"ttrRaw"`

	// TTRMinutes is TTRRaw converted to minutes
	TTRMinutes int `json:"ttrMinutes" yaml:"ttrMinutes"`

	// CloseDate is set only for closed tickets with a readable close date
	CloseDate *time.Time `json:"closeDate,omitempty" yaml:"closeDate,omitempty"`

	// TeamClose is the team that closed the ticket
	TeamClose string `json:"teamClose" yaml:"teamClose"`
}

// IsClosed reports whether the ticket has the CLOSE status.
func (t Ticket) IsClosed() bool {
	return t.Status == StatusClose
}

// GroupCount is the number of tickets sharing one owner group.
type GroupCount struct {
	Group string `json:"group" yaml:"group"`
	Count int    `json:"count" yaml:"count"`
}

// Summary holds the headline figures of the dashboard.
type Summary struct {
	// Total is the number of tickets considered
	Total int `json:"total" yaml:"total"`

	// Closed is the number of tickets with CLOSE status
	Closed int `json:"closed" yaml:"closed"`

	// OpenBacklog is every ticket that is not closed
	OpenBacklog int `json:"openBacklog" yaml:"openBacklog"`

	// UniqueTeams counts distinct team labels
	UniqueTeams int `json:"uniqueTeams" yaml:"uniqueTeams"`

	// OpenFrom and OpenTo bound the reported dates of the open backlog
	OpenFrom *time.Time `json:"openFrom,omitempty" yaml:"openFrom,omitempty"`
	OpenTo   *time.Time `json:"openTo,omitempty" yaml:"openTo,omitempty"`

	// OpenClassification is the top owner groups among open tickets
	OpenClassification []GroupCount `json:"openClassification" yaml:"openClassification"`

	// ClosedClassification is the top owner groups among closed tickets
	ClosedClassification []GroupCount `json:"closedClassification" yaml:"closedClassification"`

	// ClosedOnDay counts tickets closed on the selected day
	ClosedOnDay int `json:"closedOnDay" yaml:"closedOnDay"`

	// IncomingInMonth counts tickets reported in the selected month
	IncomingInMonth int `json:"incomingInMonth" yaml:"incomingInMonth"`

	// ClosedInMonth counts tickets closed in the selected month
	ClosedInMonth int `json:"closedInMonth" yaml:"closedInMonth"`
}

// TeamPerformance is the per-team row of the performance table.
type TeamPerformance struct {
	Team          string  `json:"team" yaml:"team"`
	Tickets       int     `json:"tickets" yaml:"tickets"`
	Closed        int     `json:"closed" yaml:"closed"`
	Open          int     `json:"open" yaml:"open"`
	NotComply     int     `json:"notComply" yaml:"notComply"`
	Regular       int     `json:"regular" yaml:"regular"`
	Platinum      int     `json:"platinum" yaml:"platinum"`
	AvgTTR        float64 `json:"avgTtrMinutes" yaml:"avgTtrMinutes"`
	ProgressScore int     `json:"progressScore" yaml:"progressScore"`
}

// DayCount is the number of tickets reported on one calendar day.
type DayCount struct {
	Day   time.Time `json:"day" yaml:"day"`
	Count int       `json:"count" yaml:"count"`
}
