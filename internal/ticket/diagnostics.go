package ticket

import (
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// DropReason says why a row did not become a ticket.
type DropReason string

const (
	ReasonTooFewFields    DropReason = "too_few_fields"
	ReasonMissingTicketNo DropReason = "missing_ticket_no"
	ReasonMissingTeam     DropReason = "missing_team"
)

// Outcome is the result of normalizing one row: either a kept Ticket or a
// drop Reason.
type Outcome struct {
	Ticket models.Ticket
	Reason DropReason
}

// Kept reports whether the row produced a ticket.
func (o Outcome) Kept() bool {
	return o.Reason == ""
}

// Drop records one discarded row.
type Drop struct {
	Line   int        `json:"line" yaml:"line"`
	Reason DropReason `json:"reason" yaml:"reason"`
}

// Diagnostics collects what happened to each row of a parse. The zero value
// is ready to use. A nil *Diagnostics ignores everything.
type Diagnostics struct {
	Kept           int      `json:"kept" yaml:"kept"`
	Dropped        []Drop   `json:"dropped" yaml:"dropped"`
	UnknownColumns []string `json:"unknownColumns,omitempty" yaml:"unknownColumns,omitempty"`
	DateFallbacks  int      `json:"dateFallbacks" yaml:"dateFallbacks"`
}

// Count returns the number of rows dropped for reason.
func (d *Diagnostics) Count(reason DropReason) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, drop := range d.Dropped {
		if drop.Reason == reason {
			n++
		}
	}
	return n
}

// Reasons returns the drop count per reason.
func (d *Diagnostics) Reasons() map[DropReason]int {
	out := make(map[DropReason]int)
	if d == nil {
		return out
	}
	for _, drop := range d.Dropped {
		out[drop.Reason]++
	}
	return out
}

func (d *Diagnostics) keep() {
	if d != nil {
		d.Kept++
	}
}

func (d *Diagnostics) drop(line int, reason DropReason) {
	if d != nil {
		d.Dropped = append(d.Dropped, Drop{Line: line, Reason: reason})
	}
}

func (d *Diagnostics) unknownColumn(label string) {
	if d != nil {
		d.UnknownColumns = append(d.UnknownColumns, label)
	}
}

func (d *Diagnostics) fallback() {
	if d != nil {
		d.DateFallbacks++
	}
}
