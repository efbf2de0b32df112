package report

import (
	"strings"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// All disables the team or owner group filter it is assigned to.
const All = "All"

// Filter narrows a ticket list the way the ticket table does. The zero value
// matches every ticket.
type Filter struct {
	// Search is matched case-insensitively against the ticket number and ODP,
	// and literally against the service number.
	Search string
	// Team must equal the ticket team unless empty or All.
	Team string
	// OwnerGroup must equal the ticket owner group unless empty or All. Tickets
	// without an owner group carry Unassigned.
	OwnerGroup string
}

func (f Filter) Match(t models.Ticket) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.TicketNo), term) &&
			!strings.Contains(strings.ToLower(t.ODP), term) &&
			!strings.Contains(t.InetNo, f.Search) {
			return false
		}
	}
	if active(f.Team) && t.Team != f.Team {
		return false
	}
	if active(f.OwnerGroup) {
		group := t.OwnerGroup
		if group == "" {
			group = Unassigned
		}
		if group != f.OwnerGroup {
			return false
		}
	}
	return true
}

// Apply returns the matching tickets in their original order.
func (f Filter) Apply(tickets []models.Ticket) []models.Ticket {
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func active(v string) bool {
	return v != "" && v != All
}
