package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

func filterFixture() []models.Ticket {
	return []models.Ticket{
		{TicketNo: "IN100", Team: "TEAM_A", OwnerGroup: "REGULER", InetNo: "1220001", ODP: "ODP-BDG-01"},
		{TicketNo: "IN200", Team: "TEAM_B", OwnerGroup: "PLATINUM", InetNo: "1220002", ODP: "odp-jkt-07"},
		{TicketNo: "in300", Team: "TEAM_A", OwnerGroup: "", InetNo: "1330003", ODP: "ODP-BDG-02"},
	}
}

func ticketNos(tickets []models.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.TicketNo)
	}
	return out
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"Zero value", Filter{}, []string{"IN100", "IN200", "in300"}},
		{"All keeps everything", Filter{Team: All, OwnerGroup: All}, []string{"IN100", "IN200", "in300"}},
		{"Search ticket number ignores case", Filter{Search: "IN3"}, []string{"in300"}},
		{"Search ODP ignores case", Filter{Search: "ODP-JKT"}, []string{"IN200"}},
		{"Search service number", Filter{Search: "1220"}, []string{"IN100", "IN200"}},
		{"Search without match", Filter{Search: "xyz"}, []string{}},
		{"Team", Filter{Team: "TEAM_A"}, []string{"IN100", "in300"}},
		{"Team is exact", Filter{Team: "team_a"}, []string{}},
		{"Owner group", Filter{OwnerGroup: "PLATINUM"}, []string{"IN200"}},
		{"Unassigned owner group", Filter{OwnerGroup: Unassigned}, []string{"in300"}},
		{"Combined", Filter{Search: "bdg", Team: "TEAM_A", OwnerGroup: "REGULER"}, []string{"IN100"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ticketNos(tt.filter.Apply(filterFixture())))
		})
	}
}

func TestFilterApplyKeepsInput(t *testing.T) {
	in := filterFixture()
	out := Filter{Team: "TEAM_B"}.Apply(in)

	assert.Len(t, out, 1)
	assert.Len(t, in, 3)
	assert.Equal(t, "IN100", in[0].TicketNo)
}
