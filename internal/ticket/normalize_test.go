package ticket

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

var wib = time.FixedZone("WIB", 7*60*60)

// fixedNow is the processing time used by tests exercising the date fallback.
var fixedNow = time.Date(2024, time.August, 17, 10, 0, 0, 0, wib)

func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithLocation(wib),
		WithClock(func() time.Time { return fixedNow }),
	}, extra...)
}

func loadSample(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/sample.csv")
	require.NoError(t, err)
	return string(b)
}

func TestParseEndToEnd(t *testing.T) {
	raw := "No;Tanggal Input;Team;No Tiket;Ownergrub;No Inet;Reported Date;Status;ODP;TTR;Jam Close;Team Close\n" +
		"1;01/07/2024 08:15;TEAM_A;IN123;REGULER;111;01/07/2024 08:00;OPEN;ODP-1;1 jam 30 menit;;"

	tickets := Parse(raw, testOptions()...)

	require.Len(t, tickets, 1)
	got := tickets[0]
	assert.Equal(t, "IN123", got.ID)
	assert.Equal(t, "IN123", got.TicketNo)
	assert.Equal(t, "TEAM_A", got.Team)
	assert.Equal(t, "REGULER", got.OwnerGroup)
	assert.Equal(t, "111", got.InetNo)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, "ODP-1", got.ODP)
	assert.Equal(t, "1 jam 30 menit", got.TTRRaw)
	assert.Equal(t, 90, got.TTRMinutes)
	assert.Nil(t, got.CloseDate)
	assert.Equal(t, time.Date(2024, time.July, 1, 8, 15, 0, 0, wib), got.InputDate)
	assert.Equal(t, time.Date(2024, time.July, 1, 8, 0, 0, 0, wib), got.ReportedDate)
}

func TestParseStrayQuote(t *testing.T) {
	raw := `1;01/07/2024 08:15;TEAM_A;IN123;"REGULER;111;01/07/2024 08:00;OPEN;ODP-1;1 jam 30 menit;;`

	tickets := Parse(raw, testOptions()...)

	require.Len(t, tickets, 1)
	got := tickets[0]
	assert.Equal(t, `"REGULER`, got.OwnerGroup)
	assert.Equal(t, "111", got.InetNo)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, "ODP-1", got.ODP)
	assert.Equal(t, 90, got.TTRMinutes)
	assert.Equal(t, time.Date(2024, time.July, 1, 8, 0, 0, 0, wib), got.ReportedDate)
}

func TestParseBlankInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n \t\n"} {
		tickets := Parse(raw)
		assert.NotNil(t, tickets)
		assert.Empty(t, tickets)
	}
}

func TestParseDropsRowWithoutTicketNumber(t *testing.T) {
	valid := "1;01/07/2024 08:15;TEAM_A;IN123;REGULER;111;01/07/2024 08:00;OPEN;ODP-1;1 jam;;\n"
	invalid := "2;01/07/2024 08:15;TEAM_A;;REGULER;111;01/07/2024 08:00;OPEN;ODP-1;1 jam;;\n"

	without := Parse(valid+valid, testOptions()...)
	with := Parse(valid+invalid+valid, testOptions()...)

	assert.Len(t, without, 2)
	assert.Len(t, with, len(without))
	assert.Len(t, Parse(valid+invalid, testOptions()...), 1)
}

func TestParseSample(t *testing.T) {
	var diag Diagnostics
	tickets := Parse(loadSample(t), testOptions(WithDiagnostics(&diag))...)

	require.Len(t, tickets, 4)
	assert.Equal(t, []string{"IN123", "IN124", "IN126", "IN127"}, ticketNumbers(tickets))

	in124 := tickets[1]
	assert.Equal(t, "122000000000", in124.InetNo)
	assert.Equal(t, models.StatusClose, in124.Status)
	require.NotNil(t, in124.CloseDate)
	assert.Equal(t, time.Date(2024, time.July, 1, 10, 0, 0, 0, wib), *in124.CloseDate)

	in126 := tickets[2]
	assert.Equal(t, "ODP-5;B", in126.ODP)
	assert.Equal(t, 2400, in126.TTRMinutes)
	assert.Equal(t, time.Date(2024, time.July, 2, 0, 0, 0, 0, wib), in126.ReportedDate)
	require.NotNil(t, in126.CloseDate)
	assert.Equal(t, time.Date(2024, time.July, 3, 0, 0, 0, 0, wib), *in126.CloseDate)

	in127 := tickets[3]
	assert.Equal(t, models.StatusClose, in127.Status)
	assert.Equal(t, fixedNow, in127.ReportedDate)
	assert.Nil(t, in127.CloseDate)
	assert.Equal(t, 185, in127.TTRMinutes)

	assert.Equal(t, 4, diag.Kept)
	assert.Equal(t, 1, diag.Count(ReasonTooFewFields))
	assert.Equal(t, 1, diag.Count(ReasonMissingTeam))
	assert.Equal(t, 1, diag.Count(ReasonMissingTicketNo))
	assert.Equal(t, 1, diag.DateFallbacks)
	assert.Equal(t, map[DropReason]int{
		ReasonTooFewFields:    1,
		ReasonMissingTeam:     1,
		ReasonMissingTicketNo: 1,
	}, diag.Reasons())
}

func TestRowValidity(t *testing.T) {
	n := New(testOptions()...)

	testCases := []struct {
		name     string
		fields   []string
		reason   DropReason
		expected bool
	}{
		{
			name:     "Valid",
			fields:   []string{"1", "", "TEAM_A", "IN1", ""},
			expected: true,
		},
		{
			name:   "Blank ticket number",
			fields: []string{"1", "", "TEAM_A", "  ", ""},
			reason: ReasonMissingTicketNo,
		},
		{
			name:   "Missing team",
			fields: []string{"1", "", "", "IN1", ""},
			reason: ReasonMissingTeam,
		},
		{
			name:   "Sentinel team",
			fields: []string{"1", "", "n/a", "IN1", ""},
			reason: ReasonMissingTeam,
		},
		{
			name:   "Too short to reach ticket column",
			fields: []string{"1", "", "TEAM_A"},
			reason: ReasonMissingTicketNo,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := n.Row(tc.fields)
			assert.Equal(t, tc.expected, out.Kept())
			assert.Equal(t, tc.reason, out.Reason)
		})
	}
}

func TestRowDefaults(t *testing.T) {
	out := New(testOptions()...).Row([]string{"1", "", "TEAM_A", "IN1", ""})

	require.True(t, out.Kept())
	assert.Equal(t, models.StatusUnknown, out.Ticket.Status)
	assert.Equal(t, fixedNow, out.Ticket.InputDate)
	assert.Equal(t, fixedNow, out.Ticket.ReportedDate)
	assert.Equal(t, 0, out.Ticket.TTRMinutes)
	assert.Nil(t, out.Ticket.CloseDate)
}

func TestRowCloseDateOnlyWhenClosed(t *testing.T) {
	n := New(testOptions()...)
	fields := func(status string) []string {
		return []string{"1", "01/07/2024", "TEAM_A", "IN1", "", "", "01/07/2024", status, "", "", "02/07/2024", ""}
	}

	open := n.Row(fields("OPEN"))
	closed := n.Row(fields("Close"))
	passthrough := n.Row(fields("PENDING"))

	assert.Nil(t, open.Ticket.CloseDate)
	require.NotNil(t, closed.Ticket.CloseDate)
	assert.Equal(t, 2, closed.Ticket.CloseDate.Day())
	assert.Equal(t, models.StatusClose, closed.Ticket.Status)
	assert.Equal(t, "PENDING", passthrough.Ticket.Status)
	assert.Nil(t, passthrough.Ticket.CloseDate)
}

func TestNewID(t *testing.T) {
	n := New(WithIDGenerator(func() string { return "generated" }))
	assert.Equal(t, "IN9", n.NewID("IN9"))
	assert.Equal(t, "generated", n.NewID(""))

	a, b := RandomID(), RandomID()
	assert.Len(t, a, 9)
	assert.NotEqual(t, a, b)
}

func TestParseKeyed(t *testing.T) {
	raw := "Team , No  Tiket,Status,TTR,Reported Date,Keterangan\n" +
		"TEAM_A,IN1,OPEN,2 jam,01/07/2024 08:00,kabel putus\n" +
		"TEAM_B,,OPEN,1 jam,01/07/2024 08:00,\n" +
		"TEAM_C,IN3,close,15 menit,02/07/2024 09:30\n"

	var diag Diagnostics
	tickets := ParseKeyed(raw, testOptions(WithDiagnostics(&diag))...)

	require.Len(t, tickets, 2)
	assert.Equal(t, "IN1", tickets[0].TicketNo)
	assert.Equal(t, "TEAM_A", tickets[0].Team)
	assert.Equal(t, 120, tickets[0].TTRMinutes)
	assert.Equal(t, time.Date(2024, time.July, 1, 8, 0, 0, 0, wib), tickets[0].ReportedDate)
	assert.Equal(t, fixedNow, tickets[0].InputDate)
	assert.Equal(t, "IN3", tickets[1].TicketNo)
	assert.Equal(t, models.StatusClose, tickets[1].Status)
	assert.Equal(t, []string{"Keterangan"}, diag.UnknownColumns)
	assert.Equal(t, 1, diag.Count(ReasonMissingTicketNo))
}

func TestParseKeyedBlankInput(t *testing.T) {
	assert.Empty(t, ParseKeyed("  \n"))
}

func TestExpandScientific(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "1.22E+11", expected: "122000000000"},
		{input: "1,22E+11", expected: "122000000000"},
		{input: "6.2812345E+11", expected: "628123450000"},
		{input: "1.5e1", expected: "15"},
		{input: "1.234E+2", expected: "1.234E+2"},
		{input: "122000000000", expected: "122000000000"},
		{input: "ABC", expected: "ABC"},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, expandScientific(tc.input))
		})
	}
}

func ticketNumbers(tickets []models.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.TicketNo
	}
	return out
}
