package ticket

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

func sampleTickets() []models.Ticket {
	closed := time.Date(2024, time.July, 2, 0, 0, 0, 0, wib)
	return []models.Ticket{
		{
			ID:           "IN1",
			InputDate:    time.Date(2024, time.July, 1, 8, 15, 0, 0, wib),
			Team:         "TEAM_A",
			TicketNo:     "IN1",
			OwnerGroup:   "REGULER",
			InetNo:       "122000000000",
			ReportedDate: time.Date(2024, time.July, 1, 8, 0, 0, 0, wib),
			Status:       models.StatusOpen,
			ODP:          "ODP-1",
			TTRRaw:       "1 jam 30 menit",
			TTRMinutes:   90,
		},
		{
			ID:           "IN2",
			InputDate:    time.Date(2024, time.July, 1, 9, 0, 0, 0, wib),
			Team:         "TEAM_B",
			TicketNo:     "IN2",
			OwnerGroup:   "PLATINUM",
			InetNo:       "333",
			ReportedDate: time.Date(2024, time.July, 1, 8, 45, 0, 0, wib),
			Status:       models.StatusClose,
			ODP:          "ODP;2",
			TTRRaw:       "45 menit",
			TTRMinutes:   45,
			CloseDate:    &closed,
			TeamClose:    "TEAM_B",
		},
	}
}

func TestEncodeHeader(t *testing.T) {
	out := Encode(sampleTickets())

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns[:], ";"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1;01/07/2024 08:15;TEAM_A;IN1;"))
	assert.True(t, strings.HasPrefix(lines[2], "2;"))
	assert.Contains(t, lines[2], `"ODP;2"`)
	assert.True(t, strings.HasSuffix(lines[2], ";02/07/2024;TEAM_B"))
}

func TestEncodeRoundTrip(t *testing.T) {
	tickets := sampleTickets()

	decoded := Parse(Encode(tickets), testOptions()...)

	assert.Equal(t, tickets, decoded)
}

func TestEncodeIdempotent(t *testing.T) {
	first := Encode(sampleTickets())
	second := Encode(Parse(first, testOptions()...))

	assert.Equal(t, first, second)
}

func TestEncodeRenumbers(t *testing.T) {
	tickets := Parse(loadSample(t), testOptions()...)

	out := Encode(tickets)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, len(tickets)+1)
	for i, line := range lines[1:] {
		seq, _, _ := strings.Cut(line, ";")
		assert.Equal(t, strconv.Itoa(i+1), seq)
	}
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, strings.Join(Columns[:], ";")+"\n", Encode(nil))
	assert.Empty(t, Parse(Encode(nil)))
}

func TestWriteFlattensLineBreaks(t *testing.T) {
	tickets := sampleTickets()[:1]
	tickets[0].ODP = "ODP-1\nsebelah masjid"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tickets))

	decoded := Parse(buf.String(), testOptions()...)
	require.Len(t, decoded, 1)
	assert.Equal(t, "ODP-1 sebelah masjid", decoded[0].ODP)
}
