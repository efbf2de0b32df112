package ticket

import (
	"io"
	"strconv"
	"strings"

	"github.com/rifqisp97-lab/technician-guardian/internal/tabular"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// Layouts used when writing tickets back out.
const (
	TimestampLayout = "02/01/2006 15:04"
	DateLayout      = "02/01/2006"
)

// Delimiter is the field separator Encode writes.
const Delimiter = ';'

// Write emits tickets in the positional template with a header line. The
// sequence column is renumbered from 1. Parse reads the output back into
// equal tickets, with timestamps at minute precision and close dates at
// day precision.
func Write(w io.Writer, tickets []models.Ticket) error {
	tw := tabular.NewWriter(w, Delimiter)
	if err := tw.Write(Columns[:]); err != nil {
		return err
	}
	for i, t := range tickets {
		if err := tw.Write(record(i+1, t)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Encode returns the text Write would produce.
func Encode(tickets []models.Ticket) string {
	var b strings.Builder
	// strings.Builder never fails
	_ = Write(&b, tickets)
	return b.String()
}

func record(seq int, t models.Ticket) []string {
	closeDate := ""
	if t.CloseDate != nil {
		closeDate = t.CloseDate.Format(DateLayout)
	}
	fields := make([]string, numColumns)
	fields[colSeq] = strconv.Itoa(seq)
	fields[colInputDate] = t.InputDate.Format(TimestampLayout)
	fields[colTeam] = t.Team
	fields[colTicketNo] = t.TicketNo
	fields[colOwnerGroup] = t.OwnerGroup
	fields[colInetNo] = t.InetNo
	fields[colReportedDate] = t.ReportedDate.Format(TimestampLayout)
	fields[colStatus] = t.Status
	fields[colODP] = t.ODP
	fields[colTTR] = t.TTRRaw
	fields[colCloseDate] = closeDate
	fields[colTeamClose] = t.TeamClose
	return fields
}
