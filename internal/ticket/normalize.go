// Package ticket turns decoded spreadsheet rows into models.Ticket values
// and writes tickets back out in the same dialect.
//
// Parse is the default entry point: rows are read by position in the fixed
// column order of the export template. ParseKeyed reads a file with a proper
// header and finds columns by name instead.
//
// Malformed data never fails a batch. Rows without a ticket number or team
// are dropped, unreadable dates fall back according to FallbackPolicy and
// unreadable durations count as zero minutes. Pass WithDiagnostics to see
// what was dropped and why.
package ticket

import (
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rifqisp97-lab/technician-guardian/internal/tabular"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// column is a position in the export template.
type column int

const (
	colSeq column = iota
	colInputDate
	colTeam
	colTicketNo
	colOwnerGroup
	colInetNo
	colReportedDate
	colStatus
	colODP
	colTTR
	colCloseDate
	colTeamClose
	numColumns
)

// Columns are the header labels of the export template in positional order.
var Columns = [numColumns]string{
	"No",
	"Tanggal Input",
	"Team",
	"No Tiket",
	"Ownergrub",
	"No Inet",
	"Reported Date",
	"Status",
	"ODP",
	"TTR",
	"Jam Close",
	"Team Close",
}

// keyedColumns maps normalized header keys to template positions. Keys not
// listed here are ignored.
var keyedColumns = map[string]column{
	"no":           colSeq,
	"tanggalinput": colInputDate,
	"inputdate":    colInputDate,
	"team":         colTeam,
	"notiket":      colTicketNo,
	"ticketno":     colTicketNo,
	"ownergrub":    colOwnerGroup,
	"ownergroup":   colOwnerGroup,
	"noinet":       colInetNo,
	"inetno":       colInetNo,
	"reporteddate": colReportedDate,
	"status":       colStatus,
	"odp":          colODP,
	"ttr":          colTTR,
	"jamclose":     colCloseDate,
	"closedate":    colCloseDate,
	"teamclose":    colTeamClose,
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocation sets the time zone dates are read in. The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithClock replaces time.Now as the source of the current time used by
// the UseCurrentTime fallback.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithIDGenerator replaces the random token used as ID for tickets without
// a ticket number.
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) {
		if gen != nil {
			n.newID = gen
		}
	}
}

// WithDiagnostics records kept and dropped rows into d.
func WithDiagnostics(d *Diagnostics) Option {
	return func(n *Normalizer) {
		n.diag = d
	}
}

// Normalizer converts field rows into tickets. It holds configuration only
// and is safe to reuse; a Diagnostics collector, if set, is not safe for
// concurrent use.
type Normalizer struct {
	loc   *time.Location
	now   func() time.Time
	newID func() string
	diag  *Diagnostics
}

// New returns a Normalizer configured by opts.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		loc:   time.Local,
		now:   time.Now,
		newID: RandomID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Parse decodes raw positionally and returns the valid tickets in input order.
func Parse(raw string, opts ...Option) []models.Ticket {
	return New(opts...).Table(tabular.Decode(raw))
}

// ParseKeyed decodes raw as a file with a header line and looks columns up
// by name. Header labels are matched with whitespace removed, ignoring case.
func ParseKeyed(raw string, opts ...Option) []models.Ticket {
	return New(opts...).KeyedTable(tabular.DecodeKeyed(raw))
}

// Table normalizes every row of a positionally decoded table.
func (n *Normalizer) Table(t *tabular.Table) []models.Ticket {
	for _, r := range t.Short {
		n.diag.drop(r.Line, ReasonTooFewFields)
	}
	tickets := make([]models.Ticket, 0, t.Len())
	for r := range t.All() {
		out := n.Row(r.Fields)
		if !out.Kept() {
			n.diag.drop(r.Line, out.Reason)
			continue
		}
		n.diag.keep()
		tickets = append(tickets, out.Ticket)
	}
	return tickets
}

// KeyedTable normalizes a table whose columns are identified by its header.
func (n *Normalizer) KeyedTable(t *tabular.Table) []models.Ticket {
	index := make(map[column]int, numColumns)
	for i, label := range t.Header {
		key := tabular.NormalizeKey(label)
		col, ok := keyedColumns[key]
		if !ok {
			n.diag.unknownColumn(label)
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	tickets := make([]models.Ticket, 0, t.Len())
	for r := range t.All() {
		fields := make([]string, numColumns)
		for col, i := range index {
			if i < len(r.Fields) {
				fields[col] = r.Fields[i]
			}
		}
		out := n.Row(fields)
		if !out.Kept() {
			n.diag.drop(r.Line, out.Reason)
			continue
		}
		n.diag.keep()
		tickets = append(tickets, out.Ticket)
	}
	return tickets
}

// Row converts one positional field row. Fields beyond the template are
// ignored and missing trailing fields read as empty.
func (n *Normalizer) Row(fields []string) Outcome {
	get := func(c column) string {
		if int(c) < len(fields) {
			return strings.TrimSpace(fields[c])
		}
		return ""
	}

	ticketNo := get(colTicketNo)
	if ticketNo == "" {
		return Outcome{Reason: ReasonMissingTicketNo}
	}
	team := get(colTeam)
	if team == "" || strings.EqualFold(team, models.MissingTeam) {
		return Outcome{Reason: ReasonMissingTeam}
	}

	status := normalizeStatus(get(colStatus))
	ttrRaw := get(colTTR)
	t := models.Ticket{
		ID:           n.NewID(ticketNo),
		InputDate:    n.required(get(colInputDate)),
		Team:         team,
		TicketNo:     ticketNo,
		OwnerGroup:   get(colOwnerGroup),
		InetNo:       expandScientific(get(colInetNo)),
		ReportedDate: n.required(get(colReportedDate)),
		Status:       status,
		ODP:          get(colODP),
		TTRRaw:       ttrRaw,
		TTRMinutes:   ParseTTR(ttrRaw),
		TeamClose:    get(colTeamClose),
	}
	if status == models.StatusClose {
		if closed, ok := n.Timestamp(get(colCloseDate), LeaveAbsent); ok {
			t.CloseDate = &closed
		}
	}
	return Outcome{Ticket: t}
}

// Timestamp reads s and applies policy when it cannot be read. The boolean
// is false only for LeaveAbsent with an unreadable or blank s.
func (n *Normalizer) Timestamp(s string, policy FallbackPolicy) (time.Time, bool) {
	if t, ok := ParseTimestamp(s, n.loc); ok {
		return t, true
	}
	switch policy {
	case UseCurrentTime:
		n.diag.fallback()
		return n.now().In(n.loc), true
	default:
		return time.Time{}, false
	}
}

func (n *Normalizer) required(s string) time.Time {
	t, _ := n.Timestamp(s, UseCurrentTime)
	return t
}

// NewID returns ticketNo, or a fresh random token when ticketNo is empty.
func (n *Normalizer) NewID(ticketNo string) string {
	if ticketNo != "" {
		return ticketNo
	}
	return n.newID()
}

// RandomID returns a 9 character token. It only needs to be distinct enough
// to key UI lists.
func RandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func normalizeStatus(s string) string {
	switch strings.ToUpper(s) {
	case "":
		return models.StatusUnknown
	case "OPEN":
		return models.StatusOpen
	case "CLOSE", "CLOSED":
		return models.StatusClose
	default:
		return s
	}
}

var scientific = regexp.MustCompile(`^[0-9]+(?:[.,][0-9]+)?[eE]\+?[0-9]+$`)

// expandScientific undoes the spreadsheet habit of showing long service
// numbers as "1.22E+11". Values that are not integral are left alone.
func expandScientific(s string) string {
	if !scientific.MatchString(s) {
		return s
	}
	f, ok := new(big.Float).SetPrec(256).SetString(strings.Replace(s, ",", ".", 1))
	if !ok || !f.IsInt() {
		return s
	}
	return f.Text('f', 0)
}
