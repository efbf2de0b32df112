// Package tabular splits loosely delimited spreadsheet exports into rows of
// positional fields.
//
// Exports arrive with either a comma or a semicolon as separator, with or
// without a descriptive header line, and with stray blank lines. Decode
// hides those differences and never fails: lines it cannot use are dropped
// and reported on the returned Table.
package tabular

import (
	"encoding/csv"
	"iter"
	"strings"
)

// MinFields is the minimum number of fields a line needs to be kept as a row.
const MinFields = 5

// HeaderMarker identifies the header line. It is matched against the
// lowercased line with all whitespace removed, so "No Tiket", "NO TIKET"
// and "NoTiket" all match.
const HeaderMarker = "notiket"

// Row is one data line split into fields.
type Row struct {
	// Line is the 1-based line number in the original input
	Line int

	// Fields holds the raw, untrimmed field values
	Fields []string
}

// Table is the result of decoding one input blob.
type Table struct {
	// Delimiter is the field separator chosen for the input
	Delimiter rune

	// HeaderLine is the 1-based line number of the header, or 0 if none was found
	HeaderLine int

	// Header holds the header fields, nil if no header was found
	Header []string

	// Rows are the kept data rows in input order
	Rows []Row

	// Short are the lines dropped for having fewer than MinFields fields
	Short []Row
}

// All returns the kept rows in input order.
func (t *Table) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range t.Rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Len returns the number of kept rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

type line struct {
	number int
	text   string
}

// Decode splits raw into rows. Blank or whitespace-only input yields an
// empty table.
func Decode(raw string) *Table {
	lines := splitLines(raw)
	t := &Table{Delimiter: ';'}
	if len(lines) == 0 {
		return t
	}

	start := 0
	sample := lines[0].text
	if idx := LocateHeader(texts(lines)); idx >= 0 {
		sample = lines[idx].text
		start = idx + 1
		t.HeaderLine = lines[idx].number
	}
	t.Delimiter = DetectDelimiter(sample)
	if t.HeaderLine > 0 {
		t.Header = SplitLine(sample, t.Delimiter)
	}

	for _, l := range lines[start:] {
		row := Row{Line: l.number, Fields: SplitLine(l.text, t.Delimiter)}
		if len(row.Fields) < MinFields {
			t.Short = append(t.Short, row)
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// DecodeKeyed reads a well-formed delimited file whose first non-blank line
// is the header. Every following line becomes a row whatever its length;
// callers look fields up through Header.
func DecodeKeyed(raw string) *Table {
	lines := splitLines(raw)
	t := &Table{Delimiter: ';'}
	if len(lines) == 0 {
		return t
	}

	t.Delimiter = DetectDelimiter(lines[0].text)
	t.HeaderLine = lines[0].number
	t.Header = SplitLine(lines[0].text, t.Delimiter)
	for _, l := range lines[1:] {
		t.Rows = append(t.Rows, Row{Line: l.number, Fields: SplitLine(l.text, t.Delimiter)})
	}
	return t
}

// DetectDelimiter picks ';' when the sample has at least as many semicolons
// as commas, and ',' otherwise. Locale-formatted exports use semicolons
// because their numbers carry decimal commas.
func DetectDelimiter(sample string) rune {
	if strings.Count(sample, ";") >= strings.Count(sample, ",") {
		return ';'
	}
	return ','
}

// LocateHeader returns the index of the first line containing HeaderMarker,
// or -1 when the input has no header.
func LocateHeader(lines []string) int {
	for i, l := range lines {
		if strings.Contains(squash(l), HeaderMarker) {
			return i
		}
	}
	return -1
}

// SplitLine splits one line on delim. Double-quoted fields may contain the
// delimiter. A line with a stray or unbalanced quote is split literally on
// every delimiter.
func SplitLine(text string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = false
	r.ReuseRecord = false

	fields, err := r.Read()
	if err != nil {
		return strings.Split(text, string(delim))
	}
	return fields
}

func splitLines(raw string) []line {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var out []line
	for i, text := range strings.Split(raw, "\n") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: text})
	}
	return out
}

func texts(lines []line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

// squash lowercases s and drops every whitespace rune.
func squash(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// NormalizeKey turns a header label into its lookup key: whitespace removed,
// lowercased. "Tanggal  Input " becomes "tanggalinput".
func NormalizeKey(label string) string {
	return squash(strings.Trim(label, "\"\ufeff"))
}
