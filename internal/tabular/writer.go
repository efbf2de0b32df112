package tabular

import (
	"encoding/csv"
	"io"
	"strings"
)

// Writer emits rows in the dialect Decode reads back: one record per line,
// '\n' line endings, and fields quoted when they contain the delimiter or a
// double quote.
type Writer struct {
	w *csv.Writer
}

// NewWriter returns a Writer separating fields with delim.
func NewWriter(w io.Writer, delim rune) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	cw.UseCRLF = false
	return &Writer{w: cw}
}

// Write writes one record. Line breaks inside fields are replaced by a
// space because Decode treats every line as its own record.
func (w *Writer) Write(fields []string) error {
	flat := make([]string, len(fields))
	for i, f := range fields {
		flat[i] = flattenBreaks.Replace(f)
	}
	return w.w.Write(flat)
}

// Flush writes buffered data and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

var flattenBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
