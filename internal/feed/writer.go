package feed

import (
	"bufio"
	"io"
	"strings"

	"github.com/JonMunkholm/transitconv/internal/table"
)

// recordWriter writes comma separated records. Free-text columns are always
// quoted; other fields only when they contain a delimiter, quote or line
// break. The first record is the header and is never force-quoted.
type recordWriter struct {
	w       *bufio.Writer
	quoted  []bool
	started bool
}

func newRecordWriter(w io.Writer, s *table.Schema) *recordWriter {
	quoted := make([]bool, s.NumColumns())
	for i, c := range s.Columns() {
		quoted[i] = c.Quoted
	}
	return &recordWriter{w: bufio.NewWriter(w), quoted: quoted}
}

func (rw *recordWriter) Write(record []string) error {
	force := rw.started
	rw.started = true

	for i, field := range record {
		if i > 0 {
			rw.w.WriteByte(',')
		}
		q := force && i < len(rw.quoted) && rw.quoted[i]
		if q || strings.ContainsAny(field, ",\"\r\n") {
			rw.w.WriteByte('"')
			rw.w.WriteString(strings.ReplaceAll(field, `"`, `""`))
			rw.w.WriteByte('"')
		} else {
			rw.w.WriteString(field)
		}
	}
	return rw.w.WriteByte('\n')
}

func (rw *recordWriter) Flush() error { return rw.w.Flush() }
