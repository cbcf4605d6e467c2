package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/transitconv/internal/textio"
)

// Write creates the file at Path, replacing any existing file.
func (f *File) Write() error {
	if f.path == "" {
		return errors.New("write network file: no path")
	}
	fh, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create network file: %w", err)
	}
	if _, err := f.WriteTo(fh); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close network file: %w", err)
	}
	return nil
}

// WriteTo writes every non-empty table in catalog order, so VERSION comes
// first. Each section is its marker line, header line, data lines and a
// blank line. Fields are escaped with textio.EscapeField, so text holding
// '&', ';' or line breaks reads back unchanged.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	ew := f.encoder.Writer(cw)
	bw := bufio.NewWriter(ew)

	for _, name := range f.Sections() {
		t := f.tables[name]
		if _, err := fmt.Fprintf(bw, "$%s\n", name); err != nil {
			return cw.n, err
		}
		if err := t.WriteRecords(&lineWriter{w: bw, section: name, logger: f.logger}); err != nil {
			return cw.n, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return cw.n, err
		}
	}

	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("write network file: %w", err)
	}
	if err := ew.Close(); err != nil {
		return cw.n, fmt.Errorf("encode network file: %w", err)
	}
	return cw.n, nil
}

// lineWriter writes one ';'-separated line per record.
type lineWriter struct {
	w       *bufio.Writer
	section string
	logger  *slog.Logger
	line    int
}

func (lw *lineWriter) Write(record []string) error {
	escaped := 0
	for i, field := range record {
		if i > 0 {
			lw.w.WriteByte(';')
		}
		out := textio.EscapeField(field)
		if len(out) != len(field) {
			escaped++
		}
		lw.w.WriteString(out)
	}
	if escaped > 0 {
		lw.logger.Debug("escaped fields",
			"section", lw.section,
			"record", lw.line,
			"fields", escaped,
		)
	}
	lw.line++
	return lw.w.WriteByte('\n')
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
