package table

// records.go reads and writes textual records against a schema.
//
// Both interchange formats reduce to "a header row, then data rows"; only the
// delimiter and quoting differ. The formats plug in through RecordReader and
// RecordWriter, which *csv.Reader and *csv.Writer already satisfy.
//
// Read policy:
//  1. Header columns are matched to schema columns case-insensitively
//  2. Undeclared header columns are ignored
//  3. Declared columns missing from the header stay default and missing
//  4. A key cell that is empty or fails to parse aborts the read
//  5. Any other bad cell is logged, defaulted and left missing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// RecordReader yields one record per call and io.EOF at the end.
type RecordReader interface {
	Read() ([]string, error)
}

// RecordWriter accepts one record per call.
type RecordWriter interface {
	Write(record []string) error
}

// ReadResult summarises one ReadRecords call.
type ReadResult struct {
	Rows      int // rows appended
	Defaulted int // non-key cells that failed coercion and were defaulted
	Absent    int // declared columns not present in the header
}

// HeaderIndex maps lowercased header names to their position in a record.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a raw header row.
// Names are cleaned and lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanHeader(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanHeader removes artifacts commonly found around header names:
// a leading UTF-8 BOM, surrounding whitespace and surrounding quotes.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// ReadRecords appends one row per record from src. header names the fields
// of every record. If a key cell cannot be parsed, the rows appended by this
// call are discarded and an ErrMissingRequiredColumn error is returned.
func (t *Table) ReadRecords(src RecordReader, header []string, logger *slog.Logger) (ReadResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var res ReadResult
	hdr := MakeHeaderIndex(header)

	positions := make([]int, len(t.cols))
	for i, c := range t.schema.columns {
		pos, ok := hdr[strings.ToLower(c.HeaderName())]
		if !ok {
			pos, ok = hdr[strings.ToLower(c.Name)]
		}
		if !ok {
			positions[i] = -1
			res.Absent++
			continue
		}
		positions[i] = pos
	}

	start := t.rows
	for {
		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.truncate(start)
			return ReadResult{}, fmt.Errorf("read %s record %d: %w", t.schema.name, t.rows-start+1, err)
		}

		row := t.rows
		t.grow(1)

		for i, spec := range t.schema.columns {
			pos := positions[i]
			if pos < 0 {
				continue
			}

			raw := ""
			if pos < len(rec) {
				raw = rec[pos]
			}
			if spec.Type != TypeText {
				raw = strings.TrimSpace(raw)
			}

			if raw == "" {
				if spec.Key {
					t.truncate(start)
					return ReadResult{}, newMissingRequired(t.schema.name, spec.Name, row, raw, nil)
				}
				continue
			}

			if err := t.cols[i].setRaw(row, raw); err != nil {
				if spec.Key {
					t.truncate(start)
					return ReadResult{}, newMissingRequired(t.schema.name, spec.Name, row, raw, err)
				}
				logger.Warn("cell coercion failed, using default",
					"table", t.schema.name,
					"column", spec.Name,
					"row", row,
					"value", raw,
					"error", err,
				)
				res.Defaulted++
			}
		}
	}

	res.Rows = t.rows - start
	return res, nil
}

// WriteRecords writes the header row followed by every row, columns in
// schema order. Missing cells are written as empty fields.
func (t *Table) WriteRecords(dst RecordWriter) error {
	if err := dst.Write(t.schema.Headers()); err != nil {
		return fmt.Errorf("write %s header: %w", t.schema.name, err)
	}

	rec := make([]string, len(t.cols))
	for row := 0; row < t.rows; row++ {
		for i := range t.cols {
			rec[i], _ = t.Format(i, row)
		}
		if err := dst.Write(rec); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.schema.name, row, err)
		}
	}
	return nil
}
