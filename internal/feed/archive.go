// Package feed reads and writes the zip-of-CSV transit feed format.
package feed

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/JonMunkholm/transitconv/internal/table"
	"github.com/JonMunkholm/transitconv/internal/textio"
)

// ErrUnknownEntity is returned when an entity name is not part of Catalog.
var ErrUnknownEntity = errors.New("unknown feed entity")

// Archive is a feed on disk or in memory. Tables are read lazily on first
// access and then owned by the archive.
type Archive struct {
	path   string
	files  map[string]*zip.File
	closer io.Closer
	tables map[string]*table.Table
	logger *slog.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for read warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.logger = l
		}
	}
}

func newArchive(path string, opts []Option) *Archive {
	a := &Archive{
		path:   path,
		files:  make(map[string]*zip.File),
		tables: make(map[string]*table.Table),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewArchive returns an empty archive that Write will create at path.
func NewArchive(path string, opts ...Option) *Archive {
	return newArchive(path, opts)
}

// OpenArchive opens an existing feed. The caller must Close it.
func OpenArchive(path string, opts ...Option) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s: %w", path, err)
	}
	a := newArchive(path, opts)
	a.closer = rc
	a.index(rc.File)
	return a, nil
}

// FromBytes reads a feed held in memory, such as an upload.
func FromBytes(data []byte, opts ...Option) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	a := newArchive("", opts)
	a.index(zr.File)
	return a, nil
}

// index records the members that name a catalog entity. Members inside a
// single top-level folder are accepted too.
func (a *Archive) index(files []*zip.File) {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(path.Base(f.Name))
		entity, ok := strings.CutSuffix(base, ".txt")
		if !ok {
			continue
		}
		if _, known := Catalog.Get(entity); !known {
			a.logger.Debug("ignoring feed member", "file", f.Name)
			continue
		}
		if _, dup := a.files[entity]; dup {
			continue
		}
		a.files[entity] = f
	}
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Path returns the file the archive was opened from or will be written to.
func (a *Archive) Path() string { return a.path }

// Entities lists the catalog entities present in the source archive, in
// catalog order.
func (a *Archive) Entities() []string {
	var out []string
	for _, name := range Catalog.Names() {
		if _, ok := a.files[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Tables returns the non-empty tables held in memory, in catalog order.
// Entities never read or set are not included.
func (a *Archive) Tables() []*table.Table {
	var out []*table.Table
	for _, name := range Catalog.Names() {
		if t, ok := a.tables[name]; ok && t.Len() > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Table returns the table for entity, reading it from the archive on first
// use. An entity the archive does not contain yields an empty table.
func (a *Archive) Table(entity string) (*table.Table, error) {
	s, ok := Catalog.Get(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if t, ok := a.tables[s.Name()]; ok {
		return t, nil
	}

	t := table.New(s)
	if f, ok := a.files[s.Name()]; ok {
		if err := a.read(t, f); err != nil {
			return nil, err
		}
	}
	a.tables[s.Name()] = t
	return t, nil
}

func (a *Archive) read(t *table.Table, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(textio.NewBOMSkippingReader(rc))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s header: %w", f.Name, err)
	}
	header = append([]string(nil), header...)

	res, err := t.ReadRecords(r, header, a.logger)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	a.logger.Debug("feed table read",
		"entity", t.Name(),
		"rows", res.Rows,
		"defaulted", res.Defaulted,
		"absent_columns", res.Absent,
	)
	return nil
}

// Set installs t as the archive's table for its entity, replacing any
// table read earlier.
func (a *Archive) Set(t *table.Table) error {
	if !Catalog.Contains(t.Schema()) {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, t.Name())
	}
	a.tables[t.Name()] = t
	return nil
}

// Write creates the archive at Path, replacing any existing file.
func (a *Archive) Write() error {
	if a.path == "" {
		return errors.New("write feed: archive has no path")
	}
	f, err := os.Create(a.path)
	if err != nil {
		return fmt.Errorf("create feed %s: %w", a.path, err)
	}
	if _, err := a.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close feed %s: %w", a.path, err)
	}
	return nil
}

// WriteTo writes a new zip holding one member per non-empty table, in
// catalog order.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	names := make([]string, 0, len(a.tables))
	for name, t := range a.tables {
		if t.Len() > 0 {
			names = append(names, name)
		}
	}
	order := make(map[string]int, Catalog.Len())
	for i, n := range Catalog.Names() {
		order[n] = i
	}
	sort.Slice(names, func(i, j int) bool { return order[names[i]] < order[names[j]] })

	for _, name := range names {
		t := a.tables[name]
		member, err := zw.Create(FileName(name))
		if err != nil {
			return cw.n, fmt.Errorf("create %s: %w", FileName(name), err)
		}
		rw := newRecordWriter(member, t.Schema())
		if err := t.WriteRecords(rw); err != nil {
			return cw.n, err
		}
		if err := rw.Flush(); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", FileName(name), err)
		}
		a.logger.Debug("feed table written", "entity", name, "rows", t.Len())
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("finish feed: %w", err)
	}
	return cw.n, nil
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
