// Package network reads and writes the sectioned network file format.
//
// A file is a sequence of sections:
//
//	$BETREIBER
//	NR;NAME
//	1;Bahn
//
//	$HALTESTELLE:NR;NAME;XKOORD;YKOORD
//	10;Hbf;1056377;7276510
//
// The marker line names the section and is followed by a ';'-separated
// header, either on the next line or after a ':' on the marker line itself.
// Data lines run until a blank line or the next marker. Lines starting with
// '*' are comments.
package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
	"github.com/JonMunkholm/transitconv/internal/textio"
)

// ErrUnknownSection is returned when a section name is not part of Catalog.
var ErrUnknownSection = errors.New("unknown network section")

const maxLineLength = 1 << 20

// Notice records a recoverable problem found while reading. Err wraps
// table.ErrMalformedSection or table.ErrEncodingFailure.
type Notice struct {
	Section string
	Line    int
	Err     error
}

func (n Notice) String() string {
	return fmt.Sprintf("line %d: %v", n.Line, n.Err)
}

// File is a network file and the tables read from or destined for it.
type File struct {
	path       string
	sourceEPSG int
	decoder    *textio.Decoder
	encoder    *textio.Encoder
	tables     map[string]*table.Table
	notices    []Notice
	logger     *slog.Logger
}

type settings struct {
	codePage   string
	encoding   string
	sourceEPSG int
	logger     *slog.Logger
}

// Option configures a File.
type Option func(*settings)

// WithLogger sets the logger used for read warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLegacyCodePage sets the code page tried for lines that are not valid
// UTF-8. Defaults to windows-1252.
func WithLegacyCodePage(name string) Option {
	return func(s *settings) { s.codePage = name }
}

// WithWriteEncoding sets the encoding used by Write. Defaults to UTF-8.
func WithWriteEncoding(name string) Option {
	return func(s *settings) { s.encoding = name }
}

// WithSourceEPSG sets the projection of the coordinate columns when the
// file does not declare one.
func WithSourceEPSG(code int) Option {
	return func(s *settings) { s.sourceEPSG = code }
}

// New returns an empty File that Write will create at path.
func New(path string, opts ...Option) (*File, error) {
	s := settings{
		codePage:   textio.DefaultLegacyCodePage,
		encoding:   textio.UTF8,
		sourceEPSG: projection.DefaultNetworkEPSG,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&s)
	}

	dec, err := textio.NewDecoder(s.codePage)
	if err != nil {
		return nil, err
	}
	enc, err := textio.NewEncoder(s.encoding)
	if err != nil {
		return nil, err
	}
	if s.sourceEPSG <= 0 {
		return nil, fmt.Errorf("%w: source projection %d", projection.ErrUnknownProjection, s.sourceEPSG)
	}

	return &File{
		path:       path,
		sourceEPSG: s.sourceEPSG,
		decoder:    dec,
		encoder:    enc,
		tables:     make(map[string]*table.Table),
		logger:     s.logger,
	}, nil
}

// ReadFile reads the network file at path.
func ReadFile(path string, opts ...Option) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer fh.Close()

	f, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := f.read(fh); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// Read parses a network file from r.
func Read(r io.Reader, opts ...Option) (*File, error) {
	f, err := New("", opts...)
	if err != nil {
		return nil, err
	}
	if err := f.read(r); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the file the tables were read from or will be written to.
func (f *File) Path() string { return f.path }

// Notices returns the recoverable problems found while reading.
func (f *File) Notices() []Notice { return f.notices }

// Sections lists the sections holding at least one row, in catalog order.
func (f *File) Sections() []string {
	var out []string
	for _, name := range Catalog.Names() {
		if t, ok := f.tables[name]; ok && t.Len() > 0 {
			out = append(out, name)
		}
	}
	return out
}

// Tables returns the sections holding at least one row, in catalog order.
func (f *File) Tables() []*table.Table {
	var out []*table.Table
	for _, name := range f.Sections() {
		out = append(out, f.tables[name])
	}
	return out
}

// Table returns the table for section. A known section the file does not
// contain yields an empty table.
func (f *File) Table(section string) (*table.Table, error) {
	s, ok := Catalog.Get(section)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	t, ok := f.tables[s.Name()]
	if !ok {
		t = table.New(s)
		f.tables[s.Name()] = t
	}
	return t, nil
}

// Set installs t as the file's table for its section.
func (f *File) Set(t *table.Table) error {
	if !Catalog.Contains(t.Schema()) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, t.Name())
	}
	f.tables[t.Name()] = t
	return nil
}

// SourceEPSG returns the projection of the coordinate columns: the one
// declared in the VERSION section if it parses, otherwise the configured
// default.
func (f *File) SourceEPSG() int {
	if v, ok := f.tables[Version.Name()]; ok && v.Len() > 0 {
		if raw, ok := table.Get(v, VersionProjection, 0); ok {
			if code, err := projection.ParseCode(raw); err == nil {
				return code
			}
			f.logger.Warn("ignoring unparseable projection in VERSION", "value", raw)
		}
	}
	return f.sourceEPSG
}

// Coordinates reprojects the XKOORD/YKOORD columns of section to toEPSG in
// one batch. present[i] is false when row i lacks either coordinate; its
// point is then zero.
func (f *File) Coordinates(section string, reg *projection.Registry, toEPSG int) (points []projection.Point, present []bool, err error) {
	t, err := f.Table(section)
	if err != nil {
		return nil, nil, err
	}
	xCol, err := table.ColOf[float64](t.Schema(), "XKOORD")
	if err != nil {
		return nil, nil, err
	}
	yCol, err := table.ColOf[float64](t.Schema(), "YKOORD")
	if err != nil {
		return nil, nil, err
	}

	xs, xok := table.Values(t, xCol)
	ys, yok := table.Values(t, yCol)
	points, err = reg.TransformAll(f.SourceEPSG(), toEPSG, xs, ys)
	if err != nil {
		return nil, nil, err
	}

	present = make([]bool, len(points))
	for i := range points {
		present[i] = xok[i] && yok[i]
		if !present[i] {
			points[i] = projection.Point{}
		}
	}
	return points, present, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// section is the parse state of the section being read.
type section struct {
	schema  *table.Schema
	header  []string
	records [][]string
	line    int // marker line
}

func (f *File) read(r io.Reader) error {
	cr := textio.NewCountingReader(textio.NewBOMSkippingReader(r))
	sc := bufio.NewScanner(cr)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)

	var (
		cur        *section
		wantHeader bool
		skipping   bool
		lineNo     int
	)

	flush := func() error {
		defer func() { cur, wantHeader, skipping = nil, false, false }()
		if cur == nil {
			return nil
		}
		if wantHeader {
			f.malformed(cur.schema.Name(), cur.line, "", "marker without header")
			f.ensure(cur.schema)
			return nil
		}
		return f.load(cur)
	}

	for sc.Scan() {
		lineNo++
		raw := sc.Bytes()

		text, ok := f.decoder.DecodeLine(raw)
		if !ok {
			var name string
			if cur != nil {
				name = cur.schema.Name()
			}
			f.notices = append(f.notices, Notice{
				Section: name,
				Line:    lineNo,
				Err: &table.Error{
					Kind:   table.ErrEncodingFailure,
					Table:  name,
					Row:    lineNo,
					Value:  text,
					Reason: "line is neither UTF-8 nor " + f.decoder.CodePage(),
				},
			})
			f.logger.Warn("undecodable line kept as raw bytes",
				"line", lineNo,
				"code_page", f.decoder.CodePage(),
			)
		}
		text = strings.TrimRight(text, "\r")
		trimmed := strings.TrimSpace(text)

		switch {
		case trimmed == "":
			if err := flush(); err != nil {
				return err
			}

		case strings.HasPrefix(trimmed, "*"):
			continue

		case strings.HasPrefix(trimmed, "$"):
			if err := flush(); err != nil {
				return err
			}
			name, rest, combined := strings.Cut(trimmed[1:], ":")
			name = strings.ToUpper(strings.TrimSpace(name))

			s, known := Catalog.Get(name)
			if !known {
				f.logger.Debug("skipping unknown section", "section", name, "line", lineNo)
				skipping = true
				continue
			}
			cur = &section{schema: s, line: lineNo}
			if !combined {
				wantHeader = true
				continue
			}
			if !f.acceptHeader(cur, rest, lineNo) {
				cur = nil
				skipping = true
			}

		case skipping:
			continue

		case cur == nil:
			f.logger.Debug("data outside any section", "line", lineNo)

		case wantHeader:
			wantHeader = false
			if !f.acceptHeader(cur, text, lineNo) {
				cur = nil
				skipping = true
			}

		case !ok:
			cur.records = append(cur.records, strings.Split(text, ";"))

		default:
			cur.records = append(cur.records, textio.SplitFields(text, ";"))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}
	if err := flush(); err != nil {
		return err
	}

	f.logger.Debug("network file read",
		"bytes", cr.N,
		"lines", lineNo,
		"sections", len(f.Sections()),
		"notices", len(f.notices),
	)
	return nil
}

// acceptHeader validates a header line. A rejected header leaves the
// section empty and records a MalformedSection notice.
func (f *File) acceptHeader(cur *section, line string, lineNo int) bool {
	fields := textio.SplitFields(line, ";")
	header := make([]string, len(fields))
	matched := 0
	for i, h := range fields {
		h = table.CleanHeader(h)
		if h == "" && i == len(fields)-1 && i > 0 {
			header = header[:i] // trailing separator
			break
		}
		if !identifier.MatchString(h) {
			f.malformed(cur.schema.Name(), lineNo, line, fmt.Sprintf("header token %q is not a column name", h))
			f.ensure(cur.schema)
			return false
		}
		if _, ok := cur.schema.Lookup(h); ok {
			matched++
		}
		header[i] = h
	}
	if matched == 0 {
		f.malformed(cur.schema.Name(), lineNo, line, "header names no known column")
		f.ensure(cur.schema)
		return false
	}
	cur.header = header
	return true
}

func (f *File) malformed(name string, lineNo int, value, reason string) {
	f.notices = append(f.notices, Notice{
		Section: name,
		Line:    lineNo,
		Err: &table.Error{
			Kind:   table.ErrMalformedSection,
			Table:  name,
			Row:    lineNo,
			Value:  value,
			Reason: reason,
		},
	})
	f.logger.Warn("malformed section",
		"section", name,
		"line", lineNo,
		"reason", reason,
	)
}

func (f *File) ensure(s *table.Schema) *table.Table {
	t, ok := f.tables[s.Name()]
	if !ok {
		t = table.New(s)
		f.tables[s.Name()] = t
	}
	return t
}

func (f *File) load(cur *section) error {
	t := f.ensure(cur.schema)
	res, err := t.ReadRecords(&recordSlice{records: cur.records}, cur.header, f.logger)
	if err != nil {
		return fmt.Errorf("section %s at line %d: %w", cur.schema.Name(), cur.line, err)
	}
	f.logger.Debug("section read",
		"section", cur.schema.Name(),
		"rows", res.Rows,
		"defaulted", res.Defaulted,
		"absent_columns", res.Absent,
	)
	return nil
}

type recordSlice struct {
	records [][]string
	next    int
}

func (r *recordSlice) Read() ([]string, error) {
	if r.next >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	return rec, nil
}
