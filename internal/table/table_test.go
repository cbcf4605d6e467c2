package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"
)

var testSchema = MustSchema("trips",
	ColumnSpec{Name: "trip_id", Type: TypeText, Key: true},
	ColumnSpec{Name: "name", Type: TypeText, Quoted: true},
	ColumnSpec{Name: "count", Type: TypeInteger, Default: "7"},
	ColumnSpec{Name: "ratio", Type: TypeReal},
	ColumnSpec{Name: "day", Type: TypeDate},
	ColumnSpec{Name: "departure", Type: TypeTimeOfDay},
	ColumnSpec{Name: "mode", Type: TypeEnum, EnumValues: []string{"bus", "tram"}, Default: "bus"},
)

var (
	colTripID    = MustCol[string](testSchema, "trip_id")
	colName      = MustCol[string](testSchema, "name")
	colCount     = MustCol[int64](testSchema, "count")
	colRatio     = MustCol[float64](testSchema, "ratio")
	colDay       = MustCol[time.Time](testSchema, "day")
	colDeparture = MustCol[time.Duration](testSchema, "departure")
	colMode      = MustCol[string](testSchema, "mode")
)

// ----------------------------------------------------------------------------
// Schema Tests
// ----------------------------------------------------------------------------

func TestNewSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cols []ColumnSpec
	}{
		{
			name: "duplicate column ignoring case",
			cols: []ColumnSpec{{Name: "a"}, {Name: "A"}},
		},
		{
			name: "enum without values",
			cols: []ColumnSpec{{Name: "a", Type: TypeEnum}},
		},
		{
			name: "bad integer default",
			cols: []ColumnSpec{{Name: "a", Type: TypeInteger, Default: "x"}},
		},
		{
			name: "bad date default",
			cols: []ColumnSpec{{Name: "a", Type: TypeDate, Default: "2024-01-01"}},
		},
		{
			name: "empty column name",
			cols: []ColumnSpec{{Name: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema("x", tt.cols...)
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("NewSchema() error = %v, want ErrSchemaMismatch", err)
			}
		})
	}

	if _, err := NewSchema("x"); !errors.Is(err, ErrValidation) {
		t.Errorf("NewSchema() with no columns error = %v, want ErrValidation", err)
	}
}

func TestColOf(t *testing.T) {
	if _, err := ColOf[int64](testSchema, "name"); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("wrong type handle error = %v, want ErrSchemaMismatch", err)
	}
	if _, err := ColOf[string](testSchema, "nope"); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("undeclared handle error = %v, want ErrSchemaMismatch", err)
	}
	c, err := ColOf[string](testSchema, "NAME")
	if err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if c.Name() != "name" || c.Pos() != 1 {
		t.Errorf("handle = %s@%d, want name@1", c.Name(), c.Pos())
	}
}

func TestMustCol_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCol on undeclared column did not panic")
		}
	}()
	MustCol[string](testSchema, "undeclared")
}

func TestSchemaHeaders(t *testing.T) {
	s := MustSchema("h",
		ColumnSpec{Name: "NR", Type: TypeInteger, Header: "NO"},
		ColumnSpec{Name: "NAME"},
	)
	got := strings.Join(s.Headers(), ";")
	if got != "NO;NAME" {
		t.Errorf("Headers() = %q, want %q", got, "NO;NAME")
	}
	if pos, ok := s.Lookup("no"); !ok || pos != 0 {
		t.Errorf("Lookup(header) = %d, %v", pos, ok)
	}
	if pos, ok := s.Lookup("nr"); !ok || pos != 0 {
		t.Errorf("Lookup(name) = %d, %v", pos, ok)
	}
}

// ----------------------------------------------------------------------------
// Table Tests
// ----------------------------------------------------------------------------

func TestAddRows(t *testing.T) {
	tbl := New(testSchema)

	for _, n := range []int{0, -1} {
		if err := tbl.AddRows(n); !errors.Is(err, ErrValidation) {
			t.Errorf("AddRows(%d) error = %v, want ErrValidation", n, err)
		}
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d after failed AddRows", tbl.Len())
	}

	if err := tbl.AddRows(3); err != nil {
		t.Fatalf("AddRows(3) error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
	for i := 0; i < testSchema.NumColumns(); i++ {
		if n := tbl.PresentCount(i); n != 0 {
			t.Errorf("column %d has %d present cells, want 0", i, n)
		}
	}

	count, ok := Get(tbl, colCount, 2)
	if ok || count != 7 {
		t.Errorf("default cell = %d, %v; want 7, false", count, ok)
	}
	mode, _ := Get(tbl, colMode, 0)
	if mode != "bus" {
		t.Errorf("enum default = %q, want bus", mode)
	}
}

func TestSetColumn(t *testing.T) {
	tbl := New(testSchema)
	if err := tbl.AddRows(2); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		column string
		values any
	}{
		{name: "too short", column: "count", values: []int64{1}},
		{name: "too long", column: "count", values: []int64{1, 2, 3}},
		{name: "wrong element type", column: "count", values: []string{"1", "2"}},
		{name: "undeclared column", column: "missing", values: []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tbl.SetColumn(tt.column, tt.values); !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("SetColumn() error = %v, want ErrSchemaMismatch", err)
			}
		})
	}

	if err := tbl.SetColumn("count", []int64{10, 20}); err != nil {
		t.Fatalf("SetColumn() error: %v", err)
	}
	vals, mask := Values(tbl, colCount)
	if vals[0] != 10 || vals[1] != 20 || !mask[0] || !mask[1] {
		t.Errorf("Values() = %v %v", vals, mask)
	}
	if tbl.PresentCount(colName.Pos()) != 0 {
		t.Error("SetColumn touched an unrelated column")
	}
}

func TestRows_RestartableSnapshot(t *testing.T) {
	tbl := New(testSchema)
	if err := tbl.AddRows(2); err != nil {
		t.Fatal(err)
	}

	seen := 0
	for r := range tbl.Rows() {
		if r.Index() != seen {
			t.Errorf("row index = %d, want %d", r.Index(), seen)
		}
		seen++
		if seen == 1 {
			if err := tbl.AddRows(5); err != nil {
				t.Fatal(err)
			}
		}
	}
	if seen != 2 {
		t.Errorf("iteration saw %d rows, want 2", seen)
	}

	seen = 0
	for range tbl.Rows() {
		seen++
	}
	if seen != 7 {
		t.Errorf("restarted iteration saw %d rows, want 7", seen)
	}
}

func TestRowFields(t *testing.T) {
	tbl := New(testSchema)
	if err := tbl.AddRows(1); err != nil {
		t.Fatal(err)
	}

	r := tbl.Row(0)
	SetField(r, colName, "Hauptbahnhof")
	SetField(r, colDeparture, 25*time.Hour)

	if v, ok := Field(r, colName); !ok || v != "Hauptbahnhof" {
		t.Errorf("Field(name) = %q, %v", v, ok)
	}
	if s, ok := r.Format(colDeparture.Pos()); !ok || s != "25:00:00" {
		t.Errorf("Format(departure) = %q, %v; want 25:00:00", s, ok)
	}

	tbl.Clear(colName.Pos(), 0)
	if r.Present(colName.Pos()) {
		t.Error("Clear did not reset the presence bit")
	}
}

func TestGet_ForeignHandlePanics(t *testing.T) {
	other := MustSchema("other", ColumnSpec{Name: "name"})
	tbl := New(other)
	if err := tbl.AddRows(1); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Get with a handle from another schema did not panic")
		}
	}()
	Get(tbl, colName, 0)
}

// ----------------------------------------------------------------------------
// Record Codec Tests
// ----------------------------------------------------------------------------

func readCSV(t *testing.T, tbl *Table, data string) (ReadResult, error) {
	t.Helper()
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	return tbl.ReadRecords(r, header, nil)
}

func TestReadRecords_AbsentAndUndeclaredColumns(t *testing.T) {
	tbl := New(testSchema)
	res, err := readCSV(t, tbl, "trip_id,extra,NAME\nt1,x,Nord\nt2,y,Süd\n")
	if err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("Rows = %d, want 2", res.Rows)
	}
	if res.Absent != 5 {
		t.Errorf("Absent = %d, want 5", res.Absent)
	}

	for _, c := range []string{"count", "ratio", "day", "departure", "mode"} {
		pos, _ := testSchema.Lookup(c)
		if n := tbl.PresentCount(pos); n != 0 {
			t.Errorf("absent column %s has %d present cells", c, n)
		}
	}
	if name, _ := Get(tbl, colName, 1); name != "Süd" {
		t.Errorf("name = %q, want Süd", name)
	}
}

func TestReadRecords_KeyFailureAborts(t *testing.T) {
	tbl := New(testSchema)
	if err := tbl.AddRows(1); err != nil {
		t.Fatal(err)
	}

	_, err := readCSV(t, tbl, "trip_id,name\nt1,a\n,b\n")
	if !errors.Is(err, ErrMissingRequiredColumn) {
		t.Fatalf("ReadRecords() error = %v, want ErrMissingRequiredColumn", err)
	}
	var te *Error
	if !errors.As(err, &te) || te.Column != "trip_id" || te.Row != 2 {
		t.Errorf("error location = %+v", te)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d after aborted read, want 1", tbl.Len())
	}
}

func TestReadRecords_NonKeyFailureDefaults(t *testing.T) {
	tbl := New(testSchema)
	res, err := readCSV(t, tbl, "trip_id,count,day,departure,mode\nt1,abc,2024-01-01,8h,ship\nt2,3,20240101,08:00:00,TRAM\n")
	if err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}
	if res.Defaulted != 4 {
		t.Errorf("Defaulted = %d, want 4", res.Defaulted)
	}

	if v, ok := Get(tbl, colCount, 0); ok || v != 7 {
		t.Errorf("bad count = %d, %v; want default 7, missing", v, ok)
	}
	if _, ok := Get(tbl, colDay, 0); ok {
		t.Error("non-YYYYMMDD date should be missing")
	}
	if v, ok := Get(tbl, colMode, 1); !ok || v != "tram" {
		t.Errorf("enum = %q, %v; want canonical tram", v, ok)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if v, ok := Get(tbl, colDay, 1); !ok || !v.Equal(want) {
		t.Errorf("day = %v, %v", v, ok)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	input := strings.Join([]string{
		"trip_id,name,count,ratio,day,departure,mode",
		"t1,\"Kiel, Hbf\",1,0.25,20240131,25:00:00,bus",
		"t2,,,,,,",
		"t3,ÄÖÜß,-4,1e-7,19991231,00:00:00,tram",
		"",
	}, "\n")

	tbl := New(testSchema)
	if _, err := readCSV(t, tbl, input); err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := tbl.WriteRecords(w); err != nil {
		t.Fatalf("WriteRecords() error: %v", err)
	}
	w.Flush()

	want := strings.Join([]string{
		"trip_id,name,count,ratio,day,departure,mode",
		"t1,\"Kiel, Hbf\",1,0.25,20240131,25:00:00,bus",
		"t2,,,,,,",
		"t3,ÄÖÜß,-4,0.0000001,19991231,00:00:00,tram",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("round trip mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}

	if d, _ := Get(tbl, colDeparture, 0); d != 90000*time.Second {
		t.Errorf("departure = %v, want 25h", d)
	}
	if r, _ := Get(tbl, colRatio, 2); r != 1e-7 {
		t.Errorf("ratio = %v", r)
	}
	if id, _ := Get(tbl, colTripID, 1); id != "t2" {
		t.Errorf("trip_id = %q", id)
	}
}

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"\ufeffagency_id", "agency_id"},
		{"  stop_name ", "stop_name"},
		{`"route_id"`, "route_id"},
	}
	for _, tt := range tests {
		if got := CleanHeader(tt.input); got != tt.want {
			t.Errorf("CleanHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Catalog Tests
// ----------------------------------------------------------------------------

func TestCatalog(t *testing.T) {
	a := MustSchema("a", ColumnSpec{Name: "x"})
	b := MustSchema("B", ColumnSpec{Name: "x"})
	c := NewCatalog("test", a, b)

	if got := strings.Join(c.Names(), ","); got != "a,B" {
		t.Errorf("Names() = %q", got)
	}
	if s, ok := c.Get("b"); !ok || s != b {
		t.Error("Get is not case-insensitive")
	}
	if !c.Contains(a) || c.Contains(testSchema) {
		t.Error("Contains() mismatch")
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate schema did not panic")
		}
	}()
	NewCatalog("dup", a, MustSchema("A", ColumnSpec{Name: "y"}))
}
