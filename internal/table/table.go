package table

import (
	"fmt"
	"iter"
)

// columnData is the type-erased view of one column's storage.
type columnData interface {
	grow(n int)
	truncate(n int)
	present(i int) bool
	clear(i int)
	setRaw(i int, raw string) error
	format(i int) string
	replace(values any, n int) error
}

// column stores one column's values and the parallel presence mask.
// mask[i] is true when values[i] came from the source or was set explicitly.
type column[T Value] struct {
	values   []T
	mask     []bool
	def      T
	parseFn  func(string) (T, error)
	formatFn func(T) string
}

func (c *column[T]) grow(n int) {
	for i := 0; i < n; i++ {
		c.values = append(c.values, c.def)
		c.mask = append(c.mask, false)
	}
}

func (c *column[T]) truncate(n int) {
	c.values = c.values[:n]
	c.mask = c.mask[:n]
}

func (c *column[T]) present(i int) bool { return c.mask[i] }

func (c *column[T]) clear(i int) {
	c.values[i] = c.def
	c.mask[i] = false
}

func (c *column[T]) setRaw(i int, raw string) error {
	v, err := c.parseFn(raw)
	if err != nil {
		return err
	}
	c.values[i] = v
	c.mask[i] = true
	return nil
}

func (c *column[T]) format(i int) string {
	return c.formatFn(c.values[i])
}

func (c *column[T]) replace(values any, n int) error {
	vs, ok := values.([]T)
	if !ok {
		var zero T
		return fmt.Errorf("values are %T, column holds %T", values, zero)
	}
	if len(vs) != n {
		return fmt.Errorf("got %d values for %d rows", len(vs), n)
	}
	c.values = append(make([]T, 0, n), vs...)
	c.mask = make([]bool, n)
	for i := range c.mask {
		c.mask[i] = true
	}
	return nil
}

// Table is a column-major store of rows for one schema.
//
// Invariants: every column holds exactly Len() values and Len() mask bits;
// the row count only grows through AddRows or ReadRecords.
type Table struct {
	schema *Schema
	cols   []columnData
	rows   int
}

// New creates an empty table bound to s.
func New(s *Schema) *Table {
	t := &Table{
		schema: s,
		cols:   make([]columnData, len(s.columns)),
	}
	for i, c := range s.columns {
		t.cols[i] = newColumn(c, s.defaults[i])
	}
	return t
}

// Schema returns the table's schema.
func (t *Table) Schema() *Schema { return t.schema }

// Name returns the entity name.
func (t *Table) Name() string { return t.schema.name }

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// AddRows appends n rows holding the column defaults, all marked missing.
func (t *Table) AddRows(n int) error {
	if n <= 0 {
		return newValidation(t.schema.name, fmt.Sprintf("row count must be positive, got %d", n))
	}
	t.grow(n)
	return nil
}

func (t *Table) grow(n int) {
	for _, c := range t.cols {
		c.grow(n)
	}
	t.rows += n
}

func (t *Table) truncate(n int) {
	for _, c := range t.cols {
		c.truncate(n)
	}
	t.rows = n
}

// SetColumn replaces a whole column. values must be a slice of the column's
// Go type (see Value) with exactly Len() elements; every cell is marked
// present.
func (t *Table) SetColumn(name string, values any) error {
	pos, ok := t.schema.Lookup(name)
	if !ok {
		return newSchemaMismatch(t.schema.name, name, "column not declared")
	}
	if err := t.cols[pos].replace(values, t.rows); err != nil {
		return newSchemaMismatch(t.schema.name, t.schema.columns[pos].Name, err.Error())
	}
	return nil
}

// Rows returns a restartable sequence of row views. Each iteration covers the
// rows that existed when it started.
func (t *Table) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		n := t.rows
		for i := 0; i < n; i++ {
			if !yield(Row{t: t, i: i}) {
				return
			}
		}
	}
}

// Row returns the view of row i. It panics if i is out of range.
func (t *Table) Row(i int) Row {
	if i < 0 || i >= t.rows {
		panic(fmt.Sprintf("table %s: row %d out of range [0,%d)", t.schema.name, i, t.rows))
	}
	return Row{t: t, i: i}
}

// Present reports whether the cell at (pos, row) holds a source value.
func (t *Table) Present(pos, row int) bool {
	return t.cols[pos].present(row)
}

// PresentCount returns how many cells of column pos are present.
func (t *Table) PresentCount(pos int) int {
	n := 0
	for i := 0; i < t.rows; i++ {
		if t.cols[pos].present(i) {
			n++
		}
	}
	return n
}

// Format returns the textual form of a cell and whether it is present.
// Missing cells format as "".
func (t *Table) Format(pos, row int) (string, bool) {
	c := t.cols[pos]
	if !c.present(row) {
		return "", false
	}
	return c.format(row), true
}

// SetRaw coerces raw into the cell at (pos, row) and marks it present.
// On error the cell is unchanged.
func (t *Table) SetRaw(pos, row int, raw string) error {
	if err := t.cols[pos].setRaw(row, raw); err != nil {
		return &Error{
			Kind:   ErrValidation,
			Table:  t.schema.name,
			Column: t.schema.columns[pos].Name,
			Row:    row,
			Value:  raw,
			Err:    err,
		}
	}
	return nil
}

// Clear resets a cell to its default and marks it missing.
func (t *Table) Clear(pos, row int) {
	t.cols[pos].clear(row)
}

func (t *Table) typed(pos int, s *Schema) columnData {
	if s != t.schema {
		panic(fmt.Sprintf("table %s: column handle belongs to schema %s", t.schema.name, s.name))
	}
	return t.cols[pos]
}

// Get returns the value of column c at row i and whether it is present.
// A missing cell returns the column default.
func Get[T Value](t *Table, c Col[T], i int) (T, bool) {
	col := t.typed(c.pos, c.schema).(*column[T])
	return col.values[i], col.mask[i]
}

// Set stores v at row i and marks the cell present.
func Set[T Value](t *Table, c Col[T], i int, v T) {
	col := t.typed(c.pos, c.schema).(*column[T])
	col.values[i] = v
	col.mask[i] = true
}

// Values returns copies of column c's values and mask.
func Values[T Value](t *Table, c Col[T]) ([]T, []bool) {
	col := t.typed(c.pos, c.schema).(*column[T])
	return append([]T(nil), col.values...), append([]bool(nil), col.mask...)
}
