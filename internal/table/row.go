package table

// Row is a transient view of one row. It owns nothing; reads and writes go
// straight to the table.
type Row struct {
	t *Table
	i int
}

// Index returns the row's position.
func (r Row) Index() int { return r.i }

// Table returns the table the row belongs to.
func (r Row) Table() *Table { return r.t }

// Present reports whether the cell in column pos holds a source value.
func (r Row) Present(pos int) bool { return r.t.Present(pos, r.i) }

// Format returns the textual form of the cell in column pos.
func (r Row) Format(pos int) (string, bool) { return r.t.Format(pos, r.i) }

// Field reads column c of the row.
func Field[T Value](r Row, c Col[T]) (T, bool) {
	return Get(r.t, c, r.i)
}

// SetField writes column c of the row and marks it present.
func SetField[T Value](r Row, c Col[T], v T) {
	Set(r.t, c, r.i, v)
}
