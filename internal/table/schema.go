package table

import (
	"fmt"
	"strings"
	"time"
)

// Type is the semantic type of a column.
type Type int

const (
	TypeText Type = iota
	TypeInteger
	TypeReal
	TypeDate
	TypeTimeOfDay
	TypeEnum
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeDate:
		return "date"
	case TypeTimeOfDay:
		return "time"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ColumnSpec describes one column of an entity.
type ColumnSpec struct {
	Name       string   // Column name, unique within the schema (case-insensitive)
	Type       Type     // Semantic type
	Default    string   // Default literal, parsed with the column's type; "" means zero value
	Nullable   bool     // Column may be left empty on disk
	Key        bool     // Part of the primary key; unparseable values abort a read
	Quoted     bool     // Free-text column, always double-quoted by the feed writer
	Header     string   // On-disk header name (defaults to Name)
	EnumValues []string // Allowed values for TypeEnum
}

// HeaderName returns the on-disk header of the column.
func (c ColumnSpec) HeaderName() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Name
}

// Schema is the immutable description of one entity. Column order is the
// on-disk order; a column's position doubles as its ordinal descriptor for
// the network format.
type Schema struct {
	name     string
	columns  []ColumnSpec
	defaults []any
	index    map[string]int
	keys     []int
}

// NewSchema validates the column specs and builds a schema.
func NewSchema(name string, cols ...ColumnSpec) (*Schema, error) {
	if name == "" {
		return nil, newValidation(name, "schema name is empty")
	}
	if len(cols) == 0 {
		return nil, newValidation(name, "schema has no columns")
	}

	s := &Schema{
		name:     name,
		columns:  make([]ColumnSpec, len(cols)),
		defaults: make([]any, len(cols)),
		index:    make(map[string]int, len(cols)*2),
	}

	for i, c := range cols {
		if c.Name == "" {
			return nil, newSchemaMismatch(name, "", fmt.Sprintf("column %d has no name", i))
		}
		if c.Type == TypeEnum && len(c.EnumValues) == 0 {
			return nil, newSchemaMismatch(name, c.Name, "enum column without values")
		}

		key := strings.ToLower(c.Name)
		if _, dup := s.index[key]; dup {
			return nil, newSchemaMismatch(name, c.Name, "duplicate column")
		}
		s.index[key] = i
		if h := strings.ToLower(c.HeaderName()); h != key {
			if _, dup := s.index[h]; dup {
				return nil, newSchemaMismatch(name, c.Name, "duplicate header "+c.HeaderName())
			}
			s.index[h] = i
		}

		c.EnumValues = append([]string(nil), c.EnumValues...)
		s.columns[i] = c

		def, err := parseDefault(c)
		if err != nil {
			return nil, &Error{
				Kind:   ErrSchemaMismatch,
				Table:  name,
				Column: c.Name,
				Row:    -1,
				Value:  c.Default,
				Reason: "invalid default",
				Err:    err,
			}
		}
		s.defaults[i] = def

		if c.Key {
			s.keys = append(s.keys, i)
		}
	}

	return s, nil
}

// MustSchema is NewSchema for package-level schema declarations.
// It panics on an invalid definition.
func MustSchema(name string, cols ...ColumnSpec) *Schema {
	s, err := NewSchema(name, cols...)
	if err != nil {
		panic(fmt.Sprintf("table: %v", err))
	}
	return s
}

// Name returns the entity name.
func (s *Schema) Name() string { return s.name }

// NumColumns returns the number of declared columns.
func (s *Schema) NumColumns() int { return len(s.columns) }

// Column returns the ColumnSpec at position i.
func (s *Schema) Column(i int) ColumnSpec { return s.columns[i] }

// Columns returns a copy of all column specs in order.
func (s *Schema) Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

// Headers returns the on-disk header names in schema order.
func (s *Schema) Headers() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.HeaderName()
	}
	return out
}

// Lookup returns the position of a column by name or header, ignoring case.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Keys returns the names of the primary key columns.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.columns[k].Name
	}
	return out
}

// Value is the set of Go types a column can hold.
//
//	TypeText, TypeEnum -> string
//	TypeInteger        -> int64
//	TypeReal           -> float64
//	TypeDate           -> time.Time
//	TypeTimeOfDay      -> time.Duration
type Value interface {
	string | int64 | float64 | time.Time | time.Duration
}

// Col is a typed handle to a declared column. Handles are resolved once,
// usually in package-level vars next to the schema, so a misspelled column
// name fails at program start rather than on some later row.
type Col[T Value] struct {
	schema *Schema
	pos    int
}

// ColOf resolves a typed column handle.
func ColOf[T Value](s *Schema, name string) (Col[T], error) {
	pos, ok := s.Lookup(name)
	if !ok {
		return Col[T]{}, newSchemaMismatch(s.name, name, "column not declared")
	}
	if !typeMatches[T](s.columns[pos].Type) {
		var zero T
		return Col[T]{}, newSchemaMismatch(s.name, name,
			fmt.Sprintf("column is %s, handle is %T", s.columns[pos].Type, zero))
	}
	return Col[T]{schema: s, pos: pos}, nil
}

// MustCol is ColOf for package-level declarations. It panics if the column is
// not declared or its type does not match T.
func MustCol[T Value](s *Schema, name string) Col[T] {
	c, err := ColOf[T](s, name)
	if err != nil {
		panic(fmt.Sprintf("table: %v", err))
	}
	return c
}

// Name returns the column name.
func (c Col[T]) Name() string { return c.schema.columns[c.pos].Name }

// Pos returns the column position.
func (c Col[T]) Pos() int { return c.pos }

// Schema returns the schema the handle belongs to.
func (c Col[T]) Schema() *Schema { return c.schema }

func typeMatches[T Value](t Type) bool {
	var zero T
	switch any(zero).(type) {
	case string:
		return t == TypeText || t == TypeEnum
	case int64:
		return t == TypeInteger
	case float64:
		return t == TypeReal
	case time.Time:
		return t == TypeDate
	case time.Duration:
		return t == TypeTimeOfDay
	}
	return false
}
