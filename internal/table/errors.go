package table

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is; the concrete *Error carries the
// table, column and row the problem was found at.
var (
	// ErrSchemaMismatch is a column length or definition violation. Always a
	// caller bug.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrMissingRequiredColumn means a key column could not be parsed. It
	// aborts the read that found it.
	ErrMissingRequiredColumn = errors.New("missing required column")

	// ErrEncodingFailure marks text that could not be decoded. It is never
	// returned from a read; it only appears in notices and logs.
	ErrEncodingFailure = errors.New("encoding failure")

	// ErrMalformedSection marks a network file section whose header could
	// not be recognised.
	ErrMalformedSection = errors.New("malformed section")

	// ErrValidation is an invalid argument.
	ErrValidation = errors.New("validation error")
)

// Error describes a failure tied to a location in a table.
type Error struct {
	Kind   error  // one of the Err* sentinels
	Table  string // schema name
	Column string // column name (empty if table-level)
	Row    int    // 0-based row index, -1 if unknown
	Value  string // offending raw value, if any
	Reason string // human-readable explanation
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	var parts []string

	loc := e.Table
	if e.Column != "" {
		loc += "." + e.Column
	}
	parts = append(parts, fmt.Sprintf("%v in %s", e.Kind, loc))

	if e.Row >= 0 {
		parts = append(parts, fmt.Sprintf("row %d", e.Row))
	}
	if e.Value != "" {
		parts = append(parts, fmt.Sprintf("value=%q", e.Value))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, " - ")
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newSchemaMismatch(table, column, reason string) *Error {
	return &Error{
		Kind:   ErrSchemaMismatch,
		Table:  table,
		Column: column,
		Row:    -1,
		Reason: reason,
	}
}

func newMissingRequired(table, column string, row int, value string, cause error) *Error {
	return &Error{
		Kind:   ErrMissingRequiredColumn,
		Table:  table,
		Column: column,
		Row:    row,
		Value:  value,
		Reason: "key column could not be parsed",
		Err:    cause,
	}
}

// NewMissingRequired builds a MissingRequiredColumn error for callers outside
// the record codec, such as converters checking identifier columns.
func NewMissingRequired(table, column string, row int, value string) *Error {
	return newMissingRequired(table, column, row, value, nil)
}

func newValidation(table, reason string) *Error {
	return &Error{
		Kind:   ErrValidation,
		Table:  table,
		Row:    -1,
		Reason: reason,
	}
}
