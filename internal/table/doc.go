// Package table is the schema-driven tabular model shared by both transit
// interchange formats.
//
// # Schemas
//
// A [Schema] is declared once per entity and never changes:
//
//	var Agency = table.MustSchema("agency",
//	    table.ColumnSpec{Name: "agency_id", Type: table.TypeText, Key: true},
//	    table.ColumnSpec{Name: "agency_name", Type: table.TypeText, Quoted: true},
//	)
//
//	var agencyName = table.MustCol[string](Agency, "agency_name")
//
// Column handles ([Col]) are resolved next to the schema, so a misspelled
// name or a wrong Go type panics at init instead of failing on some row.
//
// # Tables
//
// A [Table] stores rows column by column. Every cell carries a presence bit:
// true when the value came from the source or was set explicitly, false when
// the cell holds the schema default. Writers emit missing cells as empty
// fields, so "absent" and "present but equal to the default" survive a
// round trip.
//
// # Records
//
// [Table.ReadRecords] and [Table.WriteRecords] move rows to and from any
// header-plus-rows text stream. Key cells that cannot be parsed abort the
// read with [ErrMissingRequiredColumn]; other bad cells are logged and
// defaulted.
//
// # Errors
//
// Failures are reported as [*Error] values whose kind is one of the Err*
// sentinels, so callers can use errors.Is:
//
//   - ErrSchemaMismatch: wrong column length or definition (caller bug)
//   - ErrMissingRequiredColumn: key cell unparseable (aborts the read)
//   - ErrEncodingFailure: undecodable text (soft, notices only)
//   - ErrMalformedSection: unrecognised network file section header
//   - ErrValidation: invalid argument
package table
