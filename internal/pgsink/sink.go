// Package pgsink loads converted tables into a PostgreSQL schema.
//
// The sink is a boundary: given a target schema it creates or drops tables
// and bulk-loads rows with COPY. Missing cells become NULL. No constraints
// beyond NOT NULL on key columns are created.
package pgsink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/transitconv/internal/table"
)

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrInvalidSchema is returned for schema names that are not plain
// identifiers.
var ErrInvalidSchema = errors.New("invalid database schema name")

var schemaName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Sink writes tables into one database schema.
type Sink struct {
	db     Beginner
	schema string
	logger *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Sink targeting schema. Names are lowercased.
func New(db Beginner, schema string, opts ...Option) (*Sink, error) {
	schema = strings.ToLower(strings.TrimSpace(schema))
	if !schemaName.MatchString(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}
	s := &Sink{
		db:     db,
		schema: schema,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schema returns the target schema name.
func (s *Sink) Schema() string { return s.schema }

// Populate replaces each table in the target schema and loads its rows, all
// in one transaction. It returns the rows copied per table.
func (s *Sink) Populate(ctx context.Context, tables ...*table.Table) (map[string]int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
		return nil, fmt.Errorf("create schema %s: %w", s.schema, err)
	}

	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		name := TableName(t.Schema())
		ident := pgx.Identifier{s.schema, name}

		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return nil, fmt.Errorf("drop %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, CreateTableSQL(s.schema, t.Schema())); err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}

		n, err := tx.CopyFrom(ctx, ident, ColumnNames(t.Schema()), &rowSource{t: t, row: -1})
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", name, err)
		}
		counts[name] = n
		s.logger.Info("table populated", "schema", s.schema, "table", name, "rows", n)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return counts, nil
}

// Drop removes the named tables from the target schema if they exist.
func (s *Sink) Drop(ctx context.Context, names ...string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, name := range names {
		ident := pgx.Identifier{s.schema, strings.ToLower(name)}
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
		s.logger.Info("table dropped", "schema", s.schema, "table", strings.ToLower(name))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TableName is the database name of a schema's table.
func TableName(s *table.Schema) string { return strings.ToLower(s.Name()) }

// ColumnNames returns the database column names in schema order.
func ColumnNames(s *table.Schema) []string {
	cols := s.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToLower(c.Name)
	}
	return out
}

func sqlType(t table.Type) string {
	switch t {
	case table.TypeInteger:
		return "bigint"
	case table.TypeReal:
		return "double precision"
	case table.TypeDate:
		return "date"
	case table.TypeTimeOfDay:
		return "interval"
	default:
		return "text"
	}
}

// CreateTableSQL returns the CREATE TABLE statement for s in dbSchema.
func CreateTableSQL(dbSchema string, s *table.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgx.Identifier{dbSchema, TableName(s)}.Sanitize())
	b.WriteString(" (\n")
	for i, c := range s.Columns() {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("\t")
		b.WriteString(pgx.Identifier{strings.ToLower(c.Name)}.Sanitize())
		b.WriteString(" ")
		b.WriteString(sqlType(c.Type))
		if c.Key {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// RowValues converts one row into COPY values. Missing cells are invalid
// pgtype values, which encode as NULL.
func RowValues(t *table.Table, row int) ([]any, error) {
	s := t.Schema()
	out := make([]any, s.NumColumns())
	for i, c := range s.Columns() {
		raw, ok := t.Format(i, row)
		v, err := toPg(c.Type, raw, ok)
		if err != nil {
			return nil, fmt.Errorf("%s.%s row %d: %w", t.Name(), c.Name, row, err)
		}
		out[i] = v
	}
	return out, nil
}

func toPg(typ table.Type, raw string, present bool) (any, error) {
	switch typ {
	case table.TypeInteger:
		if !present {
			return pgtype.Int8{}, nil
		}
		v, err := table.ParseInteger(raw)
		return pgtype.Int8{Int64: v, Valid: err == nil}, err
	case table.TypeReal:
		if !present {
			return pgtype.Float8{}, nil
		}
		v, err := table.ParseReal(raw)
		return pgtype.Float8{Float64: v, Valid: err == nil}, err
	case table.TypeDate:
		if !present {
			return pgtype.Date{}, nil
		}
		v, err := table.ParseDate(raw)
		return pgtype.Date{Time: v, Valid: err == nil}, err
	case table.TypeTimeOfDay:
		if !present {
			return pgtype.Interval{}, nil
		}
		v, err := table.ParseTimeOfDay(raw)
		return pgtype.Interval{Microseconds: int64(v / time.Microsecond), Valid: err == nil}, err
	default:
		return pgtype.Text{String: raw, Valid: present}, nil
	}
}

// rowSource adapts a table to pgx.CopyFromSource.
type rowSource struct {
	t      *table.Table
	row    int
	values []any
	err    error
}

func (r *rowSource) Next() bool {
	if r.err != nil {
		return false
	}
	r.row++
	if r.row >= r.t.Len() {
		return false
	}
	r.values, r.err = RowValues(r.t, r.row)
	return r.err == nil
}

func (r *rowSource) Values() ([]any, error) { return r.values, r.err }

func (r *rowSource) Err() error { return r.err }
