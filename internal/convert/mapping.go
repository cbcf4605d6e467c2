package convert

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/transitconv/internal/table"
)

// Kind says how a rule turns a source cell into a destination cell.
type Kind int

const (
	// Identity copies a value between columns of the same type.
	Identity Kind = iota
	// Cast copies a value between columns of different types through its
	// textual form.
	Cast
	// Lookup translates the source text through a fixed table.
	Lookup
	// Derived computes a whole destination column from the source table.
	Derived
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Cast:
		return "cast"
	case Lookup:
		return "lookup"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DeriveFunc computes one destination value per source row. present[i]
// false leaves row i to the rule default.
type DeriveFunc func(src *table.Table) (values []string, present []bool, err error)

// Rule fills one destination column.
//
// Exactly one of Source, Const or Derive is set. Values travel in their
// textual form and are coerced by the destination column. Default, when
// not empty, fills rows whose source cell is missing and is marked present.
type Rule struct {
	Dest    string
	Source  string
	Const   string
	Kind    Kind
	Lookup  map[string]string
	Derive  DeriveFunc
	Default string
}

// Mapping converts tables of one schema into tables of another.
type Mapping struct {
	name  string
	src   *table.Schema
	dst   *table.Schema
	rules []boundRule
}

type boundRule struct {
	Rule
	dst    int
	src    int // -1 for constants and derived rules
	lookup map[string]string
}

// NewMapping validates rules against both schemas.
func NewMapping(src, dst *table.Schema, rules ...Rule) (*Mapping, error) {
	m := &Mapping{
		name: src.Name() + "->" + dst.Name(),
		src:  src,
		dst:  dst,
	}
	seen := make(map[int]bool, len(rules))

	for _, r := range rules {
		b := boundRule{Rule: r, src: -1}

		pos, ok := dst.Lookup(r.Dest)
		if !ok {
			return nil, fmt.Errorf("mapping %s: destination column %q not in schema", m.name, r.Dest)
		}
		if seen[pos] {
			return nil, fmt.Errorf("mapping %s: column %q mapped twice", m.name, r.Dest)
		}
		seen[pos] = true
		b.dst = pos

		sources := 0
		if r.Source != "" {
			sources++
		}
		if r.Const != "" {
			sources++
		}
		if r.Derive != nil {
			sources++
		}
		if sources != 1 {
			return nil, fmt.Errorf("mapping %s: rule for %q needs exactly one of source, constant or derive", m.name, r.Dest)
		}

		if r.Source != "" {
			sp, ok := src.Lookup(r.Source)
			if !ok {
				return nil, fmt.Errorf("mapping %s: source column %q not in schema", m.name, r.Source)
			}
			b.src = sp
		}

		switch r.Kind {
		case Identity:
			if b.src >= 0 && src.Column(b.src).Type != dst.Column(pos).Type {
				return nil, fmt.Errorf("mapping %s: identity rule %s -> %s changes type %s to %s",
					m.name, r.Source, r.Dest, src.Column(b.src).Type, dst.Column(pos).Type)
			}
		case Cast:
		case Lookup:
			if len(r.Lookup) == 0 || b.src < 0 {
				return nil, fmt.Errorf("mapping %s: lookup rule for %q needs a source and a table", m.name, r.Dest)
			}
			b.lookup = make(map[string]string, len(r.Lookup))
			for k, v := range r.Lookup {
				b.lookup[strings.ToUpper(k)] = v
			}
		case Derived:
			if r.Derive == nil {
				return nil, fmt.Errorf("mapping %s: derived rule for %q has no derive func", m.name, r.Dest)
			}
		default:
			return nil, fmt.Errorf("mapping %s: rule for %q has unknown kind %d", m.name, r.Dest, r.Kind)
		}

		m.rules = append(m.rules, b)
	}
	return m, nil
}

// MustMapping is NewMapping for package-level declarations.
func MustMapping(src, dst *table.Schema, rules ...Rule) *Mapping {
	m, err := NewMapping(src, dst, rules...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns "source->destination".
func (m *Mapping) Name() string { return m.name }

// Apply builds one destination row per source row. Destination columns
// without a rule stay default and missing. A key column left without a
// value aborts with ErrMissingRequiredColumn; other failures are logged
// and counted.
func (m *Mapping) Apply(src *table.Table, logger *slog.Logger) (*table.Table, int, error) {
	if src.Schema() != m.src {
		return nil, 0, fmt.Errorf("mapping %s: source table is %s", m.name, src.Name())
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dst := table.New(m.dst)
	n := src.Len()
	if n == 0 {
		return dst, 0, nil
	}
	if err := dst.AddRows(n); err != nil {
		return nil, 0, err
	}

	defaulted := 0
	for _, r := range m.rules {
		derived, derivedOK, err := m.derive(r, src)
		if err != nil {
			return nil, 0, err
		}

		for row := 0; row < n; row++ {
			raw, ok := m.value(r, src, row, derived, derivedOK)
			if !ok {
				if r.Default == "" {
					continue
				}
				raw = r.Default
			}

			if err := dst.SetRaw(r.dst, row, raw); err != nil {
				defaulted++
				logger.Warn("mapped value rejected by destination column",
					"mapping", m.name,
					"column", r.Dest,
					"row", row,
					"value", raw,
					"error", err,
				)
				if r.Default != "" && raw != r.Default {
					if err := dst.SetRaw(r.dst, row, r.Default); err == nil {
						continue
					}
				}
			}
		}
	}

	for _, k := range m.dst.Keys() {
		pos, _ := m.dst.Lookup(k)
		for row := 0; row < n; row++ {
			if !dst.Present(pos, row) {
				return nil, defaulted, table.NewMissingRequired(m.dst.Name(), k, row, "")
			}
		}
	}
	return dst, defaulted, nil
}

func (m *Mapping) derive(r boundRule, src *table.Table) ([]string, []bool, error) {
	if r.Derive == nil {
		return nil, nil, nil
	}
	values, present, err := r.Derive(src)
	if err != nil {
		return nil, nil, fmt.Errorf("mapping %s: derive %s: %w", m.name, r.Dest, err)
	}
	if len(values) != src.Len() || len(present) != src.Len() {
		return nil, nil, fmt.Errorf("mapping %s: derive %s returned %d values for %d rows",
			m.name, r.Dest, len(values), src.Len())
	}
	return values, present, nil
}

func (m *Mapping) value(r boundRule, src *table.Table, row int, derived []string, derivedOK []bool) (string, bool) {
	switch {
	case r.Derive != nil:
		return derived[row], derivedOK[row]
	case r.src < 0:
		return r.Const, true
	}

	raw, ok := src.Format(r.src, row)
	if !ok {
		return "", false
	}
	if r.Kind != Lookup {
		return raw, true
	}
	v, ok := r.lookup[strings.ToUpper(raw)]
	return v, ok
}
