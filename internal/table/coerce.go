package table

// coerce.go converts raw text cells into typed column values and back.
//
// Every conversion is an explicit per-cell function; there is no whole-column
// broadcasting. Parsers return an error instead of a zero value so the record
// reader can decide between aborting (key columns) and defaulting.
//
// Textual forms:
//   - Integer: base-10, optional sign
//   - Real: anything strconv.ParseFloat accepts; written in shortest form
//   - Date: exactly eight digits YYYYMMDD
//   - TimeOfDay: HH:MM:SS with an unbounded hour
//   - Enum: one of the declared values, matched case-insensitively

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/transitconv/internal/timecodec"
)

// DateLayout is the on-disk date format of both interchange formats.
const DateLayout = "20060102"

// ParseInteger parses a base-10 integer cell.
func ParseInteger(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// FormatInteger is the inverse of ParseInteger.
func FormatInteger(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ParseReal parses a floating point cell.
func ParseReal(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// FormatReal writes the shortest representation that parses back exactly.
func FormatReal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseDate parses an eight digit YYYYMMDD cell.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD", raw)
		}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseTimeOfDay parses HH:MM:SS into a duration since midnight.
func ParseTimeOfDay(raw string) (time.Duration, error) {
	return timecodec.Parse(raw)
}

// FormatTimeOfDay writes a duration as HH:MM:SS without wrapping the hour.
func FormatTimeOfDay(d time.Duration) string {
	return timecodec.Format(d)
}

func parseText(raw string) (string, error) {
	return raw, nil
}

func formatText(s string) string {
	return s
}

// enumParser returns a parser accepting only the declared values and storing
// their canonical spelling.
func enumParser(values []string) func(string) (string, error) {
	return func(raw string) (string, error) {
		s := strings.TrimSpace(raw)
		for _, v := range values {
			if strings.EqualFold(v, s) {
				return v, nil
			}
		}
		return "", fmt.Errorf("value %q must be one of: %s", raw, strings.Join(values, ", "))
	}
}

// parseDefault turns a spec's default literal into its typed value.
func parseDefault(c ColumnSpec) (any, error) {
	switch c.Type {
	case TypeText:
		return c.Default, nil
	case TypeEnum:
		if c.Default == "" {
			return "", nil
		}
		return enumParser(c.EnumValues)(c.Default)
	case TypeInteger:
		if c.Default == "" {
			return int64(0), nil
		}
		return ParseInteger(c.Default)
	case TypeReal:
		if c.Default == "" {
			return float64(0), nil
		}
		return ParseReal(c.Default)
	case TypeDate:
		if c.Default == "" {
			return time.Time{}, nil
		}
		return ParseDate(c.Default)
	case TypeTimeOfDay:
		if c.Default == "" {
			return time.Duration(0), nil
		}
		return ParseTimeOfDay(c.Default)
	default:
		return nil, fmt.Errorf("unsupported column type %d", c.Type)
	}
}

// newColumn builds the typed storage for one column.
func newColumn(c ColumnSpec, def any) columnData {
	switch c.Type {
	case TypeText:
		return &column[string]{def: def.(string), parseFn: parseText, formatFn: formatText}
	case TypeEnum:
		return &column[string]{def: def.(string), parseFn: enumParser(c.EnumValues), formatFn: formatText}
	case TypeInteger:
		return &column[int64]{def: def.(int64), parseFn: ParseInteger, formatFn: FormatInteger}
	case TypeReal:
		return &column[float64]{def: def.(float64), parseFn: ParseReal, formatFn: FormatReal}
	case TypeDate:
		return &column[time.Time]{def: def.(time.Time), parseFn: ParseDate, formatFn: FormatDate}
	case TypeTimeOfDay:
		return &column[time.Duration]{def: def.(time.Duration), parseFn: ParseTimeOfDay, formatFn: FormatTimeOfDay}
	default:
		panic(fmt.Sprintf("table: unsupported column type %d", c.Type))
	}
}
