package web

import (
	"github.com/JonMunkholm/transitconv/internal/table"
)

// TableInfo describes one supported table for the index page and
// /api/tables.
type TableInfo struct {
	Format  string   `json:"format"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Keys    []string `json:"keys"`
}

func catalogInfo(format string, c *table.Catalog) []TableInfo {
	out := make([]TableInfo, 0, c.Len())
	for _, s := range c.All() {
		cols := make([]string, 0, s.NumColumns())
		for _, spec := range s.Columns() {
			cols = append(cols, spec.HeaderName())
		}
		out = append(out, TableInfo{
			Format:  format,
			Name:    s.Name(),
			Columns: cols,
			Keys:    s.Keys(),
		})
	}
	return out
}
