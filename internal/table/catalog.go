package table

import (
	"fmt"
	"strings"
)

// Catalog is the fixed set of schemas one interchange format supports.
// It is built once at package init and never modified afterwards.
type Catalog struct {
	name    string
	schemas map[string]*Schema
	order   []*Schema
}

// NewCatalog builds a catalog from schemas in declaration order.
// Panics if two schemas share a name.
func NewCatalog(name string, schemas ...*Schema) *Catalog {
	c := &Catalog{
		name:    name,
		schemas: make(map[string]*Schema, len(schemas)),
	}
	for _, s := range schemas {
		key := strings.ToLower(s.name)
		if _, exists := c.schemas[key]; exists {
			panic(fmt.Sprintf("table: schema already registered in %s: %s", name, s.name))
		}
		c.schemas[key] = s
		c.order = append(c.order, s)
	}
	return c
}

// Name returns the catalog's format name.
func (c *Catalog) Name() string { return c.name }

// Get returns a schema by entity name, ignoring case.
func (c *Catalog) Get(name string) (*Schema, bool) {
	s, ok := c.schemas[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Contains reports whether s is one of the catalog's schemas.
func (c *Catalog) Contains(s *Schema) bool {
	got, ok := c.schemas[strings.ToLower(s.name)]
	return ok && got == s
}

// All returns the schemas in declaration order.
func (c *Catalog) All() []*Schema {
	return append([]*Schema(nil), c.order...)
}

// Names returns the entity names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	for i, s := range c.order {
		out[i] = s.name
	}
	return out
}

// Len returns the number of schemas.
func (c *Catalog) Len() int { return len(c.order) }
