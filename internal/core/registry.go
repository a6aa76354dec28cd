package core

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is the ordered set of importable tables.
// Registration order is import order and must be a topological order of the
// foreign key graph; CheckOrder verifies it.
type Catalog struct {
	mu     sync.RWMutex
	tables []TableDescriptor
	index  map[string]int
}

// NewCatalog creates a catalog with the given tables registered in order.
func NewCatalog(tables ...TableDescriptor) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, t := range tables {
		c.Register(t)
	}
	return c
}

// Register appends a table descriptor.
// Panics if a table with the same name is already registered.
func (c *Catalog) Register(def TableDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[def.Name]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Name))
	}

	c.index[def.Name] = len(c.tables)
	c.tables = append(c.tables, def)
}

// Lookup returns a table descriptor by name.
func (c *Catalog) Lookup(name string) (TableDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[name]
	if !ok {
		return TableDescriptor{}, false
	}
	return c.tables[i], true
}

// OrderedTables returns all descriptors in import order.
func (c *Catalog) OrderedTables() []TableDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TableDescriptor, len(c.tables))
	copy(out, c.tables)
	return out
}

// Names returns the table names in import order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered tables.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// CheckOrder verifies that every foreign key points at a registered table
// that appears no later than the referencing table. Self references are allowed.
func (c *Catalog) CheckOrder() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var problems []string
	for pos, t := range c.tables {
		for _, field := range sortedKeys(t.ForeignKeys) {
			ref := t.ForeignKeys[field]
			refPos, ok := c.index[ref]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s.%s references unknown table %s", t.Name, field, ref))
			case refPos > pos:
				problems = append(problems, fmt.Sprintf("%s.%s references %s which is imported later", t.Name, field, ref))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("catalog order invalid: %v", problems)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
