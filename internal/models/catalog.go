package models

// Catalog holds item metadata keyed by item id while remembering insertion order.
// Iteration follows the order in which keys were first added; putting an existing
// key replaces its value but keeps its position.
type Catalog struct {
	index map[string]int
	items []ItemMetadata
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// CatalogOf builds a catalog from the given records in order
func CatalogOf(items ...ItemMetadata) *Catalog {
	c := NewCatalog()
	for _, item := range items {
		c.Put(item)
	}
	return c
}

// Put adds or replaces the metadata for item.Item
func (c *Catalog) Put(item ItemMetadata) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if pos, ok := c.index[item.Item]; ok {
		c.items[pos] = item
		return
	}
	c.index[item.Item] = len(c.items)
	c.items = append(c.items, item)
}

// Get returns the metadata stored for an item id
func (c *Catalog) Get(item string) (ItemMetadata, bool) {
	if c == nil {
		return ItemMetadata{}, false
	}
	pos, ok := c.index[item]
	if !ok {
		return ItemMetadata{}, false
	}
	return c.items[pos], true
}

// Len returns the number of distinct items
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Each calls fn for every entry in insertion order
func (c *Catalog) Each(fn func(ItemMetadata)) {
	if c == nil {
		return
	}
	for _, item := range c.items {
		fn(item)
	}
}

// Items returns a copy of the entries in insertion order
func (c *Catalog) Items() []ItemMetadata {
	if c == nil {
		return nil
	}
	out := make([]ItemMetadata, len(c.items))
	copy(out, c.items)
	return out
}
