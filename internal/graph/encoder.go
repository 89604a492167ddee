package graph

import (
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// EntityMap assigns dense zero-based ids to raw string keys of one node type.
// Ids follow first-occurrence order of the sequence that produced the map.
type EntityMap struct {
	ids  map[string]int
	keys []string
}

// Encode assigns ids to values in input order, skipping empty strings and
// repeats. The result has exactly one id per distinct non-empty value.
func Encode(values []string) *EntityMap {
	m := &EntityMap{ids: make(map[string]int)}
	for _, v := range values {
		m.add(v)
	}
	return m
}

func (m *EntityMap) add(v string) {
	if v == "" {
		return
	}
	if _, ok := m.ids[v]; ok {
		return
	}
	m.ids[v] = len(m.keys)
	m.keys = append(m.keys, v)
}

// ID returns the id assigned to key
func (m *EntityMap) ID(key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.ids[key]
	return id, ok
}

// Has reports whether key received an id
func (m *EntityMap) Has(key string) bool {
	_, ok := m.ID(key)
	return ok
}

// Len returns the number of assigned ids
func (m *EntityMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Key returns the raw key for id
func (m *EntityMap) Key(id int) (string, bool) {
	if m == nil || id < 0 || id >= len(m.keys) {
		return "", false
	}
	return m.keys[id], true
}

// Keys returns the keys ordered by id
func (m *EntityMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Map returns a copy of the key to id mapping
func (m *EntityMap) Map() map[string]int {
	out := make(map[string]int, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.ids {
		out[k] = v
	}
	return out
}

// EntityMaps holds one EntityMap per constructed node type. A node type that
// was not constructed has no key at all.
type EntityMaps map[NodeType]*EntityMap

// Get returns the map for a node type, nil when it was not constructed
func (e EntityMaps) Get(t NodeType) *EntityMap {
	return e[t]
}

// Has reports whether the node type was constructed
func (e EntityMaps) Has(t NodeType) bool {
	_, ok := e[t]
	return ok
}

// Counts returns the number of nodes per constructed type
func (e EntityMaps) Counts() map[NodeType]int {
	out := make(map[NodeType]int, len(e))
	for t, m := range e {
		out[t] = m.Len()
	}
	return out
}

// EncodeOptions selects optional node types
type EncodeOptions struct {
	UseBrand    bool
	UseCategory bool
}

// DefaultEncodeOptions enables every optional node type
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{UseBrand: true, UseCategory: true}
}

// EncodeEntities builds the user and item maps from reviews and metadata, and
// the brand and category maps when enabled. Items that only appear in the
// catalog are numbered after every review item.
func EncodeEntities(reviews []models.Review, catalog *models.Catalog, opts EncodeOptions) EntityMaps {
	users := make([]string, 0, len(reviews))
	items := make([]string, 0, len(reviews)+catalog.Len())
	for _, r := range reviews {
		users = append(users, r.User)
		items = append(items, r.Item)
	}
	catalog.Each(func(meta models.ItemMetadata) {
		items = append(items, meta.Item)
	})

	maps := EntityMaps{
		NodeUser: Encode(users),
		NodeItem: Encode(items),
	}

	if opts.UseBrand {
		var brands []string
		catalog.Each(func(meta models.ItemMetadata) {
			brands = append(brands, meta.Brand)
		})
		maps[NodeBrand] = Encode(brands)
	}

	if opts.UseCategory {
		var categories []string
		catalog.Each(func(meta models.ItemMetadata) {
			categories = append(categories, meta.Categories...)
		})
		maps[NodeCategory] = Encode(categories)
	}

	return maps
}

// RestoreEntityMap rebuilds a map from keys already ordered by id
func RestoreEntityMap(keys []string) *EntityMap {
	return Encode(keys)
}
