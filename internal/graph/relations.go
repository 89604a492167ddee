package graph

import (
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// Source is the read-only input snapshot edges are extracted from
type Source struct {
	Reviews  []models.Review
	Catalog  *models.Catalog
	Entities EntityMaps
}

// Relation is one recognized edge type together with the rule that realizes
// it from a Source. Extract must not mutate the source and must return
// equal-length Src and Dst slices.
type Relation interface {
	EdgeType() EdgeType
	Extract(src Source) EdgeIndex
}

// Buys links users to the items they reviewed, in review order
type Buys struct{}

func (Buys) EdgeType() EdgeType { return E(NodeUser, RelBuys, NodeItem) }

// Extract skips reviews whose user or item has no id
func (Buys) Extract(src Source) EdgeIndex {
	out := NewEdgeIndex(len(src.Reviews))
	users := src.Entities.Get(NodeUser)
	items := src.Entities.Get(NodeItem)
	for _, r := range src.Reviews {
		u, ok := users.ID(r.User)
		if !ok {
			continue
		}
		i, ok := items.ID(r.Item)
		if !ok {
			continue
		}
		out.Append(u, i)
	}
	return out
}

// ProducedBy links an item to its brand; at most one edge per item
type ProducedBy struct{}

func (ProducedBy) EdgeType() EdgeType { return E(NodeItem, RelProducedBy, NodeBrand) }

func (ProducedBy) Extract(src Source) EdgeIndex {
	out := NewEdgeIndex(src.Catalog.Len())
	items := src.Entities.Get(NodeItem)
	brands := src.Entities.Get(NodeBrand)
	src.Catalog.Each(func(meta models.ItemMetadata) {
		i, ok := items.ID(meta.Item)
		if !ok {
			return
		}
		b, ok := brands.ID(meta.Brand)
		if !ok {
			return
		}
		out.Append(i, b)
	})
	return out
}

// BelongsTo links an item to every mapped category it lists, in list order
type BelongsTo struct{}

func (BelongsTo) EdgeType() EdgeType { return E(NodeItem, RelBelongsTo, NodeCategory) }

func (BelongsTo) Extract(src Source) EdgeIndex {
	out := NewEdgeIndex(src.Catalog.Len())
	items := src.Entities.Get(NodeItem)
	categories := src.Entities.Get(NodeCategory)
	src.Catalog.Each(func(meta models.ItemMetadata) {
		i, ok := items.ID(meta.Item)
		if !ok {
			return
		}
		for _, category := range meta.Categories {
			c, ok := categories.ID(category)
			if !ok {
				continue
			}
			out.Append(i, c)
		}
	})
	return out
}
