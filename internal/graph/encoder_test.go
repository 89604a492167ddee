package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/kgbuilder/internal/models"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   map[string]int
	}{
		{
			name:   "first occurrence order",
			values: []string{"b", "a", "b", "c", "a"},
			want:   map[string]int{"b": 0, "a": 1, "c": 2},
		},
		{
			name:   "empty strings skipped",
			values: []string{"", "x", "", "y"},
			want:   map[string]int{"x": 0, "y": 1},
		},
		{
			name:   "empty input",
			values: nil,
			want:   map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Encode(tt.values)
			assert.Equal(t, tt.want, m.Map())
			assert.Equal(t, len(tt.want), m.Len())
		})
	}
}

func TestEncode_DenseIDs(t *testing.T) {
	values := []string{"u3", "u1", "u3", "", "u2", "u1", "u4", "u2"}
	m := Encode(values)

	require.Equal(t, 4, m.Len())
	seen := make(map[int]bool)
	for _, id := range m.Map() {
		assert.True(t, id >= 0 && id < m.Len(), "id %d out of range", id)
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}

	for id, key := range m.Keys() {
		got, ok := m.ID(key)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestEncode_Stable(t *testing.T) {
	values := []string{"i5", "i2", "i5", "i9", "i2", "i1"}
	assert.Equal(t, Encode(values).Map(), Encode(values).Map())
	assert.Equal(t, Encode(values).Keys(), Encode(values).Keys())
}

func TestEntityMap_NilSafe(t *testing.T) {
	var m *EntityMap
	_, ok := m.ID("x")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	assert.Empty(t, m.Map())
	_, ok = m.Key(0)
	assert.False(t, ok)
}

func sampleCatalog() *models.Catalog {
	return models.CatalogOf(
		models.ItemMetadata{Item: "i2", Brand: "acme", Categories: []string{"A", "B"}},
		models.ItemMetadata{Item: "i7", Brand: "zeta", Categories: []string{"B", "C"}},
		models.ItemMetadata{Item: "i1", Brand: "", Categories: nil},
	)
}

func sampleReviews() []models.Review {
	return []models.Review{
		{User: "u1", Item: "i1"},
		{User: "u2", Item: "i2"},
		{User: "u1", Item: "i2"},
	}
}

func TestEncodeEntities(t *testing.T) {
	t.Run("all types", func(t *testing.T) {
		maps := EncodeEntities(sampleReviews(), sampleCatalog(), DefaultEncodeOptions())

		assert.Equal(t, []string{"u1", "u2"}, maps.Get(NodeUser).Keys())
		// review items first, then metadata-only items
		assert.Equal(t, []string{"i1", "i2", "i7"}, maps.Get(NodeItem).Keys())
		assert.Equal(t, []string{"acme", "zeta"}, maps.Get(NodeBrand).Keys())
		assert.Equal(t, []string{"A", "B", "C"}, maps.Get(NodeCategory).Keys())
	})

	t.Run("brand disabled has no key", func(t *testing.T) {
		maps := EncodeEntities(sampleReviews(), sampleCatalog(), EncodeOptions{UseCategory: true})

		_, ok := maps[NodeBrand]
		assert.False(t, ok)
		assert.True(t, maps.Has(NodeCategory))
	})

	t.Run("category disabled has no key", func(t *testing.T) {
		maps := EncodeEntities(sampleReviews(), sampleCatalog(), EncodeOptions{UseBrand: true})

		assert.False(t, maps.Has(NodeCategory))
		assert.True(t, maps.Has(NodeBrand))
	})

	t.Run("nil catalog", func(t *testing.T) {
		maps := EncodeEntities(sampleReviews(), nil, DefaultEncodeOptions())

		assert.Equal(t, 2, maps.Get(NodeItem).Len())
		assert.True(t, maps.Has(NodeBrand))
		assert.Equal(t, 0, maps.Get(NodeBrand).Len())
	})

	t.Run("counts", func(t *testing.T) {
		maps := EncodeEntities(sampleReviews(), sampleCatalog(), DefaultEncodeOptions())
		assert.Equal(t, map[NodeType]int{
			NodeUser:     2,
			NodeItem:     3,
			NodeBrand:    2,
			NodeCategory: 3,
		}, maps.Counts())
	})
}

func TestRestoreEntityMap(t *testing.T) {
	original := Encode([]string{"x", "y", "x", "z"})
	restored := RestoreEntityMap(original.Keys())
	assert.Equal(t, original.Map(), restored.Map())
}
