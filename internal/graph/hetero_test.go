package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize(t *testing.T) {
	g := buildGraph(t, DefaultEncodeOptions())

	assert.Equal(t, []NodeType{NodeUser, NodeItem, NodeBrand, NodeCategory}, g.NodeTypes())
	assert.Equal(t, []string{RelBuys, RelProducedBy, RelBelongsTo}, g.EdgeRelations())
	assert.Equal(t, 2, g.NumNodes(NodeUser))
	assert.Equal(t, 3, g.NumNodes(NodeItem))

	x, ok := g.Feature(NodeItem, NodeIDFeature)
	require.True(t, ok)
	assert.Equal(t, Tensor{Rows: 3, Cols: 1, Data: []float32{0, 1, 2}}, x)
}

func TestMaterialize_WithoutOptionalTypes(t *testing.T) {
	g := buildGraph(t, EncodeOptions{UseBrand: true})

	assert.Equal(t, []NodeType{NodeUser, NodeItem, NodeBrand}, g.NodeTypes())
	assert.Equal(t, []string{RelBuys, RelProducedBy}, g.EdgeRelations())
	assert.False(t, g.HasNodeType(NodeCategory))
}

func TestMaterialize_NoNodeIDs(t *testing.T) {
	reviews := sampleReviews()
	r := DefaultRegistry()
	entities := EncodeEntities(reviews, nil, EncodeOptions{})
	g := r.Materialize(entities, r.BuildAll(Source{Reviews: reviews, Entities: entities}), MaterializeOptions{})

	assert.Empty(t, g.Features(NodeUser))
	assert.Equal(t, 3, g.TotalEdges())
	assert.Equal(t, 4, g.TotalNodes())
}

func TestMemoryGraph_AddEdgesGrowsNodes(t *testing.T) {
	g := NewMemoryGraph()
	idx := NewEdgeIndex(2)
	idx.Append(0, 4)
	idx.Append(2, 1)
	g.AddEdges(E(NodeUser, RelBuys, NodeItem), idx)

	assert.Equal(t, 3, g.NumNodes(NodeUser))
	assert.Equal(t, 5, g.NumNodes(NodeItem))

	got, ok := g.Edges(E(NodeUser, RelBuys, NodeItem))
	require.True(t, ok)
	assert.Equal(t, idx.Pairs(), got.Pairs())

	_, ok = g.Edges(E(NodeItem, RelBelongsTo, NodeCategory))
	assert.False(t, ok)
}

func TestMemoryGraph_SetFeatureRegistersType(t *testing.T) {
	g := NewMemoryGraph()
	g.SetFeature(NodeBrand, "emb", NewTensor(3, 8))

	assert.True(t, g.HasNodeType(NodeBrand))
	assert.Equal(t, 3, g.NumNodes(NodeBrand))
	assert.Equal(t, []string{"emb"}, g.FeatureNames(NodeBrand))
}

func TestMemoryGraph_Clone(t *testing.T) {
	g := buildGraph(t, DefaultEncodeOptions())
	c := g.Clone()

	x, _ := c.Feature(NodeItem, NodeIDFeature)
	x.Data[0] = 42

	orig, _ := g.Feature(NodeItem, NodeIDFeature)
	assert.Equal(t, float32(0), orig.Data[0])
	assert.Equal(t, g.TotalEdges(), c.TotalEdges())
}

func TestCombineMemory(t *testing.T) {
	a := NewMemoryGraph()
	a.AddNodeType(NodeItem, 2)
	a.SetFeature(NodeItem, "x", filledTensor(2, 1, 1))

	b := NewMemoryGraph()
	b.AddNodeType(NodeItem, 5)
	b.SetFeature(NodeItem, "x", filledTensor(5, 1, 2))

	out, err := CombineMemory([]HeteroGraph{a, b})
	require.NoError(t, err)

	g := out.(*MemoryGraph)
	assert.Equal(t, 5, g.NumNodes(NodeItem))
	x, _ := g.Feature(NodeItem, "x")
	assert.Equal(t, filledTensor(5, 1, 2), x)
}

type otherGraph struct{ HeteroGraph }

func TestCombineMemory_RejectsForeignGraphs(t *testing.T) {
	_, err := CombineMemory([]HeteroGraph{NewMemoryGraph(), otherGraph{}})
	assert.Error(t, err)
}

func TestTensor(t *testing.T) {
	tensor := NewTensor(2, 3)
	tensor.SetRow(1, []float32{1, 2, 3, 4})
	tensor.SetRow(0, []float32{5})

	assert.Equal(t, []float32{5, 0, 0}, tensor.Row(0))
	assert.Equal(t, []float32{1, 2, 3}, tensor.Row(1))

	clone := tensor.Clone()
	clone.Data[0] = 9
	assert.Equal(t, float32(5), tensor.Data[0])
}
