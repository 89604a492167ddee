package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCypherBuilder_UnwindNodes(t *testing.T) {
	b := NewCypherBuilder()
	nodes := []map[string]any{{"key": "u1", "idx": int64(0)}}

	query, err := b.BuildUnwindNodes("User", nodes)
	require.NoError(t, err)
	assert.Contains(t, query, "UNWIND $p0 AS node")
	assert.Contains(t, query, "MERGE (n:User {key: node.key})")
	assert.Equal(t, nodes, b.Params()["p0"])
}

func TestCypherBuilder_UnwindEdges(t *testing.T) {
	b := NewCypherBuilder()
	pairs := []map[string]any{{"from": "u1", "to": "i1"}}

	query, err := b.BuildUnwindEdges("User", "BUYS", "Item", pairs)
	require.NoError(t, err)
	assert.Contains(t, query, "MATCH (from:User {key: edge.from})")
	assert.Contains(t, query, "MATCH (to:Item {key: edge.to})")
	assert.Contains(t, query, "MERGE (from)-[r:BUYS]->(to)")
}

func TestCypherBuilder_RejectsInjection(t *testing.T) {
	b := NewCypherBuilder()

	_, err := b.BuildUnwindNodes("User) DETACH DELETE n //", nil)
	assert.Error(t, err)

	_, err = b.BuildUnwindEdges("User", "BUYS]->() DELETE r //", "Item", nil)
	assert.Error(t, err)

	_, err = BuildKeyConstraint("1abc")
	assert.Error(t, err)
}

func TestBuildKeyConstraint(t *testing.T) {
	query, err := BuildKeyConstraint("Category")
	require.NoError(t, err)
	assert.Equal(t, "CREATE CONSTRAINT category_key IF NOT EXISTS FOR (n:Category) REQUIRE n.key IS UNIQUE", query)
}

func TestLabelAndRelType(t *testing.T) {
	assert.Equal(t, "User", LabelFor(NodeUser))
	assert.Equal(t, "ItemGroup", LabelFor("item_group"))
	assert.Equal(t, "PRODUCED_BY", RelTypeFor(RelProducedBy))
}

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		n, size int
		want    [][2]int
	}{
		{5, 2, [][2]int{{0, 2}, {2, 4}, {4, 5}}},
		{4, 4, [][2]int{{0, 4}}},
		{3, 0, [][2]int{{0, 3}}},
		{0, 10, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			assert.Equal(t, tt.want, chunkBounds(tt.n, tt.size))
		})
	}
}

func TestBatchConfigForSize(t *testing.T) {
	assert.Equal(t, SmallBatchConfig(), BatchConfigForSize("small"))
	assert.Equal(t, LargeBatchConfig(), BatchConfigForSize("large"))
	assert.Equal(t, DefaultBatchConfig(), BatchConfigForSize(""))
	assert.Equal(t, DefaultBatchConfig(), BatchConfig{}.withDefaults())
}

func TestTransactionConfig(t *testing.T) {
	tc := ExportTransactionConfig("snap-1").WithCustomMetadata("dataset", "amazon")

	assert.Equal(t, "snap-1", tc.Metadata["snapshot"])
	assert.Equal(t, "amazon", tc.Metadata["dataset"])
	assert.Len(t, tc.AsNeo4jConfig(), 2)
	assert.Len(t, TransactionConfig{}.AsNeo4jConfig(), 0)
}

type recordingBackend struct {
	nodes map[string][]map[string]any
	edges []EdgeBatch
	fail  string
}

func (r *recordingBackend) CreateNodes(_ context.Context, label string, nodes []map[string]any) error {
	if label == r.fail {
		return fmt.Errorf("write %s failed", label)
	}
	if r.nodes == nil {
		r.nodes = make(map[string][]map[string]any)
	}
	r.nodes[label] = append(r.nodes[label], nodes...)
	return nil
}

func (r *recordingBackend) CreateEdges(_ context.Context, batch EdgeBatch) error {
	r.edges = append(r.edges, batch)
	return nil
}

func (r *recordingBackend) Close(context.Context) error { return nil }

func TestExport(t *testing.T) {
	reviews := sampleReviews()
	catalog := sampleCatalog()
	reg := DefaultRegistry()
	entities := EncodeEntities(reviews, catalog, DefaultEncodeOptions())
	g := reg.Materialize(entities, reg.BuildAll(Source{Reviews: reviews, Catalog: catalog, Entities: entities}), MaterializeOptions{})

	backend := &recordingBackend{}
	stats, err := Export(context.Background(), backend, g, entities, nil)
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{
		{"key": "u1", "idx": int64(0)},
		{"key": "u2", "idx": int64(1)},
	}, backend.nodes["User"])
	assert.Len(t, backend.nodes["Category"], 3)

	require.Len(t, backend.edges, 3)
	buys := backend.edges[0]
	assert.Equal(t, "BUYS", buys.Type)
	assert.Equal(t, "User", buys.FromLabel)
	assert.Equal(t, "Item", buys.ToLabel)
	assert.Equal(t, EdgePair{From: "u1", To: "i1"}, buys.Pairs[0])

	assert.Equal(t, 3, stats.Edges[E(NodeUser, RelBuys, NodeItem)])
	assert.Equal(t, 2, stats.Nodes[NodeUser])
}

func TestExport_BackendFailure(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNodeType(NodeItem, 2)

	_, err := Export(context.Background(), &recordingBackend{fail: "Item"}, g, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write Item failed")
}

func TestExport_KeysFallBackToIndex(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNodeType(NodeBrand, 2)

	backend := &recordingBackend{}
	_, err := Export(context.Background(), backend, g, EntityMaps{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", backend.nodes["Brand"][1]["key"])
}

// verifyingBackend stores like a MERGE would: repeated edge pairs collapse
type verifyingBackend struct {
	recordingBackend
	dropLabel string
}

func (v *verifyingBackend) CountNodes(_ context.Context, label string) (int64, error) {
	if label == v.dropLabel {
		return 0, nil
	}
	return int64(len(v.nodes[label])), nil
}

func (v *verifyingBackend) CountEdges(_ context.Context, fromLabel, relType, toLabel string) (int64, error) {
	seen := make(map[EdgePair]bool)
	for _, b := range v.edges {
		if b.FromLabel == fromLabel && b.Type == relType && b.ToLabel == toLabel {
			for _, p := range b.Pairs {
				seen[p] = true
			}
		}
	}
	return int64(len(seen)), nil
}

func TestExport_Verification(t *testing.T) {
	reviews := sampleReviews()
	catalog := sampleCatalog()
	reg := DefaultRegistry()
	entities := EncodeEntities(reviews, catalog, DefaultEncodeOptions())
	g := reg.Materialize(entities, reg.BuildAll(Source{Reviews: reviews, Catalog: catalog, Entities: entities}), MaterializeOptions{})

	t.Run("all stored", func(t *testing.T) {
		stats, err := Export(context.Background(), &verifyingBackend{}, g, entities, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Mismatches)
	})

	t.Run("missing label is counted", func(t *testing.T) {
		stats, err := Export(context.Background(), &verifyingBackend{dropLabel: "Brand"}, g, entities, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Mismatches)
	})
}
