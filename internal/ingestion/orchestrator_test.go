package ingestion

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/kgbuilder/internal/embedding"
	"github.com/rohankatakam/kgbuilder/internal/errors"
	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/storage"
)

const buildReviews = `{"reviewerID":"u1","asin":"i1","overall":4}
{"reviewerID":"u2","asin":"i2","overall":5}
{"reviewerID":"u1","asin":"i2"}
`

const buildMetadata = `{"asin":"i1","title":"Widget","description":"small","brand":"acme","categories":[["A","B"]]}
{"asin":"i2","title":"Gadget","brand":"zeta","categories":[["B"]]}
{"asin":"i3","title":"Gizmo","categories":[["C"]]}
`

type recordingBackend struct {
	mu    sync.Mutex
	nodes map[string]int
	edges map[string]int
}

func (b *recordingBackend) CreateNodes(_ context.Context, label string, nodes []map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nodes == nil {
		b.nodes = make(map[string]int)
	}
	b.nodes[label] += len(nodes)
	return nil
}

func (b *recordingBackend) CreateEdges(_ context.Context, batch graph.EdgeBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.edges == nil {
		b.edges = make(map[string]int)
	}
	b.edges[batch.Type] += len(batch.Pairs)
	return nil
}

func (b *recordingBackend) Close(context.Context) error { return nil }

type constantEmbedder struct{ dim int }

func (constantEmbedder) Model() string { return "constant" }

func (e constantEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newTestOrchestrator(t *testing.T, backend graph.Backend) (*Orchestrator, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewOrchestrator(nil, store, backend, quietLogger()), store
}

func buildRequest(t *testing.T, opts graph.EncodeOptions) BuildRequest {
	return BuildRequest{
		ReviewsPath:  writeFixture(t, "reviews.json", buildReviews),
		MetadataPath: writeFixture(t, "meta.json", buildMetadata),
		Label:        "test",
		Encode:       opts,
	}
}

func TestBuild(t *testing.T) {
	backend := &recordingBackend{}
	orch, store := newTestOrchestrator(t, backend)
	ctx := context.Background()

	result, err := orch.Build(ctx, buildRequest(t, graph.DefaultEncodeOptions()))
	require.NoError(t, err)

	assert.Equal(t, map[graph.NodeType]int{
		graph.NodeUser:     2,
		graph.NodeItem:     3,
		graph.NodeBrand:    2,
		graph.NodeCategory: 3,
	}, result.Stats.Nodes)
	assert.Equal(t, map[string]int{
		"user__buys__item":           3,
		"item__produced_by__brand":   2,
		"item__belongs_to__category": 4,
	}, result.Stats.Edges)
	assert.Equal(t, 3, result.Stats.Reviews.Loaded)
	assert.Equal(t, 3, result.Stats.Metadata.Loaded)

	require.NotEmpty(t, result.SnapshotID)
	snap, err := store.LoadSnapshot(ctx, result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Info.NodeCount)
	assert.Equal(t, 9, snap.Info.EdgeCount)
	assert.Equal(t, []string{"i1", "i2", "i3"}, snap.Entities.Get(graph.NodeItem).Keys())

	require.NotNil(t, result.Export)
	assert.Equal(t, 3, backend.nodes["Item"])
	assert.Equal(t, 3, backend.edges["BUYS"])
	assert.Equal(t, 4, backend.edges["BELONGS_TO"])
}

func TestBuild_WithEmbeddings(t *testing.T) {
	orch, store := newTestOrchestrator(t, nil)
	svc, err := embedding.NewService(constantEmbedder{dim: 4}, nil, embedding.Options{Dim: 4, BatchSize: 2, Concurrency: 1, UseDescription: true}, quietLogger())
	require.NoError(t, err)
	orch.WithEmbedding(svc)
	ctx := context.Background()

	req := buildRequest(t, graph.DefaultEncodeOptions())
	req.Embed = true
	result, err := orch.Build(ctx, req)
	require.NoError(t, err)

	vectors, ok := result.Graph.Feature(graph.NodeItem, ItemEmbeddingFeature)
	require.True(t, ok)
	assert.Equal(t, 3, vectors.Rows)
	assert.Equal(t, 4, vectors.Cols)

	snap, err := store.LoadSnapshot(ctx, result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, vectors, snap.Features[graph.NodeItem][ItemEmbeddingFeature])
}

func TestBuild_EmbedWithoutService(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil)
	req := buildRequest(t, graph.DefaultEncodeOptions())
	req.Embed = true
	_, err := orch.Build(context.Background(), req)
	assert.Error(t, err)
}

func TestBuild_MissingInput(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil)
	req := buildRequest(t, graph.DefaultEncodeOptions())
	req.MetadataPath = filepath.Join(t.TempDir(), "absent.json")
	_, err := orch.Build(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load metadata")
}

func TestMerge(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	base, err := orch.Build(ctx, buildRequest(t, graph.EncodeOptions{UseBrand: true}))
	require.NoError(t, err)
	external, err := orch.Build(ctx, buildRequest(t, graph.EncodeOptions{UseCategory: true}))
	require.NoError(t, err)

	t.Run("external supplies the category relation", func(t *testing.T) {
		merged, err := orch.Merge(ctx, MergeRequest{
			BaseID:            base.SnapshotID,
			ExternalIDs:       []string{external.SnapshotID},
			RequiredNodeTypes: []graph.NodeType{graph.NodeBrand, graph.NodeCategory},
			RequiredRelations: []string{graph.RelProducedBy, graph.RelBelongsTo},
		})
		require.NoError(t, err)
		assert.Contains(t, merged.NodeTypes, graph.NodeCategory)
		assert.Contains(t, merged.Relations, graph.RelBelongsTo)
	})

	t.Run("base alone lacks category", func(t *testing.T) {
		_, err := orch.Merge(ctx, MergeRequest{
			BaseID:            base.SnapshotID,
			RequiredNodeTypes: []graph.NodeType{graph.NodeCategory},
		})
		assert.ErrorIs(t, err, errors.ErrMissingType)
	})

	t.Run("unknown snapshot", func(t *testing.T) {
		_, err := orch.Merge(ctx, MergeRequest{BaseID: "missing"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestEmbedSnapshot(t *testing.T) {
	orch, store := newTestOrchestrator(t, nil)
	ctx := context.Background()
	req := buildRequest(t, graph.DefaultEncodeOptions())
	result, err := orch.Build(ctx, req)
	require.NoError(t, err)

	svc, err := embedding.NewService(constantEmbedder{dim: 2}, nil, embedding.Options{Dim: 2}, quietLogger())
	require.NoError(t, err)
	orch.WithEmbedding(svc)

	vectors, err := orch.EmbedSnapshot(ctx, result.SnapshotID, req.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, 3, vectors.Rows)

	snap, err := store.LoadSnapshot(ctx, result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, vectors, snap.Features[graph.NodeItem][ItemEmbeddingFeature])
}
