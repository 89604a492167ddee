package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/kgbuilder/internal/embedding"
	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/models"
	"github.com/rohankatakam/kgbuilder/internal/storage"
)

// ItemEmbeddingFeature is the node feature name holding item text vectors
const ItemEmbeddingFeature = "text_embedding"

// Orchestrator coordinates loading, graph construction, persistence and export
type Orchestrator struct {
	registry *graph.Registry
	store    storage.Store      // optional
	backend  graph.Backend      // optional
	embedder *embedding.Service // optional
	logger   *logrus.Logger
}

// NewOrchestrator creates a new orchestrator. store and backend may be nil
// to skip persistence and export.
func NewOrchestrator(
	registry *graph.Registry,
	store storage.Store,
	backend graph.Backend,
	logger *logrus.Logger,
) *Orchestrator {
	if registry == nil {
		registry = graph.DefaultRegistry()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		backend:  backend,
		logger:   logger,
	}
}

// WithEmbedding enables item text embedding during builds
func (o *Orchestrator) WithEmbedding(svc *embedding.Service) *Orchestrator {
	o.embedder = svc
	return o
}

// BuildRequest names the inputs and flags of one build
type BuildRequest struct {
	ReviewsPath  string
	MetadataPath string
	Label        string
	Encode       graph.EncodeOptions
	AddNodeIDs   bool
	Embed        bool // requires WithEmbedding
}

// BuildStats summarizes a build
type BuildStats struct {
	Reviews  LoadStats
	Metadata LoadStats
	Nodes    map[graph.NodeType]int
	Edges    map[string]int // keyed by src__relation__dst
}

// BuildResult contains the results of a build
type BuildResult struct {
	SnapshotID string // empty when no store is configured
	Graph      *graph.MemoryGraph
	Entities   graph.EntityMaps
	Catalog    *models.Catalog
	Stats      BuildStats
	Export     *graph.ExportStats // nil when no backend is configured
	Duration   time.Duration
}

// Build loads both inputs, encodes entities, builds every relation the
// registry knows, then persists and exports the result when configured
func (o *Orchestrator) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	o.logger.WithFields(logrus.Fields{
		"reviews":      req.ReviewsPath,
		"metadata":     req.MetadataPath,
		"use_brand":    req.Encode.UseBrand,
		"use_category": req.Encode.UseCategory,
	}).Info("Starting graph build")

	if req.Embed && o.embedder == nil {
		return nil, fmt.Errorf("embedding requested but no embedding service is configured")
	}

	// Phase 1: load inputs
	var (
		reviews []models.Review
		catalog *models.Catalog
		result  = &BuildResult{}
	)
	loadErrs, loadCtx := errgroup.WithContext(ctx)
	loadErrs.Go(func() error {
		var err error
		reviews, result.Stats.Reviews, err = LoadAmazonReviews(loadCtx, req.ReviewsPath)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		return nil
	})
	loadErrs.Go(func() error {
		var err error
		catalog, result.Stats.Metadata, err = LoadAmazonMetadata(loadCtx, req.MetadataPath)
		if err != nil {
			return fmt.Errorf("load metadata: %w", err)
		}
		return nil
	})
	if err := loadErrs.Wait(); err != nil {
		return nil, err
	}
	o.logger.WithFields(logrus.Fields{
		"reviews":          result.Stats.Reviews.Loaded,
		"reviews_skipped":  result.Stats.Reviews.Skipped + result.Stats.Reviews.Malformed,
		"metadata":         result.Stats.Metadata.Loaded,
		"metadata_skipped": result.Stats.Metadata.Skipped + result.Stats.Metadata.Malformed,
	}).Info("Inputs loaded")

	// Phase 2: encode and build edges
	result.Catalog = catalog
	result.Entities = graph.EncodeEntities(reviews, catalog, req.Encode)
	edges := o.registry.BuildAll(graph.Source{
		Reviews:  reviews,
		Catalog:  catalog,
		Entities: result.Entities,
	})
	result.Graph = o.registry.Materialize(result.Entities, edges, graph.MaterializeOptions{AddNodeIDs: req.AddNodeIDs})
	result.Stats.Nodes = result.Entities.Counts()
	result.Stats.Edges = make(map[string]int, len(edges))
	for et, idx := range edges {
		result.Stats.Edges[et.String()] = idx.Len()
	}

	// Phase 3: item text embeddings
	if req.Embed {
		vectors, err := o.embedder.EncodeItems(ctx, catalog, result.Entities.Get(graph.NodeItem))
		if err != nil {
			return nil, fmt.Errorf("embed items: %w", err)
		}
		result.Graph.SetFeature(graph.NodeItem, ItemEmbeddingFeature, vectors)
	}

	// Phase 4: persist
	if o.store != nil {
		snap := &storage.Snapshot{
			Info: models.SnapshotInfo{
				ID:          uuid.New().String(),
				Label:       req.Label,
				UseBrand:    req.Encode.UseBrand,
				UseCategory: req.Encode.UseCategory,
			},
			Entities: result.Entities,
			Edges:    edges,
			Features: make(map[graph.NodeType]map[string]graph.Tensor),
		}
		for _, t := range result.Graph.NodeTypes() {
			for name, v := range result.Graph.Features(t) {
				if name == graph.NodeIDFeature {
					continue
				}
				if snap.Features[t] == nil {
					snap.Features[t] = make(map[string]graph.Tensor)
				}
				snap.Features[t][name] = v
			}
		}
		if err := o.store.SaveSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		result.SnapshotID = snap.Info.ID
	}

	// Phase 5: export
	if o.backend != nil {
		stats, err := graph.Export(ctx, o.backend, result.Graph, result.Entities, o.logger)
		if err != nil {
			return nil, fmt.Errorf("export failed: %w", err)
		}
		result.Export = stats
	}

	result.Duration = time.Since(startTime)
	o.logger.WithFields(logrus.Fields{
		"snapshot": result.SnapshotID,
		"nodes":    result.Graph.TotalNodes(),
		"edges":    result.Graph.TotalEdges(),
		"duration": result.Duration.String(),
	}).Info("Graph build completed")

	return result, nil
}

// MergeRequest names the stored snapshots to merge and what the result must contain
type MergeRequest struct {
	BaseID            string
	ExternalIDs       []string
	RequiredNodeTypes []graph.NodeType
	RequiredRelations []string
	FeatureNodeTypes  []graph.NodeType // node types whose features externals may overwrite
}

// MergeResult summarizes a merged graph
type MergeResult struct {
	Graph     graph.HeteroGraph
	NodeTypes []graph.NodeType
	Relations []string
}

// Merge loads the base and external snapshots and combines them
func (o *Orchestrator) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if o.store == nil {
		return nil, fmt.Errorf("merge requires a snapshot store")
	}

	base, err := o.loadGraph(ctx, req.BaseID)
	if err != nil {
		return nil, err
	}
	externals := make([]graph.HeteroGraph, 0, len(req.ExternalIDs))
	for _, id := range req.ExternalIDs {
		g, err := o.loadGraph(ctx, id)
		if err != nil {
			return nil, err
		}
		externals = append(externals, g)
	}

	merger := graph.NewMerger(o.registry, nil)
	merged, err := merger.MergeGraphs(base, externals, req.RequiredNodeTypes, req.RequiredRelations)
	if err != nil {
		return nil, err
	}
	if len(req.FeatureNodeTypes) > 0 {
		if merged, err = merger.MergeNodeFeatures(merged, externals, req.FeatureNodeTypes); err != nil {
			return nil, err
		}
	}

	o.logger.WithFields(logrus.Fields{
		"base":      req.BaseID,
		"externals": len(req.ExternalIDs),
		"relations": merged.EdgeRelations(),
	}).Info("Graphs merged")

	return &MergeResult{
		Graph:     merged,
		NodeTypes: merged.NodeTypes(),
		Relations: merged.EdgeRelations(),
	}, nil
}

func (o *Orchestrator) loadGraph(ctx context.Context, id string) (*graph.MemoryGraph, error) {
	snap, err := o.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return snap.Materialize(o.registry), nil
}

// EmbedSnapshot embeds the items of a stored snapshot using the metadata
// at metadataPath and attaches the result as a node feature
func (o *Orchestrator) EmbedSnapshot(ctx context.Context, snapshotID, metadataPath string) (graph.Tensor, error) {
	if o.store == nil || o.embedder == nil {
		return graph.Tensor{}, fmt.Errorf("embedding a snapshot requires a store and an embedding service")
	}
	snap, err := o.store.LoadSnapshot(ctx, snapshotID)
	if err != nil {
		return graph.Tensor{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	catalog, stats, err := LoadAmazonMetadata(ctx, metadataPath)
	if err != nil {
		return graph.Tensor{}, fmt.Errorf("load metadata: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"snapshot": snapshotID,
		"items":    snap.Entities.Get(graph.NodeItem).Len(),
		"metadata": stats.Loaded,
	}).Info("Embedding snapshot items")

	vectors, err := o.embedder.EncodeItems(ctx, catalog, snap.Entities.Get(graph.NodeItem))
	if err != nil {
		return graph.Tensor{}, fmt.Errorf("embed items: %w", err)
	}
	if err := o.store.SaveNodeFeature(ctx, snapshotID, graph.NodeItem, ItemEmbeddingFeature, vectors); err != nil {
		return graph.Tensor{}, fmt.Errorf("save item embeddings: %w", err)
	}
	return vectors, nil
}
