package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("snapshot not found")
)

// Snapshot is one persisted build: entity maps, edge indices and any node
// features attached afterwards
type Snapshot struct {
	Info     models.SnapshotInfo
	Entities graph.EntityMaps
	Edges    map[graph.EdgeType]graph.EdgeIndex
	Features map[graph.NodeType]map[string]graph.Tensor
}

// Materialize rebuilds the in-memory graph with the snapshot's features
func (s *Snapshot) Materialize(r *graph.Registry) *graph.MemoryGraph {
	g := r.Materialize(s.Entities, s.Edges, graph.MaterializeOptions{})
	for t, features := range s.Features {
		for name, v := range features {
			g.SetFeature(t, name, v)
		}
	}
	return g
}

// Store defines the snapshot storage interface
type Store interface {
	// SaveSnapshot writes a snapshot atomically; Info.ID must be set
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, id string) (*Snapshot, error)
	ListSnapshots(ctx context.Context) ([]models.SnapshotInfo, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// SaveNodeFeature attaches or replaces one feature matrix
	SaveNodeFeature(ctx context.Context, snapshotID string, nodeType graph.NodeType, name string, value graph.Tensor) error

	// Close connection
	Close() error
}
