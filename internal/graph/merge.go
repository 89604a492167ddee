package graph

import (
	"fmt"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// ErrMissingType matches the error returned when a merged graph lacks a
// required node or edge type
var ErrMissingType = errors.ErrMissingType

// CombineFunc is the backend merge primitive. It must not mutate its inputs.
type CombineFunc func(graphs []HeteroGraph) (HeteroGraph, error)

// Merger combines independently built graphs of one schema
type Merger struct {
	registry *Registry
	combine  CombineFunc
}

// NewMerger binds a schema and a merge primitive. Nil arguments fall back to
// the default schema and CombineMemory.
func NewMerger(registry *Registry, combine CombineFunc) *Merger {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if combine == nil {
		combine = CombineMemory
	}
	return &Merger{registry: registry, combine: combine}
}

// Registry returns the schema the merger was built with
func (m *Merger) Registry() *Registry {
	return m.registry
}

// MergeGraphs combines base with externals and checks that every required
// node type and relation name survived the combination.
func (m *Merger) MergeGraphs(base HeteroGraph, externals []HeteroGraph, requiredNodeTypes []NodeType, requiredRelations []string) (HeteroGraph, error) {
	if base == nil {
		return nil, errors.ValidationError("merge graphs: base graph is nil")
	}

	graphs := make([]HeteroGraph, 0, len(externals)+1)
	graphs = append(graphs, base)
	graphs = append(graphs, externals...)

	merged, err := m.combine(graphs)
	if err != nil {
		return nil, fmt.Errorf("combine %d graphs: %w", len(graphs), err)
	}

	nodeTypes := make(map[NodeType]bool)
	for _, t := range merged.NodeTypes() {
		nodeTypes[t] = true
	}
	for _, t := range requiredNodeTypes {
		if !nodeTypes[t] {
			return nil, errors.MissingTypeError("node", string(t))
		}
	}

	relations := make(map[string]bool)
	for _, name := range merged.EdgeRelations() {
		relations[name] = true
	}
	for _, name := range requiredRelations {
		if !relations[name] {
			return nil, errors.MissingTypeError("edge", name)
		}
	}

	return merged, nil
}

// RequireSchema merges and requires every node type and relation the
// registry declares
func (m *Merger) RequireSchema(base HeteroGraph, externals []HeteroGraph) (HeteroGraph, error) {
	return m.MergeGraphs(base, externals, m.registry.NodeTypes(), m.registry.RelationNames())
}

// MergeNodeFeatures copies every feature of the requested node types from each
// external onto base, overwriting same-named features. Externals are applied
// in order, so the last one holding a name wins. Node types the base lacks
// are skipped, so a missing type is never introduced here. base is mutated
// and returned.
func (m *Merger) MergeNodeFeatures(base HeteroGraph, externals []HeteroGraph, nodeTypes []NodeType) (HeteroGraph, error) {
	if base == nil {
		return nil, errors.ValidationError("merge node features: base graph is nil")
	}
	inBase := make(map[NodeType]bool)
	for _, t := range base.NodeTypes() {
		inBase[t] = true
	}
	for _, ext := range externals {
		if ext == nil {
			continue
		}
		present := make(map[NodeType]bool)
		for _, t := range ext.NodeTypes() {
			present[t] = true
		}
		for _, t := range nodeTypes {
			if !present[t] || !inBase[t] {
				continue
			}
			for name, value := range ext.Features(t) {
				base.SetFeature(t, name, value)
			}
		}
	}
	return base, nil
}
