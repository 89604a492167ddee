package graph

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// ExportStats summarizes an export run
type ExportStats struct {
	Nodes    map[NodeType]int
	Edges    map[EdgeType]int
	Duration time.Duration

	// Mismatches counts labels and relationship types whose stored total is
	// below what was sent; only set when the backend is a Verifier
	Mismatches int
}

// Export writes every node and edge of g to backend. Nodes are identified by
// their entity key; a node type without an entity map falls back to its index.
func Export(ctx context.Context, backend Backend, g *MemoryGraph, entities EntityMaps, logger *logrus.Logger) (*ExportStats, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	start := time.Now()
	stats := &ExportStats{
		Nodes: make(map[NodeType]int),
		Edges: make(map[EdgeType]int),
	}

	for _, t := range g.NodeTypes() {
		n := g.NumNodes(t)
		keys := nodeKeys(entities.Get(t), n)
		nodes := make([]map[string]any, n)
		for i := 0; i < n; i++ {
			nodes[i] = map[string]any{"key": keys[i], "idx": int64(i)}
		}
		if err := backend.CreateNodes(ctx, LabelFor(t), nodes); err != nil {
			return nil, fmt.Errorf("export %s nodes: %w", t, err)
		}
		stats.Nodes[t] = n
	}

	for _, et := range g.EdgeTypes() {
		idx, _ := g.Edges(et)
		srcKeys := nodeKeys(entities.Get(et.Src), g.NumNodes(et.Src))
		dstKeys := nodeKeys(entities.Get(et.Dst), g.NumNodes(et.Dst))

		batch := EdgeBatch{
			Type:      RelTypeFor(et.Relation),
			FromLabel: LabelFor(et.Src),
			ToLabel:   LabelFor(et.Dst),
			Pairs:     make([]EdgePair, idx.Len()),
		}
		for i := range idx.Src {
			batch.Pairs[i] = EdgePair{From: srcKeys[idx.Src[i]], To: dstKeys[idx.Dst[i]]}
		}
		if err := backend.CreateEdges(ctx, batch); err != nil {
			return nil, fmt.Errorf("export %s edges: %w", et, err)
		}
		stats.Edges[et] = idx.Len()
	}

	if v, ok := backend.(Verifier); ok {
		mismatches, err := verifyExport(ctx, v, stats, logger)
		if err != nil {
			return nil, err
		}
		stats.Mismatches = mismatches
	}

	stats.Duration = time.Since(start)
	logger.WithFields(logrus.Fields{
		"node_types": len(stats.Nodes),
		"edge_types": len(stats.Edges),
		"duration":   stats.Duration.String(),
	}).Info("Graph export completed")

	return stats, nil
}

// verifyExport compares stored totals with what was sent. MERGE collapses
// repeated pairs, so edge totals below the sent count are reported but not
// treated as failures.
func verifyExport(ctx context.Context, v Verifier, stats *ExportStats, logger *logrus.Logger) (int, error) {
	mismatches := 0
	for t, sent := range stats.Nodes {
		got, err := v.CountNodes(ctx, LabelFor(t))
		if err != nil {
			return 0, fmt.Errorf("verify %s nodes: %w", t, err)
		}
		if got < int64(sent) {
			mismatches++
			logger.WithFields(logrus.Fields{"label": LabelFor(t), "sent": sent, "stored": got}).
				Warn("Fewer nodes stored than exported")
		}
	}
	for et, sent := range stats.Edges {
		got, err := v.CountEdges(ctx, LabelFor(et.Src), RelTypeFor(et.Relation), LabelFor(et.Dst))
		if err != nil {
			return 0, fmt.Errorf("verify %s edges: %w", et, err)
		}
		if got < int64(sent) {
			mismatches++
			logger.WithFields(logrus.Fields{"edge_type": et.String(), "sent": sent, "stored": got}).
				Warn("Fewer relationships stored than exported")
		}
	}
	return mismatches, nil
}

// nodeKeys returns n keys, taken from m where it has them
func nodeKeys(m *EntityMap, n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		if k, ok := m.Key(i); ok {
			keys[i] = k
			continue
		}
		keys[i] = strconv.Itoa(i)
	}
	return keys
}
