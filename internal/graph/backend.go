package graph

import "context"

// Backend is a graph database that materialized graphs can be exported to
type Backend interface {
	// CreateNodes upserts nodes of one label. Every property map carries the
	// node's "key" and "idx".
	CreateNodes(ctx context.Context, label string, nodes []map[string]any) error

	// CreateEdges upserts one relationship type between two labels
	CreateEdges(ctx context.Context, batch EdgeBatch) error

	// Close releases the connection
	Close(ctx context.Context) error
}

// EdgeBatch is every edge of one canonical edge type, endpoints by entity key
type EdgeBatch struct {
	Type      string // Relationship type: "BUYS", "PRODUCED_BY", ...
	FromLabel string // Source node label: "User", "Item", ...
	ToLabel   string // Destination node label
	Pairs     []EdgePair
}

// EdgePair is one edge between two entity keys
type EdgePair struct {
	From string
	To   string
}
