package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Verifier is implemented by backends that can count what they hold. Export
// uses it to confirm every node and edge arrived.
type Verifier interface {
	CountNodes(ctx context.Context, label string) (int64, error)
	CountEdges(ctx context.Context, fromLabel, relType, toLabel string) (int64, error)
}

// CountNodes counts nodes carrying label, routed to read replicas
func (n *Neo4jBackend) CountNodes(ctx context.Context, label string) (int64, error) {
	if !isValidIdentifier(label) {
		return 0, fmt.Errorf("invalid label: %q", label)
	}
	return n.readCount(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS total", label))
}

// CountEdges counts relationships of relType between the two labels
func (n *Neo4jBackend) CountEdges(ctx context.Context, fromLabel, relType, toLabel string) (int64, error) {
	for _, id := range []string{fromLabel, relType, toLabel} {
		if !isValidIdentifier(id) {
			return 0, fmt.Errorf("invalid identifier: %q", id)
		}
	}
	return n.readCount(ctx, fmt.Sprintf("MATCH (:%s)-[r:%s]->(:%s) RETURN count(r) AS total", fromLabel, relType, toLabel))
}

func (n *Neo4jBackend) readCount(ctx context.Context, query string) (int64, error) {
	result, err := neo4j.ExecuteQuery(ctx, n.driver, query, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	total, _, err := neo4j.GetRecordValue[int64](result.Records[0], "total")
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return total, nil
}
