package graph

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// CypherBuilder builds parameterized Cypher. Labels and relationship types
// cannot be parameters, so they are validated as identifiers instead.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{
		params: make(map[string]any),
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	paramName := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[paramName] = value
	return "$" + paramName
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildUnwindNodes upserts a batch of nodes of one label keyed on "key"
func (b *CypherBuilder) BuildUnwindNodes(label string, nodes []map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}
	param := b.AddParam(nodes)
	return fmt.Sprintf(
		"UNWIND %s AS node MERGE (n:%s {key: node.key}) SET n += node RETURN count(n) AS created",
		param, label,
	), nil
}

// BuildUnwindEdges upserts a batch of relationships between keyed nodes
func (b *CypherBuilder) BuildUnwindEdges(fromLabel, relType, toLabel string, pairs []map[string]any) (string, error) {
	for _, id := range []string{fromLabel, relType, toLabel} {
		if !isValidIdentifier(id) {
			return "", fmt.Errorf("invalid identifier: %s (must be alphanumeric + underscore)", id)
		}
	}
	param := b.AddParam(pairs)
	return fmt.Sprintf(
		"UNWIND %s AS edge MATCH (from:%s {key: edge.from}) MATCH (to:%s {key: edge.to}) MERGE (from)-[r:%s]->(to) RETURN count(r) AS created",
		param, fromLabel, toLabel, relType,
	), nil
}

// BuildKeyConstraint makes "key" unique for a label
func BuildKeyConstraint(label string) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s_key IF NOT EXISTS FOR (n:%s) REQUIRE n.key IS UNIQUE",
		strings.ToLower(label), label,
	), nil
}

// LabelFor renders a node type as a Neo4j label: "user" -> "User",
// "item_group" -> "ItemGroup"
func LabelFor(t NodeType) string {
	var sb strings.Builder
	for _, part := range strings.Split(string(t), "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		sb.WriteString(string(r))
	}
	return sb.String()
}

// RelTypeFor renders a relation name as a relationship type: "produced_by" -> "PRODUCED_BY"
func RelTypeFor(relation string) string {
	return strings.ToUpper(relation)
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier reports whether s can be used as a Cypher identifier
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
