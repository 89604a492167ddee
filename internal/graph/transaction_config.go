package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TransactionConfig defines timeout and metadata for export transactions.
// Metadata shows up in Neo4j's query.log.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// ExportTransactionConfig is the per-batch config for an export run
func ExportTransactionConfig(snapshotID string) TransactionConfig {
	return TransactionConfig{
		Timeout: 2 * time.Minute,
		Metadata: map[string]any{
			"operation": "kg_export",
			"snapshot":  snapshotID,
			"type":      "write",
		},
	}
}

// AsNeo4jConfig converts to transaction config functions for ExecuteWrite
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}
	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}
	return configs
}

// WithCustomMetadata returns a copy with one extra metadata entry
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	out := TransactionConfig{
		Timeout:  tc.Timeout,
		Metadata: make(map[string]any, len(tc.Metadata)+1),
	}
	for k, v := range tc.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata[key] = value
	return out
}

// WithTimeout returns a copy with a different timeout
func (tc TransactionConfig) WithTimeout(timeout time.Duration) TransactionConfig {
	return TransactionConfig{
		Timeout:  timeout,
		Metadata: tc.Metadata,
	}
}
