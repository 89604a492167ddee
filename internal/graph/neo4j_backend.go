package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// Neo4jBackend implements Backend with batched UNWIND MERGE queries
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
	batch    BatchConfig
	tx       TransactionConfig
	logger   *logrus.Logger

	constrained map[string]bool
}

// NewNeo4jBackend connects and verifies connectivity
func NewNeo4jBackend(ctx context.Context, uri, username, password, database string, batch BatchConfig, logger *logrus.Logger) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), configurePool)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.NetworkErrorf(err, "failed to connect to Neo4j at %s", uri)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Neo4jBackend{
		driver:      driver,
		database:    database,
		batch:       batch.withDefaults(),
		tx:          ExportTransactionConfig(""),
		logger:      logger,
		constrained: make(map[string]bool),
	}, nil
}

// configurePool sizes the connection pool for a single bulk writer
func configurePool(config *neo4j.Config) {
	config.MaxConnectionPoolSize = 50
	config.ConnectionAcquisitionTimeout = 60 * time.Second
	config.MaxConnectionLifetime = time.Hour
	config.ConnectionLivenessCheckTimeout = 5 * time.Second
	config.SocketConnectTimeout = 5 * time.Second
	config.SocketKeepalive = true
}

// WithTransactionConfig sets the config applied to every write
func (n *Neo4jBackend) WithTransactionConfig(tc TransactionConfig) *Neo4jBackend {
	n.tx = tc
	return n
}

// CreateNodes upserts nodes in batches, creating the key constraint for the
// label on first use
func (n *Neo4jBackend) CreateNodes(ctx context.Context, label string, nodes []map[string]any) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := n.ensureConstraint(ctx, label); err != nil {
		return err
	}

	for _, bounds := range chunkBounds(len(nodes), n.batch.NodeBatchSize) {
		builder := NewCypherBuilder()
		query, err := builder.BuildUnwindNodes(label, nodes[bounds[0]:bounds[1]])
		if err != nil {
			return fmt.Errorf("failed to build node query: %w", err)
		}
		if _, err := n.write(ctx, query, builder.Params()); err != nil {
			return fmt.Errorf("batch %s creation failed (batch %d-%d): %w", label, bounds[0], bounds[1], err)
		}
	}
	return nil
}

// CreateEdges upserts relationships in batches. Edges whose endpoints are
// missing are dropped by MATCH and reported as a warning.
func (n *Neo4jBackend) CreateEdges(ctx context.Context, batch EdgeBatch) error {
	if len(batch.Pairs) == 0 {
		return nil
	}

	params := make([]map[string]any, len(batch.Pairs))
	for i, p := range batch.Pairs {
		params[i] = map[string]any{"from": p.From, "to": p.To}
	}

	for _, bounds := range chunkBounds(len(params), n.batch.EdgeBatchSize) {
		builder := NewCypherBuilder()
		query, err := builder.BuildUnwindEdges(batch.FromLabel, batch.Type, batch.ToLabel, params[bounds[0]:bounds[1]])
		if err != nil {
			return fmt.Errorf("failed to build edge query: %w", err)
		}
		created, err := n.write(ctx, query, builder.Params())
		if err != nil {
			return fmt.Errorf("batch edge creation failed for %s (batch %d-%d): %w",
				batch.Type, bounds[0], bounds[1], err)
		}
		if want := int64(bounds[1] - bounds[0]); created < want {
			n.logger.WithFields(logrus.Fields{
				"type":    batch.Type,
				"created": created,
				"batch":   want,
			}).Warn("Some edge endpoints do not exist")
		}
	}
	return nil
}

// write runs one query in a managed write transaction and returns the
// "created" count it reports
func (n *Neo4jBackend) write(ctx context.Context, query string, params map[string]any) (int64, error) {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		created, _ := record.Get("created")
		return created, nil
	}, n.tx.AsNeo4jConfig()...)
	if err != nil {
		return 0, err
	}
	created, _ := result.(int64)
	return created, nil
}

func (n *Neo4jBackend) ensureConstraint(ctx context.Context, label string) error {
	if n.constrained[label] {
		return nil
	}
	query, err := BuildKeyConstraint(label)
	if err != nil {
		return err
	}
	if _, err := neo4j.ExecuteQuery(ctx, n.driver, query, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database)); err != nil {
		return fmt.Errorf("failed to create %s key constraint: %w", label, err)
	}
	n.constrained[label] = true
	return nil
}

// Close closes the Neo4j driver connection
func (n *Neo4jBackend) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}
