package storage

import (
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// Postgres driver names accepted by NewPostgresStore
const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a new PostgreSQL storage. driver is "pgx"
// (default) or "postgres" for lib/pq.
func NewPostgresStore(dsn, driver string, logger *logrus.Logger) (*PostgresStore, error) {
	if driver == "" {
		driver = DriverPgx
	}
	if driver != DriverPgx && driver != DriverPQ {
		return nil, errors.ConfigErrorf("unsupported postgres driver: %s", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "connect to postgres")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	store := &PostgresStore{&sqlStore{db: db, logger: logger}}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseErrorf(err, "init schema")
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			label TEXT,
			use_brand BOOLEAN NOT NULL,
			use_category BOOLEAN NOT NULL,
			node_types TEXT NOT NULL,
			edge_types TEXT NOT NULL,
			node_count INTEGER,
			edge_count INTEGER,
			created_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_entities (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
			node_type TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			idx INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, node_type, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_edges (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
			src_type TEXT NOT NULL,
			relation TEXT NOT NULL,
			dst_type TEXT NOT NULL,
			position INTEGER NOT NULL,
			src INTEGER NOT NULL,
			dst INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, src_type, relation, dst_type, position)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_features (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
			node_type TEXT NOT NULL,
			name TEXT NOT NULL,
			num_rows INTEGER NOT NULL,
			num_cols INTEGER NOT NULL,
			data BYTEA,
			PRIMARY KEY (snapshot_id, node_type, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
