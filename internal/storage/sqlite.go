package storage

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// SQLiteStore implements storage using SQLite (for local/development)
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.FileSystemErrorf(err, "create database directory")
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "connect to sqlite")
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	store := &SQLiteStore{&sqlStore{db: db, logger: logger}}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseErrorf(err, "init schema")
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		label TEXT,
		use_brand BOOLEAN NOT NULL,
		use_category BOOLEAN NOT NULL,
		node_types TEXT NOT NULL,
		edge_types TEXT NOT NULL,
		node_count INTEGER,
		edge_count INTEGER,
		created_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS snapshot_entities (
		snapshot_id TEXT NOT NULL,
		node_type TEXT NOT NULL,
		entity_key TEXT NOT NULL,
		idx INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, node_type, idx),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	CREATE TABLE IF NOT EXISTS snapshot_edges (
		snapshot_id TEXT NOT NULL,
		src_type TEXT NOT NULL,
		relation TEXT NOT NULL,
		dst_type TEXT NOT NULL,
		position INTEGER NOT NULL,
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, src_type, relation, dst_type, position),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	CREATE TABLE IF NOT EXISTS snapshot_features (
		snapshot_id TEXT NOT NULL,
		node_type TEXT NOT NULL,
		name TEXT NOT NULL,
		num_rows INTEGER NOT NULL,
		num_cols INTEGER NOT NULL,
		data BLOB,
		PRIMARY KEY (snapshot_id, node_type, name),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
