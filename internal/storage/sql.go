package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/kgbuilder/internal/errors"
	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// insertChunk keeps multi-row inserts under SQLite's bound-variable limit
const insertChunk = 500

// sqlStore holds the queries shared by the SQLite and Postgres stores.
// Queries use ? placeholders and are rebound for the driver.
type sqlStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Info.ID == "" {
		return errors.ValidationError("save snapshot: missing id")
	}
	info := snap.Info
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	info.NodeTypes = joinNodeTypes(snap.Entities)
	info.EdgeTypes = joinEdgeTypes(snap.Edges)
	info.NodeCount, info.EdgeCount = 0, 0
	for _, m := range snap.Entities {
		info.NodeCount += m.Len()
	}
	for _, idx := range snap.Edges {
		info.EdgeCount += idx.Len()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseErrorf(err, "begin snapshot tx")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO snapshots (id, label, use_brand, use_category, node_types, edge_types,
			node_count, edge_count, created_at)
		VALUES (:id, :label, :use_brand, :use_category, :node_types, :edge_types,
			:node_count, :edge_count, :created_at)
	`, info)
	if err != nil {
		return errors.DatabaseErrorf(err, "save snapshot")
	}

	var entities []models.EntityRow
	for t, m := range snap.Entities {
		for idx, key := range m.Keys() {
			entities = append(entities, models.EntityRow{
				SnapshotID: info.ID, NodeType: string(t), Key: key, Idx: idx,
			})
		}
	}
	if err := insertChunked(ctx, tx, `
		INSERT INTO snapshot_entities (snapshot_id, node_type, entity_key, idx)
		VALUES (:snapshot_id, :node_type, :entity_key, :idx)
	`, len(entities), func(i, j int) any { return entities[i:j] }); err != nil {
		return errors.DatabaseErrorf(err, "save entities")
	}

	var edges []models.EdgeRow
	for et, idx := range snap.Edges {
		for pos := range idx.Src {
			edges = append(edges, models.EdgeRow{
				SnapshotID: info.ID,
				SrcType:    string(et.Src),
				Relation:   et.Relation,
				DstType:    string(et.Dst),
				Position:   pos,
				Src:        idx.Src[pos],
				Dst:        idx.Dst[pos],
			})
		}
	}
	if err := insertChunked(ctx, tx, `
		INSERT INTO snapshot_edges (snapshot_id, src_type, relation, dst_type, position, src, dst)
		VALUES (:snapshot_id, :src_type, :relation, :dst_type, :position, :src, :dst)
	`, len(edges), func(i, j int) any { return edges[i:j] }); err != nil {
		return errors.DatabaseErrorf(err, "save edges")
	}

	for t, features := range snap.Features {
		for name, v := range features {
			if err := upsertFeature(ctx, tx, info.ID, t, name, v); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseErrorf(err, "commit snapshot")
	}
	snap.Info = info

	s.logger.WithFields(logrus.Fields{
		"snapshot": info.ID,
		"nodes":    info.NodeCount,
		"edges":    info.EdgeCount,
	}).Debug("Snapshot saved")
	return nil
}

func insertChunked(ctx context.Context, tx *sqlx.Tx, query string, n int, slice func(i, j int) any) error {
	query = strings.TrimSpace(query)
	for i := 0; i < n; i += insertChunk {
		j := i + insertChunk
		if j > n {
			j = n
		}
		if _, err := tx.NamedExecContext(ctx, query, slice(i, j)); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var info models.SnapshotInfo
	err := s.db.GetContext(ctx, &info, s.db.Rebind(`SELECT * FROM snapshots WHERE id = ?`), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.DatabaseErrorf(err, "get snapshot")
	}

	snap := &Snapshot{
		Info:     info,
		Entities: make(graph.EntityMaps),
		Edges:    make(map[graph.EdgeType]graph.EdgeIndex),
		Features: make(map[graph.NodeType]map[string]graph.Tensor),
	}

	var entities []models.EntityRow
	if err := s.db.SelectContext(ctx, &entities, s.db.Rebind(`
		SELECT snapshot_id, node_type, entity_key, idx FROM snapshot_entities
		WHERE snapshot_id = ? ORDER BY node_type, idx
	`), id); err != nil {
		return nil, errors.DatabaseErrorf(err, "get entities")
	}
	keys := make(map[graph.NodeType][]string)
	for _, t := range splitList(info.NodeTypes) {
		keys[graph.NodeType(t)] = nil
	}
	for _, row := range entities {
		t := graph.NodeType(row.NodeType)
		keys[t] = append(keys[t], row.Key)
	}
	for t, k := range keys {
		snap.Entities[t] = graph.RestoreEntityMap(k)
	}

	var edges []models.EdgeRow
	if err := s.db.SelectContext(ctx, &edges, s.db.Rebind(`
		SELECT snapshot_id, src_type, relation, dst_type, position, src, dst FROM snapshot_edges
		WHERE snapshot_id = ? ORDER BY src_type, relation, dst_type, position
	`), id); err != nil {
		return nil, errors.DatabaseErrorf(err, "get edges")
	}
	for _, name := range splitList(info.EdgeTypes) {
		et, err := graph.ParseEdgeType(name)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
		snap.Edges[et] = graph.NewEdgeIndex(0)
	}
	for _, row := range edges {
		et := graph.E(graph.NodeType(row.SrcType), row.Relation, graph.NodeType(row.DstType))
		idx := snap.Edges[et]
		idx.Append(row.Src, row.Dst)
		snap.Edges[et] = idx
	}

	var features []models.FeatureRow
	if err := s.db.SelectContext(ctx, &features, s.db.Rebind(`
		SELECT snapshot_id, node_type, name, num_rows, num_cols, data FROM snapshot_features
		WHERE snapshot_id = ?
	`), id); err != nil {
		return nil, errors.DatabaseErrorf(err, "get features")
	}
	for _, row := range features {
		t := graph.NodeType(row.NodeType)
		if snap.Features[t] == nil {
			snap.Features[t] = make(map[string]graph.Tensor)
		}
		snap.Features[t][row.Name] = decodeTensor(row)
	}

	return snap, nil
}

func (s *sqlStore) ListSnapshots(ctx context.Context) ([]models.SnapshotInfo, error) {
	var out []models.SnapshotInfo
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM snapshots ORDER BY created_at DESC, id`); err != nil {
		return nil, errors.DatabaseErrorf(err, "list snapshots")
	}
	return out, nil
}

func (s *sqlStore) DeleteSnapshot(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseErrorf(err, "begin delete tx")
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshot_features", "snapshot_edges", "snapshot_entities"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE snapshot_id = ?`), id); err != nil {
			return errors.DatabaseErrorf(err, "delete from %s", table)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM snapshots WHERE id = ?`), id)
	if err != nil {
		return errors.DatabaseErrorf(err, "delete snapshot")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *sqlStore) SaveNodeFeature(ctx context.Context, snapshotID string, nodeType graph.NodeType, name string, value graph.Tensor) error {
	var exists int
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM snapshots WHERE id = ?`), snapshotID)
	if err != nil {
		return errors.DatabaseErrorf(err, "check snapshot")
	}
	if exists == 0 {
		return ErrNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseErrorf(err, "begin feature tx")
	}
	defer tx.Rollback()
	if err := upsertFeature(ctx, tx, snapshotID, nodeType, name, value); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertFeature(ctx context.Context, tx *sqlx.Tx, snapshotID string, nodeType graph.NodeType, name string, value graph.Tensor) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO snapshot_features (snapshot_id, node_type, name, num_rows, num_cols, data)
		VALUES (:snapshot_id, :node_type, :name, :num_rows, :num_cols, :data)
		ON CONFLICT (snapshot_id, node_type, name) DO UPDATE SET
			num_rows = EXCLUDED.num_rows,
			num_cols = EXCLUDED.num_cols,
			data = EXCLUDED.data
	`, encodeTensor(snapshotID, nodeType, name, value))
	if err != nil {
		return errors.DatabaseErrorf(err, "save feature %s/%s", nodeType, name)
	}
	return nil
}

func encodeTensor(snapshotID string, nodeType graph.NodeType, name string, t graph.Tensor) models.FeatureRow {
	data := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return models.FeatureRow{
		SnapshotID: snapshotID,
		NodeType:   string(nodeType),
		Name:       name,
		Rows:       t.Rows,
		Cols:       t.Cols,
		Data:       data,
	}
}

func decodeTensor(row models.FeatureRow) graph.Tensor {
	t := graph.Tensor{Rows: row.Rows, Cols: row.Cols, Data: make([]float32, len(row.Data)/4)}
	for i := range t.Data {
		t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(row.Data[4*i:]))
	}
	return t
}

func joinNodeTypes(entities graph.EntityMaps) string {
	names := make([]string, 0, len(entities))
	for t := range entities {
		names = append(names, string(t))
	}
	return joinSorted(names)
}

func joinEdgeTypes(edges map[graph.EdgeType]graph.EdgeIndex) string {
	names := make([]string, 0, len(edges))
	for et := range edges {
		names = append(names, et.String())
	}
	return joinSorted(names)
}

func joinSorted(names []string) string {
	sort.Strings(names)
	return strings.Join(names, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
