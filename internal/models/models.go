package models

import (
	"time"
)

// Review is one normalized user-item interaction record
type Review struct {
	User   string   `json:"user"`
	Item   string   `json:"item"`
	Text   string   `json:"text"`
	Rating *float64 `json:"rating,omitempty"` // nil when the source row had no rating
}

// ItemMetadata is the normalized descriptive record for one item
type ItemMetadata struct {
	Item        string   `json:"item"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Categories  []string `json:"categories"` // first category path, already flattened
}

// SnapshotInfo describes one persisted build
type SnapshotInfo struct {
	ID          string    `json:"id" db:"id"`
	Label       string    `json:"label" db:"label"`
	UseBrand    bool      `json:"use_brand" db:"use_brand"`
	UseCategory bool      `json:"use_category" db:"use_category"`
	NodeTypes   string    `json:"node_types" db:"node_types"` // comma-joined, constructed types only
	EdgeTypes   string    `json:"edge_types" db:"edge_types"` // comma-joined src__relation__dst
	NodeCount   int       `json:"node_count" db:"node_count"`
	EdgeCount   int       `json:"edge_count" db:"edge_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EntityRow is one stored entity id assignment
type EntityRow struct {
	SnapshotID string `db:"snapshot_id"`
	NodeType   string `db:"node_type"`
	Key        string `db:"entity_key"`
	Idx        int    `db:"idx"`
}

// EdgeRow is one stored edge instance; Position keeps builder order
type EdgeRow struct {
	SnapshotID string `db:"snapshot_id"`
	SrcType    string `db:"src_type"`
	Relation   string `db:"relation"`
	DstType    string `db:"dst_type"`
	Position   int    `db:"position"`
	Src        int    `db:"src"`
	Dst        int    `db:"dst"`
}

// FeatureRow is one stored node feature matrix, row-major float32 little endian
type FeatureRow struct {
	SnapshotID string `db:"snapshot_id"`
	NodeType   string `db:"node_type"`
	Name       string `db:"name"`
	Rows       int    `db:"num_rows"`
	Cols       int    `db:"num_cols"`
	Data       []byte `db:"data"`
}

// Triple is a (head, relation, tail) fact from an external knowledge base
type Triple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}
