package graph

import (
	"fmt"
	"sort"
)

// Tensor is a dense row-major float32 matrix, one row per node
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// NewTensor allocates a zeroed rows x cols tensor
func NewTensor(rows, cols int) Tensor {
	return Tensor{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Row returns a view of row i
func (t Tensor) Row(i int) []float32 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// SetRow copies v into row i, truncating or zero-padding to Cols
func (t Tensor) SetRow(i int, v []float32) {
	row := t.Row(i)
	n := copy(row, v)
	for j := n; j < len(row); j++ {
		row[j] = 0
	}
}

// Clone deep-copies the tensor
func (t Tensor) Clone() Tensor {
	return Tensor{Rows: t.Rows, Cols: t.Cols, Data: append([]float32(nil), t.Data...)}
}

// HeteroGraph is the capability set the merger relies on. Materialization
// backends implement it; the core never depends on a concrete graph type.
type HeteroGraph interface {
	NodeTypes() []NodeType
	EdgeRelations() []string
	Features(t NodeType) map[string]Tensor
	Feature(t NodeType, name string) (Tensor, bool)
	SetFeature(t NodeType, name string, value Tensor)
}

// MemoryGraph is the in-process materialization backend
type MemoryGraph struct {
	nodeOrder []NodeType
	numNodes  map[NodeType]int
	edgeOrder []EdgeType
	edges     map[EdgeType]EdgeIndex
	features  map[NodeType]map[string]Tensor
}

// NewMemoryGraph creates an empty graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		numNodes: make(map[NodeType]int),
		edges:    make(map[EdgeType]EdgeIndex),
		features: make(map[NodeType]map[string]Tensor),
	}
}

// AddNodeType registers t with at least n nodes
func (g *MemoryGraph) AddNodeType(t NodeType, n int) {
	cur, ok := g.numNodes[t]
	if !ok {
		g.nodeOrder = append(g.nodeOrder, t)
	}
	if n > cur || !ok {
		g.numNodes[t] = n
	}
}

// AddEdges appends edges of type et, registering endpoint node types and
// growing their node counts to cover every referenced id.
func (g *MemoryGraph) AddEdges(et EdgeType, idx EdgeIndex) {
	if _, ok := g.edges[et]; !ok {
		g.edgeOrder = append(g.edgeOrder, et)
		g.edges[et] = NewEdgeIndex(idx.Len())
	}
	g.AddNodeType(et.Src, g.numNodes[et.Src])
	g.AddNodeType(et.Dst, g.numNodes[et.Dst])

	cur := g.edges[et]
	for i := range idx.Src {
		cur.Append(idx.Src[i], idx.Dst[i])
		if idx.Src[i]+1 > g.numNodes[et.Src] {
			g.numNodes[et.Src] = idx.Src[i] + 1
		}
		if idx.Dst[i]+1 > g.numNodes[et.Dst] {
			g.numNodes[et.Dst] = idx.Dst[i] + 1
		}
	}
	g.edges[et] = cur
}

func (g *MemoryGraph) NodeTypes() []NodeType {
	return append([]NodeType(nil), g.nodeOrder...)
}

// HasNodeType reports whether t is registered
func (g *MemoryGraph) HasNodeType(t NodeType) bool {
	_, ok := g.numNodes[t]
	return ok
}

// NumNodes returns the node count of t
func (g *MemoryGraph) NumNodes(t NodeType) int {
	return g.numNodes[t]
}

// EdgeTypes returns the canonical edge types in insertion order
func (g *MemoryGraph) EdgeTypes() []EdgeType {
	return append([]EdgeType(nil), g.edgeOrder...)
}

// EdgeRelations returns the distinct relation names present
func (g *MemoryGraph) EdgeRelations() []string {
	seen := make(map[string]bool, len(g.edgeOrder))
	out := make([]string, 0, len(g.edgeOrder))
	for _, et := range g.edgeOrder {
		if seen[et.Relation] {
			continue
		}
		seen[et.Relation] = true
		out = append(out, et.Relation)
	}
	return out
}

// Edges returns a copy of the edges of et
func (g *MemoryGraph) Edges(et EdgeType) (EdgeIndex, bool) {
	idx, ok := g.edges[et]
	if !ok {
		return EdgeIndex{}, false
	}
	return idx.Clone(), true
}

// NumEdges returns the edge count of et
func (g *MemoryGraph) NumEdges(et EdgeType) int {
	return g.edges[et].Len()
}

// TotalNodes sums node counts over all types
func (g *MemoryGraph) TotalNodes() int {
	total := 0
	for _, n := range g.numNodes {
		total += n
	}
	return total
}

// TotalEdges sums edge counts over all edge types
func (g *MemoryGraph) TotalEdges() int {
	total := 0
	for _, idx := range g.edges {
		total += idx.Len()
	}
	return total
}

func (g *MemoryGraph) Features(t NodeType) map[string]Tensor {
	out := make(map[string]Tensor, len(g.features[t]))
	for name, v := range g.features[t] {
		out[name] = v
	}
	return out
}

// FeatureNames returns the feature names of t, sorted
func (g *MemoryGraph) FeatureNames(t NodeType) []string {
	names := make([]string, 0, len(g.features[t]))
	for name := range g.features[t] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *MemoryGraph) Feature(t NodeType, name string) (Tensor, bool) {
	v, ok := g.features[t][name]
	return v, ok
}

// SetFeature stores value under name, replacing any previous value. An
// unknown node type is registered with value.Rows nodes.
func (g *MemoryGraph) SetFeature(t NodeType, name string, value Tensor) {
	if !g.HasNodeType(t) {
		g.AddNodeType(t, value.Rows)
	}
	if g.features[t] == nil {
		g.features[t] = make(map[string]Tensor)
	}
	g.features[t][name] = value
}

// Clone deep-copies the graph
func (g *MemoryGraph) Clone() *MemoryGraph {
	out := NewMemoryGraph()
	for _, t := range g.nodeOrder {
		out.AddNodeType(t, g.numNodes[t])
	}
	for _, et := range g.edgeOrder {
		out.AddEdges(et, g.edges[et])
	}
	for _, t := range g.nodeOrder {
		for name, v := range g.features[t] {
			out.SetFeature(t, name, v.Clone())
		}
	}
	return out
}

// MaterializeOptions controls optional node features
type MaterializeOptions struct {
	// AddNodeIDs attaches an "x" feature holding each node's own index
	AddNodeIDs bool
}

// NodeIDFeature is the feature name used for node index features
const NodeIDFeature = "x"

// Materialize builds an in-memory graph from entity maps and edge indices.
// Only constructed node types are registered, in schema order.
func (r *Registry) Materialize(entities EntityMaps, edges map[EdgeType]EdgeIndex, opts MaterializeOptions) *MemoryGraph {
	g := NewMemoryGraph()
	for _, t := range r.orderedNodeTypes(entities) {
		n := entities[t].Len()
		g.AddNodeType(t, n)
		if opts.AddNodeIDs {
			x := NewTensor(n, 1)
			for i := 0; i < n; i++ {
				x.Data[i] = float32(i)
			}
			g.SetFeature(t, NodeIDFeature, x)
		}
	}
	for _, et := range r.orderedEdgeTypes(edges) {
		g.AddEdges(et, edges[et])
	}
	return g
}

func (r *Registry) orderedNodeTypes(entities EntityMaps) []NodeType {
	out := make([]NodeType, 0, len(entities))
	for _, t := range r.nodeTypes {
		if entities.Has(t) {
			out = append(out, t)
		}
	}
	var extra []NodeType
	for t := range entities {
		if !r.HasNodeType(t) {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func (r *Registry) orderedEdgeTypes(edges map[EdgeType]EdgeIndex) []EdgeType {
	out := make([]EdgeType, 0, len(edges))
	for _, rel := range r.relations {
		if _, ok := edges[rel.EdgeType()]; ok {
			out = append(out, rel.EdgeType())
		}
	}
	var extra []EdgeType
	for et := range edges {
		if _, ok := r.byType[et]; !ok {
			extra = append(extra, et)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	return append(out, extra...)
}

// CombineMemory is the merge primitive for MemoryGraph inputs: node types are
// unioned with the largest count, edges are concatenated in input order and
// for a feature held by several inputs the last one wins.
func CombineMemory(graphs []HeteroGraph) (HeteroGraph, error) {
	out := NewMemoryGraph()
	for i, hg := range graphs {
		g, ok := hg.(*MemoryGraph)
		if !ok {
			return nil, fmt.Errorf("combine graph %d: unsupported graph implementation %T", i, hg)
		}
		for _, t := range g.nodeOrder {
			out.AddNodeType(t, g.numNodes[t])
		}
		for _, et := range g.edgeOrder {
			out.AddEdges(et, g.edges[et])
		}
	}
	for _, hg := range graphs {
		g := hg.(*MemoryGraph)
		for _, t := range g.nodeOrder {
			for name, v := range g.features[t] {
				out.SetFeature(t, name, v.Clone())
			}
		}
	}
	return out, nil
}
