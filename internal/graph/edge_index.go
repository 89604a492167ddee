package graph

// EdgeIndex holds the endpoints of one relation: Src[i] -> Dst[i] is an edge.
// Duplicate pairs are kept.
type EdgeIndex struct {
	Src []int
	Dst []int
}

// NewEdgeIndex returns an empty, non-nil index with room for capacity edges
func NewEdgeIndex(capacity int) EdgeIndex {
	if capacity < 0 {
		capacity = 0
	}
	return EdgeIndex{Src: make([]int, 0, capacity), Dst: make([]int, 0, capacity)}
}

// Append records one edge
func (e *EdgeIndex) Append(src, dst int) {
	e.Src = append(e.Src, src)
	e.Dst = append(e.Dst, dst)
}

// Len returns the number of edges
func (e EdgeIndex) Len() int {
	return len(e.Src)
}

// Pairs returns the edges as [src, dst] pairs
func (e EdgeIndex) Pairs() [][2]int {
	out := make([][2]int, len(e.Src))
	for i := range e.Src {
		out[i] = [2]int{e.Src[i], e.Dst[i]}
	}
	return out
}

// Clone deep-copies the index
func (e EdgeIndex) Clone() EdgeIndex {
	return EdgeIndex{
		Src: append(make([]int, 0, len(e.Src)), e.Src...),
		Dst: append(make([]int, 0, len(e.Dst)), e.Dst...),
	}
}

// Dedupe drops repeated pairs, keeping the first occurrence of each
func Dedupe(e EdgeIndex) EdgeIndex {
	seen := make(map[[2]int]struct{}, e.Len())
	out := NewEdgeIndex(e.Len())
	for i := range e.Src {
		key := [2]int{e.Src[i], e.Dst[i]}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Append(e.Src[i], e.Dst[i])
	}
	return out
}

// BuildEdgeIndex realizes one edge type from src. Edge types the registry does
// not recognize yield an empty index rather than an error.
func (r *Registry) BuildEdgeIndex(src Source, et EdgeType) EdgeIndex {
	rel, ok := r.Relation(et)
	if !ok {
		return NewEdgeIndex(0)
	}
	return rel.Extract(src)
}

// BuildAll realizes every canonical relation whose endpoint node types were
// both constructed in src.Entities.
func (r *Registry) BuildAll(src Source) map[EdgeType]EdgeIndex {
	out := make(map[EdgeType]EdgeIndex, len(r.relations))
	for _, rel := range r.relations {
		et := rel.EdgeType()
		if !src.Entities.Has(et.Src) || !src.Entities.Has(et.Dst) {
			continue
		}
		out[et] = rel.Extract(src)
	}
	return out
}

// BuildEdgeIndex realizes one edge type using the default schema
func BuildEdgeIndex(src Source, et EdgeType) EdgeIndex {
	return DefaultRegistry().BuildEdgeIndex(src, et)
}
