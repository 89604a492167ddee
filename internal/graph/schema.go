package graph

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// NodeType names a kind of node in the heterogeneous graph
type NodeType string

const (
	NodeUser     NodeType = "user"
	NodeItem     NodeType = "item"
	NodeBrand    NodeType = "brand"
	NodeCategory NodeType = "category"
)

// Canonical relation names
const (
	RelBuys       = "buys"
	RelProducedBy = "produced_by"
	RelBelongsTo  = "belongs_to"

	RelBoughtBy = "bought_by"
	RelProduces = "produces"
	RelIncludes = "includes"
)

// EdgeType is a (source node type, relation, destination node type) triple
type EdgeType struct {
	Src      NodeType
	Relation string
	Dst      NodeType
}

// E is shorthand for building an EdgeType
func E(src NodeType, relation string, dst NodeType) EdgeType {
	return EdgeType{Src: src, Relation: relation, Dst: dst}
}

const edgeTypeSep = "__"

// String renders src__relation__dst
func (e EdgeType) String() string {
	return string(e.Src) + edgeTypeSep + e.Relation + edgeTypeSep + string(e.Dst)
}

// ParseEdgeType parses the String form or a space/comma separated triple
func ParseEdgeType(s string) (EdgeType, error) {
	parts := strings.Split(s, edgeTypeSep)
	if len(parts) != 3 {
		parts = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	}
	if len(parts) != 3 {
		return EdgeType{}, errors.ValidationErrorf("invalid edge type %q: want src__relation__dst", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return EdgeType{}, errors.ValidationErrorf("invalid edge type %q: empty component", s)
		}
	}
	return E(NodeType(parts[0]), parts[1], NodeType(parts[2])), nil
}

// PathTemplate is an alternating node/relation sequence starting and ending
// on a node type, e.g. user buys item belongs_to category.
type PathTemplate []string

func (p PathTemplate) String() string {
	return strings.Join(p, " -> ")
}

// Hops splits the template into its edge types
func (p PathTemplate) Hops() []EdgeType {
	if len(p) < 3 {
		return nil
	}
	hops := make([]EdgeType, 0, len(p)/2)
	for i := 0; i+2 < len(p); i += 2 {
		hops = append(hops, E(NodeType(p[i]), p[i+1], NodeType(p[i+2])))
	}
	return hops
}

// RegistryConfig is the declarative input to NewRegistry
type RegistryConfig struct {
	NodeTypes           []NodeType
	Aliases             map[NodeType]string
	Relations           []Relation
	Reverses            map[EdgeType]EdgeType
	ExplanationRelevant []string
	Propagation         []string
	PathTemplates       []PathTemplate
}

// Registry is an immutable catalog of node types, canonical edge types, their
// reverses, named relation subsets and valid path templates. Every relation
// carries its own extraction rule.
type Registry struct {
	nodeTypes   []NodeType
	aliases     map[NodeType]string
	relations   []Relation
	byType      map[EdgeType]Relation
	reverses    map[EdgeType]EdgeType
	explanation []string
	propagation []string
	templates   []PathTemplate
}

// NewRegistry validates cfg and returns a registry that owns copies of it
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{
		nodeTypes:   append([]NodeType(nil), cfg.NodeTypes...),
		aliases:     make(map[NodeType]string, len(cfg.Aliases)),
		relations:   append([]Relation(nil), cfg.Relations...),
		byType:      make(map[EdgeType]Relation, len(cfg.Relations)),
		reverses:    make(map[EdgeType]EdgeType, len(cfg.Reverses)),
		explanation: append([]string(nil), cfg.ExplanationRelevant...),
		propagation: append([]string(nil), cfg.Propagation...),
	}
	for k, v := range cfg.Aliases {
		r.aliases[k] = v
	}
	for k, v := range cfg.Reverses {
		r.reverses[k] = v
	}
	for _, t := range cfg.PathTemplates {
		r.templates = append(r.templates, append(PathTemplate(nil), t...))
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry for static definitions
func MustRegistry(cfg RegistryConfig) *Registry {
	r, err := NewRegistry(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the user/item/brand/category schema
func DefaultRegistry() *Registry {
	return MustRegistry(RegistryConfig{
		NodeTypes: []NodeType{NodeUser, NodeItem, NodeBrand, NodeCategory},
		Aliases: map[NodeType]string{
			NodeUser:     "U",
			NodeItem:     "I",
			NodeBrand:    "B",
			NodeCategory: "C",
		},
		Relations: []Relation{Buys{}, ProducedBy{}, BelongsTo{}},
		Reverses: map[EdgeType]EdgeType{
			E(NodeUser, RelBuys, NodeItem):          E(NodeItem, RelBoughtBy, NodeUser),
			E(NodeItem, RelProducedBy, NodeBrand):   E(NodeBrand, RelProduces, NodeItem),
			E(NodeItem, RelBelongsTo, NodeCategory): E(NodeCategory, RelIncludes, NodeItem),
		},
		ExplanationRelevant: []string{RelBuys, RelBelongsTo},
		Propagation:         []string{RelBuys, RelProducedBy},
		PathTemplates: []PathTemplate{
			{"user", RelBuys, "item", RelBelongsTo, "category"},
			{"user", RelBuys, "item", RelProducedBy, "brand"},
		},
	})
}

func (r *Registry) validate() error {
	declared := make(map[NodeType]bool, len(r.nodeTypes))
	for _, t := range r.nodeTypes {
		if t == "" {
			return errors.SchemaErrorf("empty node type")
		}
		if declared[t] {
			return errors.SchemaErrorf("duplicate node type: %s", t)
		}
		declared[t] = true
	}
	for t := range r.aliases {
		if !declared[t] {
			return errors.SchemaErrorf("alias for undeclared node type: %s", t)
		}
	}

	names := make(map[string]bool, len(r.relations))
	for _, rel := range r.relations {
		if rel == nil {
			return errors.SchemaErrorf("nil relation")
		}
		et := rel.EdgeType()
		if et.Relation == "" {
			return errors.SchemaErrorf("relation with empty name: %s", et)
		}
		if !declared[et.Src] || !declared[et.Dst] {
			return errors.SchemaErrorf("relation %s references undeclared node type", et)
		}
		if names[et.Relation] {
			return errors.SchemaErrorf("duplicate relation name: %s", et.Relation)
		}
		names[et.Relation] = true
		r.byType[et] = rel
	}

	for _, rel := range r.relations {
		et := rel.EdgeType()
		rev, ok := r.reverses[et]
		if !ok {
			return errors.SchemaErrorf("no reverse for edge type %s", et)
		}
		if rev.Src != et.Dst || rev.Dst != et.Src || rev.Relation == "" {
			return errors.SchemaErrorf("reverse %s does not invert %s", rev, et)
		}
	}
	for et := range r.reverses {
		if _, ok := r.byType[et]; !ok {
			return errors.SchemaErrorf("reverse declared for non-canonical edge type %s", et)
		}
	}

	for _, subset := range [][]string{r.explanation, r.propagation} {
		for _, name := range subset {
			if !names[name] {
				return errors.SchemaErrorf("relation subset references unknown relation: %s", name)
			}
		}
	}

	for _, tpl := range r.templates {
		if len(tpl) < 3 || len(tpl)%2 == 0 {
			return errors.SchemaErrorf("path template %q must alternate node and relation and end on a node", tpl.String())
		}
		for _, hop := range tpl.Hops() {
			if !names[hop.Relation] {
				return errors.SchemaErrorf("path template %q references unknown relation: %s", tpl.String(), hop.Relation)
			}
			if _, ok := r.byType[hop]; !ok {
				return errors.SchemaErrorf("path template %q hop %s is not a canonical edge type", tpl.String(), hop)
			}
		}
	}
	return nil
}

// NodeTypes returns the declared node types in order
func (r *Registry) NodeTypes() []NodeType {
	return append([]NodeType(nil), r.nodeTypes...)
}

// HasNodeType reports whether t is declared
func (r *Registry) HasNodeType(t NodeType) bool {
	for _, n := range r.nodeTypes {
		if n == t {
			return true
		}
	}
	return false
}

// Alias returns the compact alias of a node type, or the type itself
func (r *Registry) Alias(t NodeType) string {
	if a, ok := r.aliases[t]; ok {
		return a
	}
	return string(t)
}

// EdgeTypes returns the canonical edge types in registration order
func (r *Registry) EdgeTypes() []EdgeType {
	out := make([]EdgeType, len(r.relations))
	for i, rel := range r.relations {
		out[i] = rel.EdgeType()
	}
	return out
}

// RelationNames returns the canonical relation names in order
func (r *Registry) RelationNames() []string {
	out := make([]string, len(r.relations))
	for i, rel := range r.relations {
		out[i] = rel.EdgeType().Relation
	}
	return out
}

// Relations returns the registered relation variants
func (r *Registry) Relations() []Relation {
	return append([]Relation(nil), r.relations...)
}

// Relation looks up the variant registered for an exact edge type
func (r *Registry) Relation(et EdgeType) (Relation, bool) {
	rel, ok := r.byType[et]
	return rel, ok
}

// RelationByName finds the canonical relation with the given name
func (r *Registry) RelationByName(name string) (Relation, bool) {
	for _, rel := range r.relations {
		if rel.EdgeType().Relation == name {
			return rel, true
		}
	}
	return nil, false
}

// Reverse returns the logical inverse of a canonical edge type
func (r *Registry) Reverse(et EdgeType) (EdgeType, bool) {
	rev, ok := r.reverses[et]
	return rev, ok
}

// ReverseMap returns a copy of the reverse mapping
func (r *Registry) ReverseMap() map[EdgeType]EdgeType {
	out := make(map[EdgeType]EdgeType, len(r.reverses))
	for k, v := range r.reverses {
		out[k] = v
	}
	return out
}

// ExplanationRelevantEdges names the relations explanation consumers care about
func (r *Registry) ExplanationRelevantEdges() []string {
	return append([]string(nil), r.explanation...)
}

// PropagationEdges names the relations used for message passing
func (r *Registry) PropagationEdges() []string {
	return append([]string(nil), r.propagation...)
}

// PathTemplates returns copies of the valid path templates
func (r *Registry) PathTemplates() []PathTemplate {
	out := make([]PathTemplate, len(r.templates))
	for i, t := range r.templates {
		out[i] = append(PathTemplate(nil), t...)
	}
	return out
}

// Describe renders a one-line summary, e.g. for logs
func (r *Registry) Describe() string {
	return fmt.Sprintf("%d node types, %d edge types, %d path templates",
		len(r.nodeTypes), len(r.relations), len(r.templates))
}
