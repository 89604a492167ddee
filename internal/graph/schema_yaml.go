package graph

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// registryFile is the on-disk YAML form of a registry
type registryFile struct {
	NodeTypes           []string          `yaml:"node_types"`
	Aliases             map[string]string `yaml:"aliases,omitempty"`
	Relations           []relationEntry   `yaml:"relations"`
	ExplanationRelevant []string          `yaml:"explanation_relevant,omitempty"`
	Propagation         []string          `yaml:"propagation,omitempty"`
	PathTemplates       [][]string        `yaml:"path_templates,omitempty"`
}

type relationEntry struct {
	Src      string `yaml:"src"`
	Relation string `yaml:"relation"`
	Dst      string `yaml:"dst"`
	Reverse  string `yaml:"reverse"`
}

// knownRelations are the variants a YAML schema may reference by triple
func knownRelations() map[EdgeType]Relation {
	out := make(map[EdgeType]Relation)
	for _, rel := range []Relation{Buys{}, ProducedBy{}, BelongsTo{}} {
		out[rel.EdgeType()] = rel
	}
	return out
}

// ParseRegistryYAML builds a registry from its YAML form. Relations are named
// by triple and must match a known extraction rule.
func ParseRegistryYAML(data []byte) (*Registry, error) {
	var f registryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "failed to parse schema YAML").
			WithCode(errors.CodeInvalidSchema)
	}

	known := knownRelations()
	cfg := RegistryConfig{
		Aliases:             make(map[NodeType]string, len(f.Aliases)),
		Reverses:            make(map[EdgeType]EdgeType, len(f.Relations)),
		ExplanationRelevant: f.ExplanationRelevant,
		Propagation:         f.Propagation,
	}
	for _, t := range f.NodeTypes {
		cfg.NodeTypes = append(cfg.NodeTypes, NodeType(t))
	}
	for t, alias := range f.Aliases {
		cfg.Aliases[NodeType(t)] = alias
	}
	for _, entry := range f.Relations {
		et := E(NodeType(entry.Src), entry.Relation, NodeType(entry.Dst))
		rel, ok := known[et]
		if !ok {
			return nil, errors.SchemaErrorf("no extraction rule for relation %s", et)
		}
		cfg.Relations = append(cfg.Relations, rel)
		if entry.Reverse != "" {
			cfg.Reverses[et] = E(et.Dst, entry.Reverse, et.Src)
		}
	}
	for _, tpl := range f.PathTemplates {
		cfg.PathTemplates = append(cfg.PathTemplates, PathTemplate(tpl))
	}
	return NewRegistry(cfg)
}

// LoadRegistryYAML reads a registry from a YAML file
func LoadRegistryYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFileSystem, errors.SeverityHigh,
			fmt.Sprintf("failed to read schema file %s", path))
	}
	return ParseRegistryYAML(data)
}

// MarshalYAML renders the registry in the form ParseRegistryYAML accepts
func (r *Registry) MarshalYAML() (interface{}, error) {
	f := registryFile{
		Aliases:             make(map[string]string, len(r.aliases)),
		ExplanationRelevant: r.ExplanationRelevantEdges(),
		Propagation:         r.PropagationEdges(),
	}
	for _, t := range r.nodeTypes {
		f.NodeTypes = append(f.NodeTypes, string(t))
	}
	for t, alias := range r.aliases {
		f.Aliases[string(t)] = alias
	}
	for _, rel := range r.relations {
		et := rel.EdgeType()
		f.Relations = append(f.Relations, relationEntry{
			Src:      string(et.Src),
			Relation: et.Relation,
			Dst:      string(et.Dst),
			Reverse:  r.reverses[et].Relation,
		})
	}
	for _, tpl := range r.templates {
		f.PathTemplates = append(f.PathTemplates, append([]string(nil), tpl...))
	}
	return f, nil
}
