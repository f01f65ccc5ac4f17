package config

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// SchemaDef declares one entity type in config.yaml.
type SchemaDef struct {
	Entity              string        `mapstructure:"entity" yaml:"entity"`
	Table               string        `mapstructure:"table" yaml:"table,omitempty"`
	Identifier          string        `mapstructure:"identifier" yaml:"identifier"`
	Fields              []string      `mapstructure:"fields" yaml:"fields,omitempty"`
	GenerateIdentifiers bool          `mapstructure:"generate_ids" yaml:"generate_ids,omitempty"`
	Relations           []RelationDef `mapstructure:"relations" yaml:"relations,omitempty"`
}

// RelationDef declares one relation. Cardinality is "one" or "many".
type RelationDef struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Target      string `mapstructure:"target" yaml:"target"`
	ForeignKey  string `mapstructure:"foreign_key" yaml:"foreign_key"`
	Cardinality string `mapstructure:"cardinality" yaml:"cardinality"`
}

// Model builds the schema.Model declared by s.
func (s SchemaDef) Model() (*schema.Model, error) {
	b := schema.New(s.Entity).Identifier(s.Identifier).Fields(s.Fields...)
	if s.Table != "" {
		b.Table(s.Table)
	}
	if s.GenerateIdentifiers {
		b.GenerateIdentifiers()
	}
	for _, r := range s.Relations {
		switch strings.ToLower(r.Cardinality) {
		case "one", "":
			b.HasOne(r.Name, r.Target, r.ForeignKey)
		case "many":
			b.HasMany(r.Name, r.Target, r.ForeignKey)
		default:
			return nil, fmt.Errorf("%w: %s.%s has cardinality %q", types.ErrInvalidSchema, s.Entity, r.Name, r.Cardinality)
		}
	}
	return b.Build()
}

// Registry registers every declared schema in a new registry and checks the
// references between them.
func Registry(defs []SchemaDef) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, s := range defs {
		m, err := s.Model()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
