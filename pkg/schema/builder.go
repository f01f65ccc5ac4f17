package schema

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Builder accumulates a Model declaration. Errors are reported by Build.
type Builder struct {
	entityType  string
	table       string
	identifier  string
	fields      []string
	relations   []Relation
	generateIDs bool
}

// New starts a Model declaration for the named entity type. The table name
// defaults to the lower-cased entity type.
func New(entityType string) *Builder {
	return &Builder{entityType: entityType}
}

// Table sets the storage table name.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Identifier sets the identifier field. It is added to the scalar fields.
func (b *Builder) Identifier(field string) *Builder {
	b.identifier = field
	return b
}

// Fields appends scalar fields.
func (b *Builder) Fields(fields ...string) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// HasOne declares a singular relation. The foreign key is a scalar field of
// this entity and is added to the scalar fields when missing.
func (b *Builder) HasOne(name, target, foreignKey string) *Builder {
	b.relations = append(b.relations, Relation{Name: name, Target: target, ForeignKey: foreignKey, Cardinality: One})
	return b
}

// HasMany declares a collection relation. The foreign key is a scalar field
// of the target entity holding this entity's identifier.
func (b *Builder) HasMany(name, target, foreignKey string) *Builder {
	b.relations = append(b.relations, Relation{Name: name, Target: target, ForeignKey: foreignKey, Cardinality: Many})
	return b
}

// GenerateIdentifiers makes Create assign a UUID v7 when the identifier is empty.
func (b *Builder) GenerateIdentifiers() *Builder {
	b.generateIDs = true
	return b
}

// Build validates the declaration and returns the Model. Errors wrap
// types.ErrInvalidSchema.
func (b *Builder) Build() (*Model, error) {
	if b.entityType == "" {
		return nil, fmt.Errorf("%w: entity type must not be empty", types.ErrInvalidSchema)
	}
	if b.identifier == "" {
		return nil, fmt.Errorf("%w: %s has no identifier field", types.ErrInvalidSchema, b.entityType)
	}
	table := b.table
	if table == "" {
		table = strings.ToLower(b.entityType)
	}
	if strings.ContainsAny(table, ":;") {
		return nil, fmt.Errorf("%w: table name %q contains a key delimiter", types.ErrInvalidSchema, table)
	}

	m := &Model{
		entityType:  b.entityType,
		table:       table,
		identifier:  b.identifier,
		fieldSet:    make(map[string]struct{}),
		relationIdx: make(map[string]int),
		generateIDs: b.generateIDs,
	}
	m.addField(b.identifier)
	for _, f := range b.fields {
		if f == "" {
			return nil, fmt.Errorf("%w: %s declares an empty field name", types.ErrInvalidSchema, b.entityType)
		}
		m.addField(f)
	}
	// Singular foreign keys are persisted on the owning record.
	for _, r := range b.relations {
		if r.Cardinality == One && r.ForeignKey != "" {
			m.addField(r.ForeignKey)
		}
	}

	for _, r := range b.relations {
		switch {
		case r.Name == "":
			return nil, fmt.Errorf("%w: %s declares a relation without a name", types.ErrInvalidSchema, b.entityType)
		case r.Target == "":
			return nil, fmt.Errorf("%w: relation %s.%s has no target", types.ErrInvalidSchema, b.entityType, r.Name)
		case r.ForeignKey == "":
			return nil, fmt.Errorf("%w: relation %s.%s has no foreign key", types.ErrInvalidSchema, b.entityType, r.Name)
		}
		if m.HasField(r.Name) {
			return nil, fmt.Errorf("%w: relation %s.%s collides with a scalar field", types.ErrInvalidSchema, b.entityType, r.Name)
		}
		if _, dup := m.relationIdx[r.Name]; dup {
			return nil, fmt.Errorf("%w: relation %s.%s declared twice", types.ErrInvalidSchema, b.entityType, r.Name)
		}
		m.relationIdx[r.Name] = len(m.relations)
		m.relations = append(m.relations, r)
	}
	return m, nil
}

// MustBuild is like Build but panics on error. It is meant for package-level
// schema declarations.
func (b *Builder) MustBuild() *Model {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) addField(name string) {
	if _, ok := m.fieldSet[name]; ok {
		return
	}
	m.fieldSet[name] = struct{}{}
	m.fields = append(m.fields, name)
}
