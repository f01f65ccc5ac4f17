package schema

import "slices"

// Cardinality tells whether a relation holds one related entity or many.
type Cardinality int

const (
	// One is a singular relation. The foreign key lives on the owning record.
	One Cardinality = iota
	// Many is a collection relation. The foreign key lives on each related
	// record and holds the owner's identifier.
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Relation describes one entity-to-entity reference.
type Relation struct {
	Name        string      // Field on the owning entity.
	Target      string      // Table of the related entity.
	ForeignKey  string      // Field holding the referenced identifier.
	Cardinality Cardinality // One or Many.
}

// Model describes one entity type. A Model is immutable once built.
type Model struct {
	entityType  string
	table       string
	identifier  string
	fields      []string
	fieldSet    map[string]struct{}
	relations   []Relation
	relationIdx map[string]int
	generateIDs bool
}

// EntityType returns the name the entity type was declared with.
func (m *Model) EntityType() string { return m.entityType }

// Table returns the storage table name.
func (m *Model) Table() string { return m.table }

// Identifier returns the name of the identifier field.
func (m *Model) Identifier() string { return m.identifier }

// Fields returns the scalar field names in declaration order, identifier first.
func (m *Model) Fields() []string { return slices.Clone(m.fields) }

// HasField reports whether name is a scalar field.
func (m *Model) HasField(name string) bool {
	_, ok := m.fieldSet[name]
	return ok
}

// Relations returns the relation descriptors in declaration order.
func (m *Model) Relations() []Relation { return slices.Clone(m.relations) }

// Relation returns the relation with the given name.
func (m *Model) Relation(name string) (Relation, bool) {
	i, ok := m.relationIdx[name]
	if !ok {
		return Relation{}, false
	}
	return m.relations[i], true
}

// IsRelation reports whether name is a relation field.
func (m *Model) IsRelation(name string) bool {
	_, ok := m.relationIdx[name]
	return ok
}

// GeneratesIdentifiers reports whether Create assigns a UUID v7 to entities
// that arrive without an identifier.
func (m *Model) GeneratesIdentifiers() bool { return m.generateIDs }
