package larder

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// View is one fetched entity. Scalar fields and included relations can be
// read; reading a relation that was not included fails with
// types.ErrRelationNotLoaded until it is assigned with Set.
type View struct {
	model *schema.Model
	rec   types.Record
	gated map[string]struct{}
}

// newView wraps rec. Every relation of model missing from includes is gated.
func newView(model *schema.Model, rec types.Record, includes *IncludeMap) *View {
	v := &View{model: model, rec: rec, gated: make(map[string]struct{})}
	for _, rel := range model.Relations() {
		if !includes.Has(rel.Name) {
			v.gated[rel.Name] = struct{}{}
		}
	}
	return v
}

// Model returns the entity's schema.
func (v *View) Model() *schema.Model { return v.model }

// ID returns the identifier value.
func (v *View) ID() any { return v.rec[v.model.Identifier()] }

// Get returns a scalar field or an included relation.
func (v *View) Get(name string) (any, error) {
	if v.model.IsRelation(name) {
		return v.Relation(name)
	}
	if !v.model.HasField(name) {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, v.model.EntityType(), name)
	}
	return v.rec[name], nil
}

// Scalar returns a scalar field. Fields that were not loaded read as nil.
// Scalar is for scalar fields only and panics when name is a relation; use
// Get, One or Many for relations.
func (v *View) Scalar(name string) any {
	if v.model.IsRelation(name) {
		panic(fmt.Sprintf("larder: %s.%s is a relation, not a scalar field", v.model.EntityType(), name))
	}
	return v.rec[name]
}

// Relation returns an included relation: a *View or nil for a singular
// relation, a []*View for a collection.
func (v *View) Relation(name string) (any, error) {
	if !v.model.IsRelation(name) {
		return nil, fmt.Errorf("%w: %s has no relation %q", types.ErrInvalidInclude, v.model.EntityType(), name)
	}
	if _, ok := v.gated[name]; ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrRelationNotLoaded, v.model.EntityType(), name)
	}
	return v.rec[name], nil
}

// Loaded reports whether the relation name can be read.
func (v *View) Loaded(name string) bool {
	_, gated := v.gated[name]
	return v.model.IsRelation(name) && !gated
}

// One returns an included singular relation. The result is nil when the
// foreign key is null or was not selected.
func (v *View) One(name string) (*View, error) {
	val, err := v.Relation(name)
	if err != nil {
		return nil, err
	}
	switch t := val.(type) {
	case nil:
		return nil, nil
	case *View:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s holds %T", types.ErrInvalidData, v.model.EntityType(), name, val)
	}
}

// Many returns an included collection relation.
func (v *View) Many(name string) ([]*View, error) {
	val, err := v.Relation(name)
	if err != nil {
		return nil, err
	}
	switch t := val.(type) {
	case nil:
		return nil, nil
	case []*View:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s holds %T", types.ErrInvalidData, v.model.EntityType(), name, val)
	}
}

// Set assigns a scalar field or a relation. Assigning a gated relation
// makes it readable.
func (v *View) Set(name string, value any) error {
	if !v.model.HasField(name) && !v.model.IsRelation(name) {
		return fmt.Errorf("%w: %s.%s", types.ErrUnknownField, v.model.EntityType(), name)
	}
	v.rec[name] = value
	delete(v.gated, name)
	return nil
}

// Record returns a shallow copy of the loaded scalar fields and readable
// relations. It can be passed back to a Repository.
func (v *View) Record() types.Record {
	return v.rec.Clone()
}

// MarshalJSON encodes the loaded fields and readable relations as one
// object. Included relations that resolved to nothing encode as null.
func (v *View) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.rec)+len(v.model.Relations()))
	for k, val := range v.rec {
		out[k] = val
	}
	for _, rel := range v.model.Relations() {
		if _, gated := v.gated[rel.Name]; gated {
			continue
		}
		if _, ok := out[rel.Name]; !ok {
			out[rel.Name] = nil
		}
	}
	return json.Marshal(out)
}
