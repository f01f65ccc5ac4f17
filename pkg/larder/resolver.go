package larder

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// resolve attaches the relations named at the top of q's include map to rec
// and wraps the result in a View.
//
// A collection is loaded from the bucket keyed by rec's identifier. A
// singular relation is loaded by its foreign key; when the key was not
// loaded the relation is left empty.
func (q *Query) resolve(ctx context.Context, rec types.Record) (*View, error) {
	for _, name := range q.includes.Keys() {
		rel, ok := q.model.Relation(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no relation %q", types.ErrInvalidInclude, q.model.EntityType(), name)
		}
		target, err := q.db.reg.ForTable(rel.Target)
		if err != nil {
			return nil, fmt.Errorf("relation %s.%s: %w", q.model.EntityType(), name, err)
		}
		sub := newQuery(q.db, target, q.includes.Child(name))

		switch rel.Cardinality {
		case schema.Many:
			id, ok := rec[q.model.Identifier()]
			if !ok {
				continue
			}
			ids, err := q.db.fc.RelationIndex(ctx, q.model.Table(), rel.Target, rel.ForeignKey, id)
			if err != nil {
				return nil, err
			}
			views, err := sub.getByIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("including %s.%s: %w", q.model.EntityType(), name, err)
			}
			rec[name] = views
		case schema.One:
			fk, ok := rec[rel.ForeignKey]
			if !ok {
				continue
			}
			if fk == nil {
				rec[name] = nil
				continue
			}
			v, err := sub.getByID(ctx, fk)
			if err != nil {
				return nil, fmt.Errorf("including %s.%s: %w", q.model.EntityType(), name, err)
			}
			rec[name] = v
		}
	}
	return newView(q.model, rec, q.includes), nil
}
