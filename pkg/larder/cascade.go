package larder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/facade"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// cascade upserts the related objects carried by rec. Singular objects are
// written first and lend their identifier to an empty foreign key.
// Collection members receive the owner's identifier as their foreign key.
func (r *Repository) cascade(ctx context.Context, rec types.Record, id any, seen visited) error {
	for _, rel := range r.model.Relations() {
		target, err := r.db.RepositoryForTable(rel.Target)
		if err != nil {
			return fmt.Errorf("relation %s.%s: %w", r.model.EntityType(), rel.Name, err)
		}
		switch rel.Cardinality {
		case schema.One:
			obj, ok := recordOf(rec[rel.Name])
			if !ok {
				continue
			}
			if err := target.cascadeOne(ctx, obj, seen); err != nil {
				return err
			}
			if isEmptyID(rec[rel.ForeignKey]) {
				rec[rel.ForeignKey] = obj[target.model.Identifier()]
			}
		case schema.Many:
			members, err := recordsOf(rec[rel.Name])
			if err != nil {
				return fmt.Errorf("relation %s.%s: %w", r.model.EntityType(), rel.Name, err)
			}
			for _, member := range members {
				member[rel.ForeignKey] = id
				if err := target.cascadeOne(ctx, member, seen); err != nil {
					return err
				}
			}
			if len(members) > 0 {
				r.db.logger.Debug("cascaded collection",
					zap.String("table", r.model.Table()),
					zap.String("relation", rel.Name),
					zap.Int("members", len(members)))
			}
		}
	}
	return nil
}

// cascadeOne upserts obj unless this call already wrote it.
func (r *Repository) cascadeOne(ctx context.Context, obj types.Record, seen visited) error {
	if id, ok := obj[r.model.Identifier()]; ok && !isEmptyID(id) && seen.has(r.model.Table(), id) {
		return nil
	}
	return r.upsert(ctx, obj, seen)
}

// link is one relation index an entity of this table belongs to: the bucket
// (dest, table, fk, value of fk).
type link struct {
	dest   string
	fk     string
	always bool // indexed under "null" when the foreign key is empty
}

// links lists the buckets entities of this table are indexed in. Singular
// relations come first. Collection relations declared on other models that
// target this table add their bucket unless a singular relation already
// uses the same key.
func (r *Repository) links() []link {
	var out []link
	seen := make(map[string]bool)
	for _, rel := range r.model.Relations() {
		if rel.Cardinality != schema.One {
			continue
		}
		k := rel.Target + "\x00" + rel.ForeignKey
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, link{dest: rel.Target, fk: rel.ForeignKey, always: true})
	}
	for _, br := range r.db.reg.Backrefs(r.model.Table()) {
		k := br.Owner.Table() + "\x00" + br.Relation.ForeignKey
		if seen[k] || !r.model.HasField(br.Relation.ForeignKey) {
			continue
		}
		seen[k] = true
		out = append(out, link{dest: br.Owner.Table(), fk: br.Relation.ForeignKey})
	}
	return out
}

// indexLinks adds id to the bucket of every link. When moved is set the
// stored foreign key is compared first and id leaves the bucket of a value
// that changed.
func (r *Repository) indexLinks(ctx context.Context, rec types.Record, id any, moved bool) error {
	table := r.model.Table()
	for _, l := range r.links() {
		value := rec[l.fk]
		if moved {
			old, ok, err := r.db.fc.ReadField(ctx, table, id, l.fk)
			if err != nil {
				return err
			}
			if ok && facade.KeyString(old) != facade.KeyString(value) {
				if err := r.db.fc.RemoveRelationIndex(ctx, l.dest, table, l.fk, old, id); err != nil {
					return err
				}
			}
		}
		if value == nil && !l.always {
			continue
		}
		if err := r.db.fc.AddRelationIndex(ctx, l.dest, table, l.fk, value, id); err != nil {
			return err
		}
	}
	return nil
}

// recordOf returns v as a record when it is a populated related object.
func recordOf(v any) (types.Record, bool) {
	switch t := v.(type) {
	case types.Record:
		return t, t != nil
	case map[string]any:
		return types.Record(t), t != nil
	case *View:
		if t == nil {
			return nil, false
		}
		return t.rec, true
	default:
		return nil, false
	}
}

// recordsOf returns the members of a collection value. nil yields no
// members.
func recordsOf(v any) ([]types.Record, error) {
	var out []types.Record
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []types.Record:
		out = t
	case []map[string]any:
		for _, m := range t {
			out = append(out, types.Record(m))
		}
	case []*View:
		for _, view := range t {
			if view != nil {
				out = append(out, view.rec)
			}
		}
	case []any:
		for _, item := range t {
			rec, ok := recordOf(item)
			if !ok {
				return nil, fmt.Errorf("%w: collection member of type %T", types.ErrInvalidData, item)
			}
			out = append(out, rec)
		}
	default:
		return nil, fmt.Errorf("%w: collection of type %T", types.ErrInvalidData, v)
	}
	for _, rec := range out {
		if rec == nil {
			return nil, fmt.Errorf("%w: nil collection member", types.ErrInvalidData)
		}
	}
	return out, nil
}
