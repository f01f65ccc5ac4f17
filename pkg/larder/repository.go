package larder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/facade"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Repository writes and deletes entities of one type.
type Repository struct {
	db    *DB
	model *schema.Model
}

// Model returns the schema the repository is bound to.
func (r *Repository) Model() *schema.Model { return r.model }

// Queryable starts a new query over the repository's table.
func (r *Repository) Queryable() *Query {
	return newQuery(r.db, r.model, nil)
}

// Create stores a new entity. Related objects carried by rec are written
// first. It fails with types.ErrDuplicateIdentifier when the identifier is
// already stored. Generated identifiers are assigned back onto rec.
func (r *Repository) Create(ctx context.Context, rec types.Record) (err error) {
	ctx, span := startSpan(ctx, "larder.Create", r.model.Table())
	defer func() { endSpan(span, err) }()
	return r.create(ctx, rec, visited{})
}

// Update rewrites every scalar field of an existing entity and cascades into
// the related objects carried by rec. Fields absent from rec are cleared.
func (r *Repository) Update(ctx context.Context, rec types.Record) (err error) {
	ctx, span := startSpan(ctx, "larder.Update", r.model.Table())
	defer func() { endSpan(span, err) }()
	return r.update(ctx, rec, visited{})
}

// CreateOrUpdate creates rec when its identifier is not stored yet and
// updates it otherwise.
func (r *Repository) CreateOrUpdate(ctx context.Context, rec types.Record) (err error) {
	ctx, span := startSpan(ctx, "larder.CreateOrUpdate", r.model.Table())
	defer func() { endSpan(span, err) }()
	return r.upsert(ctx, rec, visited{})
}

// Delete removes the entity identified by rec along with its scalar keys
// and its relation index entries. Related entities are kept. Deleting an
// entity that is not stored succeeds.
func (r *Repository) Delete(ctx context.Context, rec types.Record) (err error) {
	ctx, span := startSpan(ctx, "larder.Delete", r.model.Table())
	defer func() { endSpan(span, err) }()

	id, ok := rec[r.model.Identifier()]
	if !ok || isEmptyID(id) {
		return fmt.Errorf("%w: %s", types.ErrMissingIdentifier, r.model.EntityType())
	}
	return r.delete(ctx, id)
}

// DeleteByID removes the entity with identifier id.
func (r *Repository) DeleteByID(ctx context.Context, id any) (err error) {
	ctx, span := startSpan(ctx, "larder.DeleteByID", r.model.Table())
	defer func() { endSpan(span, err) }()
	return r.delete(ctx, id)
}

func (r *Repository) create(ctx context.Context, rec types.Record, seen visited) error {
	id, err := r.identify(rec, true)
	if err != nil {
		return err
	}
	table := r.model.Table()
	exists, err := r.db.fc.HasTableIndex(ctx, table, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s %s", types.ErrDuplicateIdentifier, table, facade.KeyString(id))
	}
	seen.mark(table, id)

	if err := r.cascade(ctx, rec, id, seen); err != nil {
		return err
	}
	if err := r.indexLinks(ctx, rec, id, false); err != nil {
		return err
	}
	if err := r.db.fc.AddTableIndex(ctx, table, id); err != nil {
		return err
	}
	if err := r.writeScalars(ctx, rec, id); err != nil {
		return err
	}
	r.db.logger.Debug("created", zap.String("table", table), zap.String("id", facade.KeyString(id)))
	return nil
}

func (r *Repository) update(ctx context.Context, rec types.Record, seen visited) error {
	id, err := r.identify(rec, false)
	if err != nil {
		return err
	}
	table := r.model.Table()
	seen.mark(table, id)

	if err := r.cascade(ctx, rec, id, seen); err != nil {
		return err
	}
	if err := r.indexLinks(ctx, rec, id, true); err != nil {
		return err
	}
	if err := r.writeScalars(ctx, rec, id); err != nil {
		return err
	}
	r.db.logger.Debug("updated", zap.String("table", table), zap.String("id", facade.KeyString(id)))
	return nil
}

func (r *Repository) upsert(ctx context.Context, rec types.Record, seen visited) error {
	id, ok := rec[r.model.Identifier()]
	if !ok || isEmptyID(id) {
		return r.create(ctx, rec, seen)
	}
	exists, err := r.db.fc.HasTableIndex(ctx, r.model.Table(), id)
	if err != nil {
		return err
	}
	if exists {
		return r.update(ctx, rec, seen)
	}
	return r.create(ctx, rec, seen)
}

func (r *Repository) delete(ctx context.Context, id any) error {
	table := r.model.Table()
	exists, err := r.db.fc.HasTableIndex(ctx, table, id)
	if err != nil || !exists {
		return err
	}

	// Foreign keys are read before the scalar keys go away.
	links := r.links()
	values := make([]any, len(links))
	for i, l := range links {
		v, _, err := r.db.fc.ReadField(ctx, table, id, l.fk)
		if err != nil {
			return err
		}
		values[i] = v
	}

	if err := r.db.fc.RemoveTableIndex(ctx, table, id); err != nil {
		return err
	}
	for _, field := range r.model.Fields() {
		if err := r.db.fc.RemoveField(ctx, table, id, field); err != nil {
			return err
		}
	}
	for i, l := range links {
		if values[i] == nil && !l.always {
			continue
		}
		if err := r.db.fc.RemoveRelationIndex(ctx, l.dest, table, l.fk, values[i], id); err != nil {
			return err
		}
	}
	for _, rel := range r.model.Relations() {
		if rel.Cardinality != schema.Many {
			continue
		}
		if err := r.db.fc.RemoveRelationIndexRecord(ctx, table, rel.Target, rel.ForeignKey, id); err != nil {
			return err
		}
	}
	r.db.logger.Debug("deleted", zap.String("table", table), zap.String("id", facade.KeyString(id)))
	return nil
}

// identify returns the identifier of rec, generating one when the model
// allows it and generate is set.
func (r *Repository) identify(rec types.Record, generate bool) (any, error) {
	field := r.model.Identifier()
	id, ok := rec[field]
	if ok && !isEmptyID(id) {
		return id, nil
	}
	if generate && r.model.GeneratesIdentifiers() {
		gen, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating identifier: %w", err)
		}
		rec[field] = gen.String()
		return rec[field], nil
	}
	return nil, fmt.Errorf("%w: %s.%s", types.ErrMissingIdentifier, r.model.EntityType(), field)
}

// writeScalars writes every scalar field of rec. Absent fields are written
// as null.
func (r *Repository) writeScalars(ctx context.Context, rec types.Record, id any) error {
	table := r.model.Table()
	for _, field := range r.model.Fields() {
		v := rec[field]
		if field == r.model.Identifier() {
			v = id
		}
		if err := r.db.fc.WriteField(ctx, table, id, field, v); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyID(id any) bool {
	if id == nil {
		return true
	}
	s, ok := id.(string)
	return ok && s == ""
}

// visited records the entities already written by one top-level call so a
// cyclic object graph is written once.
type visited map[string]struct{}

func visitKey(table string, id any) string {
	return table + "\x00" + facade.KeyString(id)
}

func (v visited) mark(table string, id any) { v[visitKey(table, id)] = struct{}{} }

func (v visited) has(table string, id any) bool {
	_, ok := v[visitKey(table, id)]
	return ok
}
