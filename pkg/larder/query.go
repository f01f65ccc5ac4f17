package larder

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/larder/internal/facade"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Query reads entities of one type. Include and ThenInclude build the tree
// of relations to load; a malformed chain is reported by the terminal call.
type Query struct {
	db       *DB
	model    *schema.Model
	includes *IncludeMap
	pointer  []string
	err      error
}

func newQuery(db *DB, model *schema.Model, includes *IncludeMap) *Query {
	if includes == nil {
		includes = &IncludeMap{}
	}
	return &Query{db: db, model: model, includes: includes}
}

// Include adds a top-level relation and points ThenInclude at it.
func (q *Query) Include(relation string) *Query {
	if q.err != nil {
		return q
	}
	q.includes.add(relation)
	q.pointer = []string{relation}
	return q
}

// ThenInclude adds relation below the relation most recently included.
func (q *Query) ThenInclude(relation string) *Query {
	if q.err != nil {
		return q
	}
	if len(q.pointer) == 0 {
		q.err = fmt.Errorf("%w: ThenInclude(%q) before Include", types.ErrInvalidIncludeChain, relation)
		return q
	}
	node, ok := q.includes.walk(q.pointer)
	if !ok {
		q.err = fmt.Errorf("%w: path %v not in include map", types.ErrInvalidIncludeChain, q.pointer)
		return q
	}
	node.add(relation)
	q.pointer = append(slices.Clone(q.pointer), relation)
	return q
}

// IncludePaths adds every dotted path in paths, as parsed by ParseIncludes.
func (q *Query) IncludePaths(paths ...string) *Query {
	if q.err != nil {
		return q
	}
	q.includes.merge(ParseIncludes(paths...))
	return q
}

// Includes returns the include tree built so far.
func (q *Query) Includes() *IncludeMap { return q.includes }

// Err returns the error recorded while building the chain.
func (q *Query) Err() error { return q.err }

// GetByID returns the entity with identifier id. It fails with
// types.ErrNotFound when id is not stored.
func (q *Query) GetByID(ctx context.Context, id any) (_ *View, err error) {
	ctx, span := startSpan(ctx, "larder.GetByID", q.model.Table())
	defer func() { endSpan(span, err) }()
	if q.err != nil {
		return nil, q.err
	}
	return q.getByID(ctx, id)
}

// GetByIDs returns the entities with the given identifiers in order. It
// fails as a whole when any of them is not stored.
func (q *Query) GetByIDs(ctx context.Context, ids []any) (_ []*View, err error) {
	ctx, span := startSpan(ctx, "larder.GetByIDs", q.model.Table())
	defer func() { endSpan(span, err) }()
	if q.err != nil {
		return nil, q.err
	}
	return q.getByIDs(ctx, ids)
}

// GetAll returns every stored entity in identifier index order.
func (q *Query) GetAll(ctx context.Context) (_ []*View, err error) {
	ctx, span := startSpan(ctx, "larder.GetAll", q.model.Table())
	defer func() { endSpan(span, err) }()
	if q.err != nil {
		return nil, q.err
	}
	ids, err := q.db.fc.TableIndex(ctx, q.model.Table())
	if err != nil {
		return nil, err
	}
	return q.loadAll(ctx, ids, q.model.Fields())
}

// Where starts a filtered query. field must be a scalar field.
func (q *Query) Where(field string, pred Predicate) *ConditionalQuery {
	c := &ConditionalQuery{q: q, err: q.err}
	return c.Where(field, pred)
}

func (q *Query) getByID(ctx context.Context, id any) (*View, error) {
	ok, err := q.db.fc.HasTableIndex(ctx, q.model.Table(), id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", types.ErrNotFound, q.model.Table(), facade.KeyString(id))
	}
	return q.loadOne(ctx, id, q.model.Fields())
}

func (q *Query) getByIDs(ctx context.Context, ids []any) ([]*View, error) {
	if len(ids) == 0 {
		return []*View{}, nil
	}
	stored, err := q.db.fc.TableIndex(ctx, q.model.Table())
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		present[facade.KeyString(id)] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[facade.KeyString(id)]; !ok {
			return nil, fmt.Errorf("%w: %s %s", types.ErrNotFound, q.model.Table(), facade.KeyString(id))
		}
	}
	return q.loadAll(ctx, ids, q.model.Fields())
}

func (q *Query) loadAll(ctx context.Context, ids []any, fields []string) ([]*View, error) {
	out := make([]*View, 0, len(ids))
	for _, id := range ids {
		v, err := q.loadOne(ctx, id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// loadOne reads fields of id, skipping null values, and attaches includes.
func (q *Query) loadOne(ctx context.Context, id any, fields []string) (*View, error) {
	rec := make(types.Record, len(fields))
	for _, field := range fields {
		v, ok, err := q.db.fc.ReadField(ctx, q.model.Table(), id, field)
		if err != nil {
			return nil, err
		}
		if !ok || v == nil {
			continue
		}
		rec[field] = v
	}
	return q.resolve(ctx, rec)
}
