package larder

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// errStop ends an iteration early without failing it.
var errStop = errors.New("stop")

type condition struct {
	field string
	pred  Predicate
}

// ConditionalQuery is a Query restricted to entities that satisfy every
// condition. Conditions are evaluated by reading each field from the store,
// one read per condition per candidate.
type ConditionalQuery struct {
	q     *Query
	conds []condition
	err   error
}

// Where adds a condition. All conditions must hold.
func (c *ConditionalQuery) Where(field string, pred Predicate) *ConditionalQuery {
	if c.err != nil {
		return c
	}
	m := c.q.model
	switch {
	case m.IsRelation(field):
		c.err = fmt.Errorf("%w: %s.%s", types.ErrRelationalFilter, m.EntityType(), field)
	case !m.HasField(field):
		c.err = fmt.Errorf("%w: %s.%s", types.ErrUnknownField, m.EntityType(), field)
	case pred == nil:
		c.err = fmt.Errorf("%w: nil predicate for %s.%s", types.ErrInvalidData, m.EntityType(), field)
	default:
		c.conds = append(c.conds, condition{field: field, pred: pred})
	}
	return c
}

// GetAll returns every matching entity in identifier index order.
func (c *ConditionalQuery) GetAll(ctx context.Context) ([]*View, error) {
	return c.Select(ctx)
}

// Select returns every matching entity with only the given scalar fields
// loaded. With no fields every scalar field is loaded. A singular relation
// is attached only when its foreign key is among the fields.
func (c *ConditionalQuery) Select(ctx context.Context, fields ...string) (_ []*View, err error) {
	ctx, span := startSpan(ctx, "larder.Select", c.q.model.Table())
	defer func() { endSpan(span, err) }()
	if c.err != nil {
		return nil, c.err
	}
	if len(fields) == 0 {
		fields = c.q.model.Fields()
	}
	for _, f := range fields {
		if !c.q.model.HasField(f) {
			return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, c.q.model.EntityType(), f)
		}
	}
	out := []*View{}
	err = c.each(ctx, func(id any) error {
		v, err := c.q.loadOne(ctx, id, fields)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first matching entity. It fails with types.ErrNotFound
// when none match.
func (c *ConditionalQuery) First(ctx context.Context) (_ *View, err error) {
	ctx, span := startSpan(ctx, "larder.First", c.q.model.Table())
	defer func() { endSpan(span, err) }()
	if c.err != nil {
		return nil, c.err
	}
	var found any
	var hit bool
	err = c.each(ctx, func(id any) error {
		found, hit = id, true
		return errStop
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, fmt.Errorf("%w: no %s matches", types.ErrNotFound, c.q.model.Table())
	}
	return c.q.loadOne(ctx, found, c.q.model.Fields())
}

// Any reports whether at least one entity matches.
func (c *ConditionalQuery) Any(ctx context.Context) (_ bool, err error) {
	ctx, span := startSpan(ctx, "larder.Any", c.q.model.Table())
	defer func() { endSpan(span, err) }()
	if c.err != nil {
		return false, c.err
	}
	var hit bool
	err = c.each(ctx, func(any) error {
		hit = true
		return errStop
	})
	return hit, err
}

// Count returns the number of matching entities.
func (c *ConditionalQuery) Count(ctx context.Context) (_ int, err error) {
	ctx, span := startSpan(ctx, "larder.Count", c.q.model.Table())
	defer func() { endSpan(span, err) }()
	if c.err != nil {
		return 0, c.err
	}
	n := 0
	err = c.each(ctx, func(any) error {
		n++
		return nil
	})
	return n, err
}

// Single returns the only matching entity. It fails with types.ErrNoRows
// when none match and with types.ErrMultipleRows when more than one does.
func (c *ConditionalQuery) Single(ctx context.Context) (_ *View, err error) {
	ctx, span := startSpan(ctx, "larder.Single", c.q.model.Table())
	defer func() { endSpan(span, err) }()
	if c.err != nil {
		return nil, c.err
	}
	var ids []any
	err = c.each(ctx, func(id any) error {
		ids = append(ids, id)
		if len(ids) > 1 {
			return errStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", types.ErrNoRows, c.q.model.Table())
	case 1:
		return c.q.loadOne(ctx, ids[0], c.q.model.Fields())
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrMultipleRows, c.q.model.Table())
	}
}

// each calls fn for every matching identifier in index order. fn returns
// errStop to end the walk.
func (c *ConditionalQuery) each(ctx context.Context, fn func(id any) error) error {
	ids, err := c.q.db.fc.TableIndex(ctx, c.q.model.Table())
	if err != nil {
		return err
	}
	for _, id := range ids {
		ok, err := c.matches(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(id); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *ConditionalQuery) matches(ctx context.Context, id any) (bool, error) {
	for _, cond := range c.conds {
		v, _, err := c.q.db.fc.ReadField(ctx, c.q.model.Table(), id, cond.field)
		if err != nil {
			return false, err
		}
		if !cond.pred(v) {
			return false, nil
		}
	}
	return true, nil
}
