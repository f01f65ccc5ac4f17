package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Registry holds every Model known to the process, keyed by entity type and
// by table name. Models cannot be removed once registered. A Registry is
// created once at startup and passed to every larder.DB that uses it.
type Registry struct {
	mu      sync.RWMutex
	byType  map[string]*Model
	byTable map[string]*Model
	order   []*Model
}

// Backref is a collection relation declared on Owner whose target is some
// other table.
type Backref struct {
	Owner    *Model
	Relation Relation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:  make(map[string]*Model),
		byTable: make(map[string]*Model),
	}
}

// Register adds models to the registry. It fails with ErrSchemaExists when
// an entity type is already registered and with ErrTableCollision when the
// table already belongs to another entity type.
func (r *Registry) Register(models ...*Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range models {
		if m == nil {
			return fmt.Errorf("%w: nil model", types.ErrInvalidSchema)
		}
		if _, ok := r.byType[m.entityType]; ok {
			return fmt.Errorf("%w: %s", types.ErrSchemaExists, m.entityType)
		}
		if owner, ok := r.byTable[m.table]; ok {
			return fmt.Errorf("%w: table %q belongs to %s", types.ErrTableCollision, m.table, owner.entityType)
		}
		r.byType[m.entityType] = m
		r.byTable[m.table] = m
		r.order = append(r.order, m)
	}
	return nil
}

// For returns the Model registered for entityType.
func (r *Registry) For(entityType string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byType[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: entity type %s", types.ErrSchemaNotFound, entityType)
	}
	return m, nil
}

// ForTable returns the Model stored in table.
func (r *Registry) ForTable(table string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byTable[table]
	if !ok {
		return nil, fmt.Errorf("%w: table %s", types.ErrSchemaNotFound, table)
	}
	return m, nil
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Model, len(r.order))
	copy(out, r.order)
	return out
}

// Tables returns the registered table names in registration order.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	for i, m := range r.order {
		out[i] = m.table
	}
	return out
}

// Backrefs returns the collection relations, declared on any registered
// model, whose target is table.
func (r *Registry) Backrefs(table string) []Backref {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Backref
	for _, m := range r.order {
		for _, rel := range m.relations {
			if rel.Cardinality == Many && rel.Target == table {
				out = append(out, Backref{Owner: m, Relation: rel})
			}
		}
	}
	return out
}

// Validate checks references between registered models: every relation
// target must be a registered table and every collection foreign key must be
// a scalar field of its target. Cycles between models are allowed.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, m := range r.order {
		for _, rel := range m.relations {
			target, ok := r.byTable[rel.Target]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: relation %s.%s targets unknown table %q",
					types.ErrInvalidSchema, m.entityType, rel.Name, rel.Target))
				continue
			}
			if rel.Cardinality == Many && !target.HasField(rel.ForeignKey) {
				errs = append(errs, fmt.Errorf("%w: relation %s.%s needs field %q on %s",
					types.ErrInvalidSchema, m.entityType, rel.Name, rel.ForeignKey, target.entityType))
			}
		}
	}
	return errors.Join(errs...)
}
