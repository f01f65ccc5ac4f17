// Package facade maps larder's tables, identifier indexes and relation
// indexes onto a flat store.Store. It owns the key layout and the
// read-modify-write of every index.
package facade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Facade reads and writes entity fields and indexes through a Store.
type Facade struct {
	st     store.Store
	reg    *schema.Registry
	locks  *keyLocks
	logger *zap.Logger
}

// New creates a Facade over st. Field keys are validated against reg.
func New(st store.Store, reg *schema.Registry, logger *zap.Logger) *Facade {
	return &Facade{
		st:     st,
		reg:    reg,
		locks:  newKeyLocks(),
		logger: logging.OrNop(logger),
	}
}

// Store returns the underlying store.
func (f *Facade) Store() store.Store { return f.st }

// readIDs returns the identifier list at key and whether the key exists.
func (f *Facade) readIDs(ctx context.Context, key string) ([]any, bool, error) {
	raw, ok, err := f.st.Read(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	ids, err := decodeIDs(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return ids, true, nil
}

// writeIDs stores ids at key, removing the key when ids is empty.
func (f *Facade) writeIDs(ctx context.Context, key string, ids []any) error {
	if len(ids) == 0 {
		return f.st.Remove(ctx, key)
	}
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	return f.st.Write(ctx, key, raw)
}

// TableIndex returns the identifiers stored in table in insertion order.
// It returns an empty slice when the table has never been written.
func (f *Facade) TableIndex(ctx context.Context, table string) ([]any, error) {
	ids, _, err := f.readIDs(ctx, TableIndexKey(table))
	if err != nil {
		return nil, fmt.Errorf("reading index of %s: %w", table, err)
	}
	if ids == nil {
		ids = []any{}
	}
	return ids, nil
}

// HasTableIndex reports whether id is in the identifier index of table.
func (f *Facade) HasTableIndex(ctx context.Context, table string, id any) (bool, error) {
	ids, err := f.TableIndex(ctx, table)
	if err != nil {
		return false, err
	}
	return indexOf(ids, id) >= 0, nil
}

// AddTableIndex appends id to the identifier index of table. It fails with
// ErrDuplicateIdentifier when id is already present.
func (f *Facade) AddTableIndex(ctx context.Context, table string, id any) error {
	key := TableIndexKey(table)
	unlock := f.locks.lock(key)
	defer unlock()

	ids, _, err := f.readIDs(ctx, key)
	if err != nil {
		return fmt.Errorf("reading index of %s: %w", table, err)
	}
	if indexOf(ids, id) >= 0 {
		return fmt.Errorf("%w: %s %s", types.ErrDuplicateIdentifier, table, KeyString(id))
	}
	if err := f.writeIDs(ctx, key, append(ids, id)); err != nil {
		return fmt.Errorf("writing index of %s: %w", table, err)
	}
	f.logger.Debug("table index add", zap.String("table", table), zap.String("id", KeyString(id)))
	return nil
}

// RemoveTableIndex removes id from the identifier index of table. Removing
// an absent id succeeds.
func (f *Facade) RemoveTableIndex(ctx context.Context, table string, id any) error {
	key := TableIndexKey(table)
	unlock := f.locks.lock(key)
	defer unlock()

	ids, _, err := f.readIDs(ctx, key)
	if err != nil {
		return fmt.Errorf("reading index of %s: %w", table, err)
	}
	i := indexOf(ids, id)
	if i < 0 {
		return nil
	}
	ids = append(ids[:i], ids[i+1:]...)
	if err := f.writeIDs(ctx, key, ids); err != nil {
		return fmt.Errorf("writing index of %s: %w", table, err)
	}
	f.logger.Debug("table index remove", zap.String("table", table), zap.String("id", KeyString(id)))
	return nil
}

// RelationIndex returns the identifiers in src whose foreign key fk, pointing
// at dest, equals value. It returns nil when no such bucket exists.
func (f *Facade) RelationIndex(ctx context.Context, dest, src, fk string, value any) ([]any, error) {
	key := RelationIndexKey(dest, src, fk, value)
	ids, _, err := f.readIDs(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading relation index: %w", err)
	}
	return ids, nil
}

// AddRelationIndex adds id to the bucket for (dest, src, fk, value). Adding
// a member that is already present succeeds without change.
func (f *Facade) AddRelationIndex(ctx context.Context, dest, src, fk string, value, id any) error {
	key := RelationIndexKey(dest, src, fk, value)
	unlock := f.locks.lock(key)
	defer unlock()

	ids, _, err := f.readIDs(ctx, key)
	if err != nil {
		return fmt.Errorf("reading relation index: %w", err)
	}
	if indexOf(ids, id) >= 0 {
		return nil
	}
	if err := f.writeIDs(ctx, key, append(ids, id)); err != nil {
		return fmt.Errorf("writing relation index: %w", err)
	}
	f.logger.Debug("relation index add", zap.String("key", key), zap.String("id", KeyString(id)))
	return nil
}

// RemoveRelationIndex removes id from the bucket for (dest, src, fk, value).
// The bucket is deleted once its last member leaves.
func (f *Facade) RemoveRelationIndex(ctx context.Context, dest, src, fk string, value, id any) error {
	key := RelationIndexKey(dest, src, fk, value)
	unlock := f.locks.lock(key)
	defer unlock()

	ids, ok, err := f.readIDs(ctx, key)
	if err != nil {
		return fmt.Errorf("reading relation index: %w", err)
	}
	if !ok {
		return nil
	}
	i := indexOf(ids, id)
	if i < 0 {
		return nil
	}
	ids = append(ids[:i], ids[i+1:]...)
	if err := f.writeIDs(ctx, key, ids); err != nil {
		return fmt.Errorf("writing relation index: %w", err)
	}
	f.logger.Debug("relation index remove", zap.String("key", key), zap.String("id", KeyString(id)))
	return nil
}

// RemoveRelationIndexRecord deletes the whole bucket for (dest, src, fk, value).
func (f *Facade) RemoveRelationIndexRecord(ctx context.Context, dest, src, fk string, value any) error {
	key := RelationIndexKey(dest, src, fk, value)
	unlock := f.locks.lock(key)
	defer unlock()

	if err := f.st.Remove(ctx, key); err != nil {
		return fmt.Errorf("removing relation index: %w", err)
	}
	f.logger.Debug("relation index dropped", zap.String("key", key))
	return nil
}

// DataKeyFor returns the key of field for id in table. It fails when field
// is not a scalar field of the table's schema.
func (f *Facade) DataKeyFor(table string, id any, field string) (string, error) {
	m, err := f.reg.ForTable(table)
	if err != nil {
		return "", err
	}
	if !m.HasField(field) {
		return "", fmt.Errorf("%w: %s.%s", types.ErrUnknownField, table, field)
	}
	return DataKey(table, id, field), nil
}

// ReadField returns the decoded value of one scalar field. ok is false when
// the key is absent.
func (f *Facade) ReadField(ctx context.Context, table string, id any, field string) (any, bool, error) {
	key, err := f.DataKeyFor(table, id, field)
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := f.st.Read(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

// WriteField stores one scalar field. A nil value is written as null so a
// previously set field is cleared.
func (f *Facade) WriteField(ctx context.Context, table string, id any, field string, value any) error {
	key, err := f.DataKeyFor(table, id, field)
	if err != nil {
		return err
	}
	raw, err := EncodeValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return f.st.Write(ctx, key, raw)
}

// RemoveField deletes one scalar field key.
func (f *Facade) RemoveField(ctx context.Context, table string, id any, field string) error {
	key, err := f.DataKeyFor(table, id, field)
	if err != nil {
		return err
	}
	return f.st.Remove(ctx, key)
}
