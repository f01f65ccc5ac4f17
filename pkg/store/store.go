// Package store defines the raw key-value contract larder is built on.
// Backends implement Store; everything above it sees only string keys and
// serialized string values.
package store

import (
	"context"
	"strings"
)

// Store is a flat key-value medium. Keys passed to a Store are unprefixed;
// the backend adds its own namespace before touching the medium.
type Store interface {
	// Write stores value at key, replacing any previous value.
	Write(ctx context.Context, key, value string) error

	// Read returns the value at key. ok is false when the key is absent.
	Read(ctx context.Context, key string) (value string, ok bool, err error)

	// Remove deletes key. Removing an absent key succeeds.
	Remove(ctx context.Context, key string) error

	// DumpAll returns every key carrying the backend's namespace, mapped to
	// its raw serialized value. Keys in the dump are fully prefixed.
	DumpAll(ctx context.Context) (Dump, error)

	// LoadAll restores the keys in dump that carry the backend's namespace,
	// overwriting existing values. Other keys are ignored.
	LoadAll(ctx context.Context, dump Dump) error

	// Close releases the backend's resources.
	Close() error
}

// Dump maps fully prefixed keys to serialized values.
type Dump map[string]string

// Namespace prefixes keys for one backend.
type Namespace struct {
	Prefix string
}

// Key returns the prefixed form of key.
func (n Namespace) Key(key string) string {
	return n.Prefix + key
}

// Owns reports whether a prefixed key belongs to this namespace.
func (n Namespace) Owns(full string) bool {
	return strings.HasPrefix(full, n.Prefix)
}

// Strip removes the namespace prefix from full.
func (n Namespace) Strip(full string) string {
	return strings.TrimPrefix(full, n.Prefix)
}

// Filter returns the entries of dump that belong to this namespace.
func (n Namespace) Filter(dump Dump) Dump {
	out := make(Dump, len(dump))
	for k, v := range dump {
		if n.Owns(k) {
			out[k] = v
		}
	}
	return out
}
