package types

import "errors"

// Configuration errors. These are returned while building and registering
// schemas and never indicate a problem with stored data.
var (
	ErrSchemaExists   = errors.New("schema already registered")
	ErrTableCollision = errors.New("table name already used by another entity type")
	ErrSchemaNotFound = errors.New("schema not found")
	ErrInvalidSchema  = errors.New("invalid schema")
)

// Constraint violations.
var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrMissingIdentifier   = errors.New("entity has no identifier")
	ErrUnknownField        = errors.New("unknown scalar field")
	ErrInvalidInclude      = errors.New("invalid include")
	ErrInvalidIncludeChain = errors.New("invalid include chain")
	ErrRelationalFilter    = errors.New("cannot filter on a relational field")
	ErrNoRows              = errors.New("no rows match")
	ErrMultipleRows        = errors.New("more than one row matches")
)

// Read errors.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrRelationNotLoaded = errors.New("relation was not included")
	ErrInvalidData       = errors.New("invalid entity data")
)

// ErrStoreClosed is returned by backend operations after Close.
var ErrStoreClosed = errors.New("store is closed")
