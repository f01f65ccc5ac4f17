// Package larder stores typed entities and their relations in a flat
// key-value store.
//
// Entities are described by schema.Model values registered in a
// schema.Registry. A DB binds a registry to a store.Store and hands out one
// Repository per entity type. Repositories write entities, cascade into
// related entities and keep the identifier and relation indexes current.
// Reads go through a Query, which loads scalar fields and attaches the
// relations named by Include and ThenInclude:
//
//	db := larder.New(st, reg)
//	people, _ := db.Repository("Person")
//	p, err := people.Queryable().Include("address").GetByID(ctx, 1)
//	addrs, err := p.Many("address")
//
// Every fetched entity is returned as a *View. Reading a relation that was
// not included fails with types.ErrRelationNotLoaded.
package larder
