// Package schema describes entity types for larder: the identifier field,
// the scalar fields persisted verbatim, and the relations to other entity
// types. Models are declared by hand with a Builder and collected in a
// Registry that lives for the whole process.
//
//	person := schema.New("Person").
//		Table("people").
//		Identifier("id").
//		Fields("name").
//		HasMany("address", "addresses", "personId").
//		MustBuild()
//
//	address := schema.New("Address").
//		Table("addresses").
//		Identifier("id").
//		Fields("street").
//		HasOne("person", "people", "personId").
//		MustBuild()
//
//	reg := schema.NewRegistry()
//	_ = reg.Register(person)
//	_ = reg.Register(address)
//	_ = reg.Validate()
package schema
