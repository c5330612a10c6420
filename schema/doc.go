// Package schema holds the in-memory IR of the Oolong compiler.
//
// The IR is made of the following nodes:
//
//   - [Module]: one parsed DSL unit with its expanded search path
//   - [Entity]: a modeled record type, owned by a module
//   - [field.Field]: a typed attribute with its pipelines (see [field])
//   - [Schema]: the set of entities and relations a compilation targets
//   - [Relation]: an association between two schema entities
//
// # Identity
//
// An entity is identified by its instance name inside a schema (the alias
// it was registered under) and by its id, name@moduleId. A schema rejects
// a second registration of either.
//
// # Cloning
//
// Schema.Clone copies the graph through an old-to-new entity map so the
// relations of the copy point at the copied entities. The physical DB
// modeler mutates a clone and leaves the logical schema intact.
package schema
