// Package gen generates the data access (DAO) code of a linked schema.
//
// # Pipeline
//
// For every entity the generator compiles the four field stages
//
//	validators0 → modifiers0 → validators1 → modifiers1
//
// into a dependency Graph of typed nodes. Each field's stages chain into
// the field end node and every end node sinks into the entity terminal.
// A functor argument referring to another field adds an edge from that
// field's end node, so cross-field dependencies are honored while
// unrelated fields keep their declaration order.
//
// The sorted nodes are merged into Steps: adjacent validators of one
// field become a single && chain and adjacent modifiers a nested call.
//
//	Schema (linked, logical)
//	        ↓
//	   Graph per entity and per interface
//	        ↓
//	   Steps (merged)
//	        ↓
//	   jennifer files + stubs + IR dumps
//
// # Output
//
//   - <entity>.go: model struct, Meta, constructor, PreCreate, PreUpdate
//     and one method per interface.
//   - <entity>.ir.yaml: the compiled steps, for debugging.
//   - validators/, modifiers/, functions/: scaffolding for user functors
//     that do not exist yet. Stubs are never overwritten.
//
// # Error Handling
//
//   - ConfigError: invalid generator options.
//   - oolong.ConflictError: dependency cycles and functors colliding on
//     one identifier.
//   - oolong.LinkError: references to unknown fields or parameters.
package gen
