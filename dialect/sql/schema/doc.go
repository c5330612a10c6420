// Package schema is the physical database modeler. It expands the
// relations of a linked schema into foreign keys and junction tables,
// maps fields to MySQL columns and emits the DDL scripts.
//
// The modeler works on a clone of the logical schema: the DAO generator
// keeps using the schema as declared.
//
// Modeling runs in two phases. The first phase expands relations and
// reduces entity features, registering deferred actions (extra indexes,
// table options) on a queue. The second phase builds the tables and
// drains the queue in registration order.
package schema
