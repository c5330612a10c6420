// Package runtime is the contract generated data access code compiles
// against. It carries the payload of a write, the metadata of an entity
// and the small helpers the expression language compiles to.
//
// It is not an ORM: the DB interface is implemented by the host
// application.
package runtime
