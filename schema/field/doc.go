// Package field describes entity fields of the Oolong IR: their resolved
// type information and the validator/modifier pipelines attached to them.
//
// A field declared in the DSL as
//
//	email:
//	  type: text
//	  maxLength: 200
//	  validators0: [isEmail]
//	  modifiers0: [trim]
//
// decodes into a Field whose TypeInfo is {Type: text, MaxLength: 200} and
// whose first validator and modifier stages hold one functor each.
//
// # Pipelines
//
// Every field carries four ordered stages executed in this order:
//
//	Validators0 -> Modifiers0 -> Validators1 -> Modifiers1
//
// Stage 0 runs before the business-rule insertion point, stage 1 after it.
package field
