// Package builtin holds the validators, modifiers and functions schemas
// can use without declaring them. Generated code calls them by the
// identifier Ident returns: |isEmail compiles to IsEmail.
package builtin

import "github.com/oolong-dev/oolong/internal/naming"

type (
	// Validator reports whether v passes. Except for notEmpty, a nil value
	// passes every validator; presence is checked by the field constraints.
	Validator func(v any, args ...any) bool
	// Modifier returns v transformed. A nil value is returned unchanged.
	Modifier func(v any, args ...any) any
	// Function computes a value from its arguments.
	Function func(args ...any) any
)

// Builtins by schema name.
var (
	Validators = map[string]Validator{
		"isEmail":        IsEmail,
		"isURL":          IsURL,
		"isUUID":         IsUUID,
		"isAlpha":        IsAlpha,
		"isAlphanumeric": IsAlphanumeric,
		"isNumeric":      IsNumeric,
		"isLength":       IsLength,
		"minLength":      MinLength,
		"maxLength":      MaxLength,
		"matches":        Matches,
		"isIn":           IsIn,
		"min":            Min,
		"max":            Max,
		"notEmpty":       NotEmpty,
	}

	Modifiers = map[string]Modifier{
		"trim":         Trim,
		"toLower":      ToLower,
		"toUpper":      ToUpper,
		"toInt":        ToInt,
		"toFloat":      ToFloat,
		"toString":     ToString,
		"truncate":     Truncate,
		"slugify":      Slugify,
		"hashPassword": HashPassword,
	}

	Functions = map[string]Function{
		"uuid": UUID,
		"now":  Now,
	}
)

var initialisms = map[string]string{"uuid": "UUID"}

// Ident returns the Go identifier of the builtin named name.
func Ident(name string) string {
	if id, ok := initialisms[name]; ok {
		return id
	}
	return naming.Pascal(name)
}
