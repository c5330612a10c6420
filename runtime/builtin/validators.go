package builtin

import (
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/oolong-dev/oolong/runtime"
)

var validate = validator.New()

func tag(v any, t string) bool {
	if runtime.IsNull(v) {
		return true
	}
	s, err := cast.ToStringE(v)
	return err == nil && validate.Var(s, t) == nil
}

// IsEmail reports whether v is an email address.
func IsEmail(v any, _ ...any) bool { return tag(v, "email") }

// IsURL reports whether v is an absolute URL.
func IsURL(v any, _ ...any) bool { return tag(v, "url") }

// IsAlpha reports whether v holds ASCII letters only.
func IsAlpha(v any, _ ...any) bool { return tag(v, "alpha") }

// IsAlphanumeric reports whether v holds ASCII letters and digits only.
func IsAlphanumeric(v any, _ ...any) bool { return tag(v, "alphanum") }

// IsNumeric reports whether v is a number or a numeric string.
func IsNumeric(v any, _ ...any) bool { return tag(v, "numeric") }

// IsUUID reports whether v is a UUID.
func IsUUID(v any, _ ...any) bool {
	if runtime.IsNull(v) {
		return true
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return false
	}
	_, err = uuid.Parse(s)
	return err == nil
}

func length(v any) (int, bool) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return 0, false
	}
	return utf8.RuneCountInString(s), true
}

func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, err := cast.ToIntE(args[i])
	return n, err == nil
}

// IsLength reports whether the length of v is within [min, max]; max is
// optional.
func IsLength(v any, args ...any) bool {
	if runtime.IsNull(v) {
		return true
	}
	n, ok := length(v)
	if !ok {
		return false
	}
	if lo, ok := intArg(args, 0); ok && n < lo {
		return false
	}
	if hi, ok := intArg(args, 1); ok && n > hi {
		return false
	}
	return true
}

// MinLength reports whether v is at least args[0] characters long.
func MinLength(v any, args ...any) bool {
	return IsLength(v, args...)
}

// MaxLength reports whether v is at most args[0] characters long.
func MaxLength(v any, args ...any) bool {
	if runtime.IsNull(v) {
		return true
	}
	n, ok := length(v)
	hi, valid := intArg(args, 0)
	return ok && valid && n <= hi
}

var patterns sync.Map

// Matches reports whether v matches the regular expression args[0].
func Matches(v any, args ...any) bool {
	if runtime.IsNull(v) {
		return true
	}
	if len(args) == 0 {
		return false
	}
	expr := cast.ToString(args[0])
	re, ok := patterns.Load(expr)
	if !ok {
		c, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		re, _ = patterns.LoadOrStore(expr, c)
	}
	s, err := cast.ToStringE(v)
	return err == nil && re.(*regexp.Regexp).MatchString(s)
}

// IsIn reports whether v is one of args. A single list argument holds the
// candidates.
func IsIn(v any, args ...any) bool {
	if runtime.IsNull(v) {
		return true
	}
	candidates := args
	if len(args) == 1 {
		if list, err := cast.ToSliceE(args[0]); err == nil {
			candidates = list
		}
	}
	for _, c := range candidates {
		if runtime.Equal(v, c) {
			return true
		}
	}
	return false
}

// Min reports whether v is not less than args[0].
func Min(v any, args ...any) bool {
	return bound(v, args, func(a, b float64) bool { return a >= b })
}

// Max reports whether v is not greater than args[0].
func Max(v any, args ...any) bool {
	return bound(v, args, func(a, b float64) bool { return a <= b })
}

func bound(v any, args []any, ok func(a, b float64) bool) bool {
	if runtime.IsNull(v) {
		return true
	}
	if len(args) == 0 {
		return false
	}
	a, err := cast.ToFloat64E(v)
	if err != nil {
		return false
	}
	b, err := cast.ToFloat64E(args[0])
	return err == nil && ok(a, b)
}

// NotEmpty reports whether v is set and not empty.
func NotEmpty(v any, _ ...any) bool { return runtime.Exists(v) }
