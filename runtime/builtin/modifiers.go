package builtin

import (
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"

	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/runtime"
)

func str(v any, fn func(string) string) any {
	if runtime.IsNull(v) {
		return v
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return v
	}
	return fn(s)
}

// Trim removes leading and trailing white space.
func Trim(v any, _ ...any) any { return str(v, strings.TrimSpace) }

// ToLower lower cases v.
func ToLower(v any, _ ...any) any { return str(v, strings.ToLower) }

// ToUpper upper cases v.
func ToUpper(v any, _ ...any) any { return str(v, strings.ToUpper) }

// ToString converts v to a string.
func ToString(v any, _ ...any) any { return str(v, func(s string) string { return s }) }

// ToInt converts v to an int64, leaving it unchanged when it is not numeric.
func ToInt(v any, _ ...any) any {
	if n, err := cast.ToInt64E(v); err == nil && !runtime.IsNull(v) {
		return n
	}
	return v
}

// ToFloat converts v to a float64, leaving it unchanged when it is not
// numeric.
func ToFloat(v any, _ ...any) any {
	if f, err := cast.ToFloat64E(v); err == nil && !runtime.IsNull(v) {
		return f
	}
	return v
}

// Truncate keeps the first args[0] characters of v.
func Truncate(v any, args ...any) any {
	n, ok := intArg(args, 0)
	if !ok {
		return v
	}
	return str(v, func(s string) string {
		if rs := []rune(s); len(rs) > n {
			return string(rs[:n])
		}
		return s
	})
}

// Slugify lower cases v and joins its words with dashes.
func Slugify(v any, _ ...any) any {
	return str(v, func(s string) string {
		words := naming.Words(s)
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
		return strings.Join(words, "-")
	})
}

// HashPassword replaces v with its bcrypt hash. The optional argument is
// the bcrypt cost. A password bcrypt rejects becomes nil.
func HashPassword(v any, args ...any) any {
	if runtime.IsNull(v) {
		return v
	}
	cost, ok := intArg(args, 0)
	if !ok {
		cost = bcrypt.DefaultCost
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(s), cost)
	if err != nil {
		return nil
	}
	return string(h)
}
