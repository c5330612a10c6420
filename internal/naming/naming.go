// Package naming converts DSL names into identifiers, table names and file
// names.
package naming

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var title = cases.Title(language.Und, cases.NoLower)

// Words splits s on separators (_ - . and spaces) and on case transitions.
// An upper case run followed by a lower case letter starts a new word
// at its last letter: "HTTPCode" → [HTTP Code].
func Words(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := rs[i-1]
			next := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && next) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Pascal returns s in PascalCase: "user_id" and "userId" → "UserId".
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(title.String(w))
	}
	return b.String()
}

// Camel returns s in camelCase: "UserGroup" → "userGroup".
func Camel(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(title.String(w))
	}
	return b.String()
}

// Snake returns s in snake_case: "userGroup" → "user_group".
func Snake(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// Plural returns the plural form of s, keeping its casing style.
func Plural(s string) string {
	if s == "" {
		return s
	}
	return inflect.Pluralize(s)
}

// Receiver returns a short receiver name for the type name.
func Receiver(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteRune(unicode.ToLower([]rune(w)[0]))
	}
	if b.Len() == 0 {
		return "m"
	}
	return b.String()
}
