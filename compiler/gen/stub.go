package gen

import (
	"github.com/dave/jennifer/jen"

	"github.com/oolong-dev/oolong/schema/expr"
)

// StubFile scaffolds a user functor. Stubs accept every value and
// return it unchanged until implemented.
func StubFile(s *Stub) *jen.File {
	f := jen.NewFile(s.Kind.String())
	var (
		params = []jen.Code{jen.Id("v").Any(), jen.Id("args").Op("...").Any()}
		result jen.Code
		ret    jen.Code
		what   string
	)
	switch s.Kind {
	case expr.KindValidator:
		result, ret, what = jen.Bool(), jen.True(), "validator"
	case expr.KindModifier:
		result, ret, what = jen.Any(), jen.Id("v"), "modifier"
	default:
		params = []jen.Code{jen.Id("args").Op("...").Any()}
		result, ret, what = jen.Any(), jen.Nil(), "function"
	}
	f.Commentf("%s is the %s %s of %s.", s.Ident, s.Name, what, s.Entity)
	f.Func().Id(s.Ident).Params(params...).Add(result).Block(jen.Return(ret))
	return f
}
