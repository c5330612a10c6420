package runtime

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
)

// Sanitize converts v to the canonical Go value of the builtin type typ:
// bool, int64, float64, string (text, enum, decimal), time.Time, []byte,
// map[string]any or []any. A nil value stays nil.
func Sanitize(typ string, v any) (any, error) {
	if IsNull(v) {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch typ {
	case "bool":
		out, err = cast.ToBoolE(v)
	case "int":
		out, err = cast.ToInt64E(v)
	case "float":
		out, err = cast.ToFloat64E(v)
	case "decimal":
		if _, err = cast.ToFloat64E(v); err == nil {
			out, err = cast.ToStringE(v)
		}
	case "text", "enum":
		out, err = cast.ToStringE(v)
	case "datetime":
		out, err = cast.ToTimeE(v)
	case "binary":
		switch b := v.(type) {
		case []byte:
			out = b
		case string:
			out = []byte(b)
		default:
			err = errors.Newf("unable to cast %#v of type %T to []byte", v, v)
		}
	case "object":
		out, err = cast.ToStringMapE(v)
	case "array":
		out, err = cast.ToSliceE(v)
	default:
		return nil, errors.Newf("unknown type %q", typ)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "sanitize %s", typ)
	}
	return out, nil
}
