package field

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	"github.com/oolong-dev/oolong/dsl"
)

// Type is the name of a builtin type.
type Type string

// Builtin types. Every type alias resolves to one of them.
const (
	TypeBool     Type = "bool"
	TypeInt      Type = "int"
	TypeFloat    Type = "float"
	TypeDecimal  Type = "decimal"
	TypeText     Type = "text"
	TypeBinary   Type = "binary"
	TypeDatetime Type = "datetime"
	TypeEnum     Type = "enum"
	TypeObject   Type = "object"
	TypeArray    Type = "array"
)

var builtins = []Type{
	TypeBool, TypeInt, TypeFloat, TypeDecimal, TypeText,
	TypeBinary, TypeDatetime, TypeEnum, TypeObject, TypeArray,
}

// Builtins returns the builtin type names.
func Builtins() []Type { return slices.Clone(builtins) }

// IsBuiltin reports whether name is a builtin type.
func IsBuiltin(name string) bool {
	return slices.Contains(builtins, Type(name))
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// Numeric reports whether the type holds numbers.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeDecimal
}

// TypeInfo holds the resolved type of a field or a parameter.
type TypeInfo struct {
	Type          Type     `mapstructure:"type" yaml:"type"`
	Values        []string `mapstructure:"values" yaml:"values,omitempty"`
	Digits        int      `mapstructure:"digits" yaml:"digits,omitempty"`
	Bytes         int      `mapstructure:"bytes" yaml:"bytes,omitempty"`
	Unsigned      bool     `mapstructure:"unsigned" yaml:"unsigned,omitempty"`
	TotalDigits   int      `mapstructure:"totalDigits" yaml:"totalDigits,omitempty"`
	DecimalDigits int      `mapstructure:"decimalDigits" yaml:"decimalDigits,omitempty"`
	MaxLength     int      `mapstructure:"maxLength" yaml:"maxLength,omitempty"`
	FixedLength   int      `mapstructure:"fixedLength" yaml:"fixedLength,omitempty"`
	// Range narrows datetime columns: date, time, year or timestamp.
	Range string `mapstructure:"range" yaml:"range,omitempty"`
	// SubClass records the alias chain walked to reach the builtin type,
	// from the most generic alias to the most specific one.
	SubClass []string `mapstructure:"subClass" yaml:"subClass,omitempty"`
}

// typeKeys are the attribute names decoded into TypeInfo.
var typeKeys = []string{
	"type", "values", "digits", "bytes", "unsigned", "totalDigits",
	"decimalDigits", "maxLength", "fixedLength", "range", "subClass",
}

// IsTypeKey reports whether the attribute belongs to the type information.
func IsTypeKey(k string) bool { return slices.Contains(typeKeys, k) }

// DecodeTypeInfo decodes the type attributes of a resolved declaration.
// The declaration must already be resolved to a builtin type.
func DecodeTypeInfo(attrs *dsl.Map) (TypeInfo, error) {
	var info TypeInfo
	in := make(map[string]any)
	attrs.Range(func(k string, v any) bool {
		if IsTypeKey(k) {
			in[k] = dsl.Plain(v)
		}
		return true
	})
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &info,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return info, err
	}
	if err := dec.Decode(in); err != nil {
		return info, errors.Wrap(err, "decode type info")
	}
	if !IsBuiltin(string(info.Type)) {
		return info, errors.Newf("type %q is not a builtin type", info.Type)
	}
	if info.Type == TypeEnum && len(info.Values) == 0 {
		return info, errors.New("enum type requires values")
	}
	return info, nil
}

// Attrs renders the type information back into DSL attributes.
func (t TypeInfo) Attrs() *dsl.Map {
	m := dsl.MapOf("type", string(t.Type))
	if len(t.Values) > 0 {
		vs := make([]any, len(t.Values))
		for i, v := range t.Values {
			vs[i] = v
		}
		m.Set("values", vs)
	}
	for _, kv := range []struct {
		k string
		v int
	}{
		{"digits", t.Digits}, {"bytes", t.Bytes}, {"totalDigits", t.TotalDigits},
		{"decimalDigits", t.DecimalDigits}, {"maxLength", t.MaxLength}, {"fixedLength", t.FixedLength},
	} {
		if kv.v != 0 {
			m.Set(kv.k, kv.v)
		}
	}
	if t.Unsigned {
		m.Set("unsigned", true)
	}
	if t.Range != "" {
		m.Set("range", t.Range)
	}
	return m
}
