package field

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/copystructure"

	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema/expr"
)

// Stage identifies one of the four pipeline stages of a field.
type Stage int

// Pipeline stages in execution order.
const (
	Validators0 Stage = iota
	Modifiers0
	Validators1
	Modifiers1
)

// Stages lists the stages in execution order.
var Stages = [...]Stage{Validators0, Modifiers0, Validators1, Modifiers1}

// Key returns the DSL attribute holding the stage.
func (s Stage) Key() string {
	switch s {
	case Validators0:
		return "validators0"
	case Modifiers0:
		return "modifiers0"
	case Validators1:
		return "validators1"
	default:
		return "modifiers1"
	}
}

// Kind returns the functor kind accepted by the stage.
func (s Stage) Kind() expr.Kind {
	if s == Validators0 || s == Validators1 {
		return expr.KindValidator
	}
	return expr.KindModifier
}

// Field is a typed attribute of an entity, or a parameter of an interface.
type Field struct {
	Name string
	TypeInfo
	// Pipelines holds the functors of each stage, indexed by Stage.
	Pipelines [len(Stages)][]*expr.Functor
	// Default is the value used on creation when HasDefault is set.
	Default    any
	HasDefault bool
	// Auto marks values generated by the runtime; Generator optionally
	// names the builtin generator (e.g. "uuid").
	Auto          bool
	Generator     string
	ReadOnly      bool
	WriteOnceOnly bool
	Optional      bool
	// Database side markers set by features.
	AutoIncrement bool
	CreateByDB    bool
	UpdateByDB    bool
	Comment       string
	// Extra holds the attributes the compiler does not interpret.
	Extra map[string]any
}

var flagKeys = []string{
	"default", "auto", "readOnly", "writeOnceOnly", "optional", "comment",
	"autoIncrement", "createByDb", "updateByDb",
}

// Decode builds a field from its resolved declaration. attrs must already
// be resolved to a builtin type.
func Decode(name string, attrs *dsl.Map) (*Field, error) {
	info, err := DecodeTypeInfo(attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", name)
	}
	f := &Field{Name: name, TypeInfo: info}
	for _, s := range Stages {
		fs, err := expr.ParseFunctors(attrs.List(s.Key()), s.Kind())
		if err != nil {
			return nil, errors.Wrapf(err, "field %q %s", name, s.Key())
		}
		f.Pipelines[s] = fs
	}
	if v, ok := attrs.Get("default"); ok {
		f.Default, f.HasDefault = dsl.Plain(v), true
	}
	switch v, _ := attrs.Get("auto"); v := v.(type) {
	case bool:
		f.Auto = v
	case string:
		f.Auto, f.Generator = true, v
	}
	f.ReadOnly = attrs.Bool("readOnly")
	f.WriteOnceOnly = attrs.Bool("writeOnceOnly")
	f.Optional = attrs.Bool("optional")
	f.AutoIncrement = attrs.Bool("autoIncrement")
	f.CreateByDB = attrs.Bool("createByDb")
	f.UpdateByDB = attrs.Bool("updateByDb")
	f.Comment = attrs.String("comment")
	attrs.Range(func(k string, v any) bool {
		if IsTypeKey(k) || slices.Contains(flagKeys, k) || isStageKey(k) {
			return true
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[k] = dsl.Plain(v)
		return true
	})
	return f, nil
}

func isStageKey(k string) bool {
	for _, s := range Stages {
		if s.Key() == k {
			return true
		}
	}
	return false
}

// Pipeline returns the functors of the given stage.
func (f *Field) Pipeline(s Stage) []*expr.Functor { return f.Pipelines[s] }

// HasPipeline reports whether any stage holds a functor.
func (f *Field) HasPipeline() bool {
	for _, p := range f.Pipelines {
		if len(p) > 0 {
			return true
		}
	}
	return false
}

// Attrs renders the field back into DSL attributes.
func (f *Field) Attrs() *dsl.Map {
	m := f.TypeInfo.Attrs()
	for _, s := range Stages {
		if p := f.Pipelines[s]; len(p) > 0 {
			raw := make([]any, len(p))
			for i, fn := range p {
				raw[i] = fn.Raw()
			}
			m.Set(s.Key(), raw)
		}
	}
	if f.HasDefault {
		m.Set("default", f.Default)
	}
	if f.Generator != "" {
		m.Set("auto", f.Generator)
	} else if f.Auto {
		m.Set("auto", true)
	}
	for _, kv := range []struct {
		k string
		v bool
	}{
		{"readOnly", f.ReadOnly}, {"writeOnceOnly", f.WriteOnceOnly}, {"optional", f.Optional},
		{"autoIncrement", f.AutoIncrement}, {"createByDb", f.CreateByDB}, {"updateByDb", f.UpdateByDB},
	} {
		if kv.v {
			m.Set(kv.k, true)
		}
	}
	if f.Comment != "" {
		m.Set("comment", f.Comment)
	}
	for _, k := range sortedKeys(f.Extra) {
		m.Set(k, f.Extra[k])
	}
	return m
}

// Clone returns a deep copy of the field. Functors are immutable and shared.
func (f *Field) Clone() (*Field, error) {
	c := *f
	c.Values = slices.Clone(f.Values)
	c.SubClass = slices.Clone(f.SubClass)
	for i := range f.Pipelines {
		c.Pipelines[i] = slices.Clone(f.Pipelines[i])
	}
	def, err := deepCopy(f.Default)
	if err != nil {
		return nil, errors.Wrapf(err, "copy default of %s", f.Name)
	}
	c.Default = def
	if f.Extra != nil {
		extra, err := deepCopy(f.Extra)
		if err != nil {
			return nil, errors.Wrapf(err, "copy attributes of %s", f.Name)
		}
		c.Extra = extra.(map[string]any)
	}
	return &c, nil
}

// CopyType returns a field named name carrying only the type of f.
func (f *Field) CopyType(name string) *Field {
	return &Field{
		Name: name,
		TypeInfo: TypeInfo{
			Type:          f.Type,
			Values:        slices.Clone(f.Values),
			Digits:        f.Digits,
			Bytes:         f.Bytes,
			Unsigned:      f.Unsigned,
			TotalDigits:   f.TotalDigits,
			DecimalDigits: f.DecimalDigits,
			MaxLength:     f.MaxLength,
			FixedLength:   f.FixedLength,
			Range:         f.Range,
			SubClass:      slices.Clone(f.SubClass),
		},
	}
}

func deepCopy(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
