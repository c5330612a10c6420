// Package feature implements the named entity rules of the DSL (autoId,
// timestamps, logical deletion...). A rule runs at one extension point of
// entity materialization and linking, and mutates the entity it is
// attached to.
package feature

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
)

// Point is an extension point of the compilation.
type Point int

// Extension points in execution order.
const (
	// BeforeFields runs before the declared fields are decoded.
	BeforeFields Point = iota
	// AfterFields runs once all declared fields are decoded.
	AfterFields
	// AfterLink runs once the schema relations are closed.
	AfterLink
)

func (p Point) String() string {
	switch p {
	case BeforeFields:
		return "beforeFields"
	case AfterFields:
		return "afterFields"
	default:
		return "afterLink"
	}
}

// Rule is a named entity rule.
type Rule struct {
	Name        string
	Point       Point
	Description string
	// Apply mutates the entity. It may normalize the feature options.
	Apply func(*schema.Entity, *schema.Feature) error
}

// Registry holds the rules known to a compilation.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewRegistry returns a registry holding the given rules.
func NewRegistry(rules ...*Rule) *Registry {
	r := &Registry{rules: make(map[string]*Rule)}
	for _, rule := range rules {
		r.rules[rule.Name] = rule
	}
	return r
}

// DefaultRegistry returns a registry with all the builtin rules.
func DefaultRegistry() *Registry {
	return NewRegistry(AllRules...)
}

// Register adds a rule. Registering a name twice is an error.
func (r *Registry) Register(rule *Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.Name]; ok {
		return errors.Newf("feature %q already registered", rule.Name)
	}
	r.rules[rule.Name] = rule
	return nil
}

// Lookup returns the named rule.
func (r *Registry) Lookup(name string) (*Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for n := range r.rules {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Apply runs the rules bound to point for every feature of e, in the
// order the features are declared. An unknown feature is a link error.
func (r *Registry) Apply(point Point, e *schema.Entity) error {
	return r.ApplyFeatures(point, e, e.Features)
}

// ApplyFeatures is like Apply for a subset of the entity features, such
// as the ones declared by a derived entity on top of its base.
func (r *Registry) ApplyFeatures(point Point, e *schema.Entity, features []*schema.Feature) error {
	for _, f := range features {
		rule, ok := r.Lookup(f.Name)
		if !ok {
			return oolong.NewLinkError(oolong.ErrNotFound, f.Name, e.File(), "unknown feature of entity "+e.Name)
		}
		if rule.Point != point {
			continue
		}
		if err := rule.Apply(e, f); err != nil {
			return &oolong.LinkError{Ref: f.Name, File: e.File(), Message: "feature of entity " + e.Name, Cause: err}
		}
	}
	return nil
}

// Parse decodes a feature declaration. Accepted forms are a bare name,
// a single-key map {name: options} and {name: ..., options: ...}.
func Parse(v any) (*schema.Feature, error) {
	switch v := v.(type) {
	case string:
		return &schema.Feature{Name: v}, nil
	case *dsl.Map:
		if name := v.String("name"); name != "" {
			opts, _ := v.Get("options")
			return &schema.Feature{Name: name, Options: dsl.Plain(opts)}, nil
		}
		if v.Len() == 1 {
			name := v.Keys()[0]
			opts, _ := v.Get(name)
			return &schema.Feature{Name: name, Options: dsl.Plain(opts)}, nil
		}
	}
	return nil, errors.Newf("invalid feature declaration %v", dsl.Plain(v))
}

// decode decodes feature options into out. A scalar option is shorthand
// for {scalar: value}, e.g. "logicalDeletion: deleted".
func decode(f *schema.Feature, scalar string, out any) error {
	if f.Options == nil {
		return nil
	}
	in := f.Options
	if _, ok := in.(map[string]any); !ok {
		in = map[string]any{scalar: in}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return errors.Wrapf(dec.Decode(in), "options of %s", f.Name)
}
