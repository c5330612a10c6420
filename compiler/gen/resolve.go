package gen

import (
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/runtime/builtin"
	"github.com/oolong-dev/oolong/schema/expr"
)

// Import paths of the runtime contract.
const (
	RuntimePkg = "github.com/oolong-dev/oolong/runtime"
	BuiltinPkg = RuntimePkg + "/builtin"
)

// Call is a resolved functor.
type Call struct {
	Pkg   string
	Ident string
	// File is the file of a user functor, relative to the target; empty
	// for builtins.
	File string
}

// Stub is a user functor to scaffold.
type Stub struct {
	Kind   expr.Kind
	Entity string
	Name   string
	Ident  string
	File   string
}

// Resolver maps functors to the identifiers generated code calls.
type Resolver struct {
	pkg    string
	target string
	fs     afero.Fs

	mu    sync.Mutex
	files map[string]string
	stubs []*Stub
}

// NewResolver returns a resolver for the package pkg written to target.
func NewResolver(pkg, target string, fs afero.Fs) *Resolver {
	return &Resolver{pkg: pkg, target: target, fs: fs, files: make(map[string]string)}
}

// Resolve resolves f used by entity. Builtins are looked up first; a
// dotted name "other.fn" is the functor fn of entity other; any other
// name is a functor of entity itself, scaffolded when its file does not
// exist.
func (r *Resolver) Resolve(entity string, f *expr.Functor) (*Call, error) {
	if isBuiltin(f) {
		return &Call{Pkg: BuiltinPkg, Ident: builtin.Ident(f.Name)}, nil
	}
	owner, name, qualified := f.Qualifier()
	if !qualified {
		owner, name = entity, f.Name
	}
	ident := naming.Pascal(owner) + naming.Pascal(name)
	file := path.Join(f.Kind.String(), owner+"_"+name+".go")
	key := f.Kind.String() + "." + ident

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.files[key]; ok {
		if prev != file {
			return nil, oolong.NewConflictError(ident, "functors of %s and %s map to the same identifier", prev, file)
		}
		return &Call{Pkg: r.pkg + "/" + f.Kind.String(), Ident: ident, File: file}, nil
	}
	r.files[key] = file
	if !qualified {
		exists, err := afero.Exists(r.fs, filepath.Join(r.target, filepath.FromSlash(file)))
		if err != nil {
			return nil, err
		}
		if !exists {
			r.stubs = append(r.stubs, &Stub{Kind: f.Kind, Entity: entity, Name: name, Ident: ident, File: file})
		}
	}
	return &Call{Pkg: r.pkg + "/" + f.Kind.String(), Ident: ident, File: file}, nil
}

// Stubs returns the queued stubs in resolution order.
func (r *Resolver) Stubs() []*Stub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Stub(nil), r.stubs...)
}

func isBuiltin(f *expr.Functor) bool {
	var ok bool
	switch f.Kind {
	case expr.KindValidator:
		_, ok = builtin.Validators[f.Name]
	case expr.KindModifier:
		_, ok = builtin.Modifiers[f.Name]
	case expr.KindFunction:
		_, ok = builtin.Functions[f.Name]
	}
	return ok
}
