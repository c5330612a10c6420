package gen

import (
	"context"
	"path"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/schema"
)

// Generator generates the data access code of a schema.
type Generator struct {
	cfg      *Config
	resolver *Resolver
}

// New returns a generator for cfg.
func New(cfg *Config) *Generator {
	return &Generator{cfg: cfg, resolver: NewResolver(cfg.Package, cfg.Target, cfg.Fs)}
}

// Result lists the files written by a generation, relative to the target.
type Result struct {
	Files []string
	Stubs []string
}

// Generate writes the code of every entity of s with the given options.
func Generate(ctx context.Context, s *schema.Schema, opts ...Option) (*Result, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return New(cfg).Generate(ctx, s)
}

// Generate writes, for every entity of s, its source file and IR dump,
// then the stubs of the user functors that do not exist yet.
func (g *Generator) Generate(ctx context.Context, s *schema.Schema) (*Result, error) {
	var files []*File
	for _, name := range s.Names() {
		e, _ := s.Entity(name)
		out, err := g.Entity(s, name, e)
		if err != nil {
			return nil, errors.Wrapf(err, "generate %s", name)
		}
		src, err := Render(out.File)
		if err != nil {
			return nil, errors.Wrapf(err, "render %s", name)
		}
		dump, err := out.IR.Marshal()
		if err != nil {
			return nil, errors.Wrapf(err, "dump %s", name)
		}
		files = append(files,
			&File{Path: name + ".go", Src: src},
			&File{Path: name + ".ir.yaml", Src: dump},
		)
	}
	stubs := g.resolver.Stubs()
	for _, st := range stubs {
		src, err := Render(StubFile(st))
		if err != nil {
			return nil, errors.Wrapf(err, "render stub %s", st.Ident)
		}
		files = append(files, &File{Path: st.File, Src: src, Keep: true})
	}

	w := NewWriter(g.cfg.Fs, g.cfg.Target, g.cfg.Workers, g.cfg.Logger)
	written, err := w.Write(ctx, files)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, p := range written {
		if isStub(p, stubs) {
			res.Stubs = append(res.Stubs, p)
		} else {
			res.Files = append(res.Files, p)
		}
	}
	g.cfg.Logger.Info("dao generated",
		zap.String("schema", s.Name),
		zap.String("package", g.cfg.Package),
		zap.Int("files", len(res.Files)),
		zap.Int("stubs", len(res.Stubs)),
	)
	return res, nil
}

func isStub(p string, stubs []*Stub) bool {
	for _, s := range stubs {
		if path.Clean(s.File) == p {
			return true
		}
	}
	return false
}
