// Package compiler drives the compilation of one schema file: loading,
// linking, physical modeling and code generation.
package compiler

import (
	"context"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/compiler/gen"
	"github.com/oolong-dev/oolong/compiler/link"
	"github.com/oolong-dev/oolong/compiler/load"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
	"github.com/oolong-dev/oolong/schema"
)

// Config holds the settings of a compilation.
type Config struct {
	// Root is the project directory; module ids are relative to it.
	Root string
	// Schema is the path of the schema file, relative to Root. The
	// extension is optional.
	Schema string
	// Output receives db/<schema>/*.sql and dao/.
	Output string
	// Package is the import path of the generated dao package.
	Package      string
	TableOptions sqlschema.TableOptions
	// SkipDAO disables code generation.
	SkipDAO bool
	Fs      afero.Fs
	Logger  *zap.Logger
	Workers int
}

// Option configures a compilation.
type Option func(*Config) error

// WithRoot sets the project directory.
func WithRoot(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return gen.NewConfigError("Root", nil, "root directory cannot be empty")
		}
		c.Root = dir
		return nil
	}
}

// WithSchema sets the schema file to compile.
func WithSchema(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return gen.NewConfigError("Schema", nil, "schema file cannot be empty")
		}
		c.Schema = path
		return nil
	}
}

// WithOutput sets the output directory.
func WithOutput(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return gen.NewConfigError("Output", nil, "output directory cannot be empty")
		}
		c.Output = dir
		return nil
	}
}

// WithPackage sets the import path of the generated dao package.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return gen.NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTableOptions replaces the options emitted for every table.
func WithTableOptions(opts sqlschema.TableOptions) Option {
	return func(c *Config) error {
		c.TableOptions = slices.Clone(opts)
		return nil
	}
}

// WithoutDAO only emits the SQL scripts.
func WithoutDAO() Option {
	return func(c *Config) error {
		c.SkipDAO = true
		return nil
	}
}

// WithFs sets the filesystem sources are read from and outputs written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) error {
		if fs == nil {
			return gen.NewConfigError("Fs", nil, "filesystem cannot be nil")
		}
		c.Fs = fs
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return gen.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithWorkers sets the number of files written in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return gen.NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// NewConfig returns a config with defaults applied, then opts.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Root:         ".",
		Output:       "build",
		TableOptions: sqlschema.DefaultTableOptions(),
		Fs:           afero.NewOsFs(),
		Logger:       zap.NewNop(),
		Workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.Schema == "" {
		return nil, gen.NewConfigError("Schema", nil, "missing schema file")
	}
	if c.Package == "" && !c.SkipDAO {
		return nil, gen.NewConfigError("Package", nil, "missing dao package import path")
	}
	return c, nil
}

// SchemaName returns the name the schema file must declare.
func (c *Config) SchemaName() string {
	return strings.TrimSuffix(filepath.Base(c.Schema), filepath.Ext(c.Schema))
}

// Result describes a compilation.
type Result struct {
	// Schema is the linked logical schema.
	Schema *schema.Schema
	Model  *sqlschema.Model
	// SQL lists the written scripts, relative to the output directory.
	SQL []string
	DAO *gen.Result
}

// Model loads, links and models the schema file of cfg without writing
// anything.
func Model(cfg *Config) (*Result, error) {
	log := cfg.Logger.With(zap.String("schema", cfg.Schema))
	lctx, err := load.NewContext(cfg.Root, load.WithFs(cfg.Fs), load.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s, err := link.New(lctx).Load(cfg.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "link")
	}
	log.Debug("linked", zap.Strings("entities", s.Names()), zap.Int("relations", len(s.Relations)))

	model, err := sqlschema.NewModeler(
		sqlschema.WithLogger(log),
		sqlschema.WithTableOptions(cfg.TableOptions),
	).Model(s)
	if err != nil {
		return nil, errors.Wrap(err, "model")
	}
	return &Result{Schema: s, Model: model}, nil
}

// Compile compiles the schema file of cfg. A failure at any phase
// aborts the whole compilation.
func Compile(ctx context.Context, cfg *Config) (*Result, error) {
	res, err := Model(cfg)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger.With(zap.String("schema", cfg.Schema))
	s, model := res.Schema, res.Model

	dir := path.Join("db", s.Name)
	w := gen.NewWriter(cfg.Fs, cfg.Output, cfg.Workers, log)
	res.SQL, err = w.Write(ctx, []*gen.File{
		{Path: path.Join(dir, "entities.sql"), Src: []byte(model.EntitiesSQL())},
		{Path: path.Join(dir, "relations.sql"), Src: []byte(model.RelationsSQL())},
	})
	if err != nil {
		return nil, err
	}
	if cfg.SkipDAO {
		return res, nil
	}
	res.DAO, err = gen.Generate(ctx, s,
		gen.WithPackage(cfg.Package),
		gen.WithTarget(filepath.Join(cfg.Output, "dao")),
		gen.WithFs(cfg.Fs),
		gen.WithLogger(log),
		gen.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, err
	}
	log.Info("compiled", zap.Int("tables", len(model.Tables)), zap.Int("stubs", len(res.DAO.Stubs)))
	return res, nil
}
