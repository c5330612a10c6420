package gen

import (
	"path"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config holds the generator settings.
type Config struct {
	// Package is the import path of the generated package, for example
	// "github.com/org/app/dao". Functor sub-packages live below it.
	Package string
	// Target is the output directory of the generated package.
	Target string
	// Header is written at the top of every generated file.
	Header  string
	Fs      afero.Fs
	Logger  *zap.Logger
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the output package import path.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithFs sets the filesystem files are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) error {
		if fs == nil {
			return NewConfigError("Fs", nil, "filesystem cannot be nil")
		}
		c.Fs = fs
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithWorkers sets the number of files written in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Header:  "Code generated by oolong. DO NOT EDIT.",
		Fs:      afero.NewOsFs(),
		Logger:  zap.NewNop(),
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if c.Package == "" {
		return nil, NewConfigError("Package", nil, "missing package import path")
	}
	if c.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory")
	}
	return c, nil
}

// PackageName returns the name of the generated package.
func (c *Config) PackageName() string {
	return path.Base(c.Package)
}
