package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	dbsql "github.com/oolong-dev/oolong/dialect/sql"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
)

// EnvPrefix prefixes the environment variables overriding the config file.
const EnvPrefix = "OOLONG"

// Config is the content of oolong.yaml.
type Config struct {
	// Root is the project directory holding the .ool files.
	Root string `mapstructure:"root" validate:"required"`
	// Schemas are the schema files built when none is given on the
	// command line.
	Schemas []string `mapstructure:"schemas" validate:"dive,required"`
	Output  string   `mapstructure:"output" validate:"required"`
	// Package is the import path of <output>/dao. Without it only the
	// SQL scripts are built.
	Package      string        `mapstructure:"package"`
	TableOptions []TableOption `mapstructure:"tableOptions" validate:"dive"`
	Workers      int           `mapstructure:"workers" validate:"gte=0"`
	LogLevel     string        `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	Database     Database      `mapstructure:"database"`
}

// TableOption is a MySQL table option such as ENGINE=InnoDB.
type TableOption struct {
	Key   string `mapstructure:"key" validate:"required"`
	Value string `mapstructure:"value" validate:"required"`
}

// Database locates the database used by plan and reverse.
type Database struct {
	DSN string `mapstructure:"dsn" validate:"omitempty,mysqldsn"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mysqldsn", func(fl validator.FieldLevel) bool {
		_, err := mysql.ParseDSN(fl.Field().String())
		return err == nil
	})
	return v
}

// loadConfig reads path, when it exists, then the environment, a .env
// file next to path included. Environment variables win over the file.
func loadConfig(fs afero.Fs, v *viper.Viper, path string) (*Config, error) {
	if err := loadDotenv(fs, filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	v.SetFs(fs)
	v.SetDefault("root", ".")
	v.SetDefault("output", "build")
	v.SetDefault("workers", 0)
	v.SetDefault("logLevel", "info")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"schemas", "package", "database.dsn"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if exists {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
	}

	cfg := &Config{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// loadDotenv exports the variables of a .env file that are not set yet.
func loadDotenv(fs afero.Fs, path string) error {
	src, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	env, err := godotenv.Parse(bytes.NewReader(src))
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	for k, val := range env {
		if _, ok := os.LookupEnv(k); !ok {
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// tableOptions returns the configured options, or nil for the defaults.
func (c *Config) tableOptions() sqlschema.TableOptions {
	var opts sqlschema.TableOptions
	for _, o := range c.TableOptions {
		opts = opts.Set(o.Key, o.Value)
	}
	return opts
}

// open connects to the configured database and returns its name.
func (d Database) open(log *zap.Logger) (*dbsql.Driver, string, error) {
	if d.DSN == "" {
		return nil, "", errors.Newf("no database configured, set database.dsn or %s_DATABASE_DSN", EnvPrefix)
	}
	drv, name, err := dbsql.Open(d.DSN, dbsql.WithLogger(log))
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		_ = drv.Close()
		return nil, "", errors.New("the dsn names no database")
	}
	return drv, name, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	return cfg.Build()
}
