package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/compiler"
)

// app holds the state shared by the commands.
type app struct {
	fs      afero.Fs
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	log     *zap.Logger
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, v: viper.New(), log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "oolong",
		Short:         "Compile oolong schemas into MySQL scripts and data access code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.fs, a.v, a.cfgFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "oolong.yaml", "configuration file")
	flags.String("root", "", "project directory holding the .ool files")
	flags.StringP("output", "o", "", "output directory")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("root", flags.Lookup("root"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("logLevel", flags.Lookup("log-level"))

	root.AddCommand(a.buildCmd(), a.planCmd(), a.reverseCmd())
	return root
}

// compilerConfig returns the compilation settings of one schema file.
func (a *app) compilerConfig(schema string, opts ...compiler.Option) (*compiler.Config, error) {
	base := []compiler.Option{
		compiler.WithRoot(a.cfg.Root),
		compiler.WithSchema(schema),
		compiler.WithOutput(a.cfg.Output),
		compiler.WithFs(a.fs),
		compiler.WithLogger(a.log),
	}
	if opts := a.cfg.tableOptions(); len(opts) > 0 {
		base = append(base, compiler.WithTableOptions(opts))
	}
	if a.cfg.Workers > 0 {
		base = append(base, compiler.WithWorkers(a.cfg.Workers))
	}
	if a.cfg.Package != "" {
		base = append(base, compiler.WithPackage(a.cfg.Package))
	} else {
		base = append(base, compiler.WithoutDAO())
	}
	return compiler.NewConfig(append(base, opts...)...)
}
