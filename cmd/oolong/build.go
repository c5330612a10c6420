package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/compiler"
)

func (a *app) buildCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "build [schema...]",
		Short: "Build the SQL scripts and the data access code of schema files",
		Long: "Build compiles every schema file given, or the schemas of the configuration\n" +
			"file, into <output>/db/<schema>/*.sql and <output>/dao.",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := args
			if len(schemas) == 0 {
				schemas = a.cfg.Schemas
			}
			if len(schemas) == 0 {
				return errors.New("no schema to build")
			}
			build := func() error { return a.build(cmd, schemas) }
			if !watch {
				return build()
			}
			if err := build(); err != nil {
				a.log.Error("build failed", zap.Error(err))
			}
			return watchDir(cmd.Context(), a.fs, a.cfg.Root, a.log, build)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when a source file changes")
	return cmd
}

func (a *app) build(cmd *cobra.Command, schemas []string) error {
	for _, name := range schemas {
		cfg, err := a.compilerConfig(name)
		if err != nil {
			return err
		}
		res, err := compiler.Compile(cmd.Context(), cfg)
		if err != nil {
			return errors.Wrapf(err, "build %s", name)
		}
		cmd.Printf("%s: %d tables", res.Schema.Name, len(res.Model.Tables))
		if res.DAO != nil {
			cmd.Printf(", %d dao files", len(res.DAO.Files))
			for _, s := range res.DAO.Stubs {
				cmd.Printf("\n  new stub %s", s)
			}
		}
		cmd.Println()
	}
	return nil
}
