package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oolong-dev/oolong/compiler/format"
	"github.com/oolong-dev/oolong/dialect/sql/introspect"
)

func (a *app) reverseCmd() *cobra.Command {
	var (
		out    string
		asYAML bool
	)
	cmd := &cobra.Command{
		Use:   "reverse",
		Short: "Print the schema of an existing database",
		Long: "Reverse inspects the configured database and prints its entities and\n" +
			"relations. With --yaml the output is a unit the build command can load.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, name, err := a.cfg.Database.open(a.log)
			if err != nil {
				return err
			}
			defer db.Close()
			tree, err := introspect.Inspect(cmd.Context(), db, name, introspect.WithLogger(a.log))
			if err != nil {
				return err
			}
			var src []byte
			if asYAML {
				src, err = yaml.Marshal(tree)
			} else {
				var s string
				s, err = format.Print(tree)
				src = []byte(s)
			}
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			return afero.WriteFile(a.fs, out, src, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "f", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print a loadable unit instead of the DSL listing")
	return cmd
}
