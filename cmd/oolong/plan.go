package main

import (
	atlas "ariga.io/atlas/sql/schema"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/compiler"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
)

func (a *app) planCmd() *cobra.Command {
	var (
		apply bool
		allow []string
	)
	cmd := &cobra.Command{
		Use:   "plan <schema>",
		Short: "Print the statements migrating the database to a schema",
		Long: `Print the statements migrating the database to a schema.

Destructive steps (dropped tables, columns or indexes, new NOT NULL
constraints, narrowed types) block --apply unless allowed with --allow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allowed, err := parseChanges(allow)
			if err != nil {
				return err
			}
			cfg, err := a.compilerConfig(args[0], compiler.WithoutDAO())
			if err != nil {
				return err
			}
			res, err := compiler.Model(cfg)
			if err != nil {
				return err
			}
			db, name, err := a.cfg.Database.open(a.log)
			if err != nil {
				return err
			}
			defer db.Close()
			current, err := sqlschema.Inspect(cmd.Context(), db, name)
			if err != nil {
				return err
			}
			stmts, err := res.Model.Plan(cmd.Context(), current)
			if err != nil {
				return err
			}
			if len(stmts) == 0 {
				cmd.Println("-- database is up to date")
				return nil
			}
			issues, err := drift(current, res.Model, allowed)
			if err != nil {
				return err
			}
			for _, s := range stmts {
				cmd.Println(s + ";")
			}
			printIssues(cmd, issues)
			if !apply {
				return nil
			}
			if err := issues.Err(); err != nil {
				return errors.Wrap(err, "refusing to apply (see --allow)")
			}
			if err := sqlschema.Exec(cmd.Context(), db, stmts); err != nil {
				return err
			}
			a.log.Info("plan applied", zap.Stringer("stats", db.QueryStats().Stats()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "execute the planned statements")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "destructive changes to apply anyway: drop-table, drop-column, drop-index, not-null, narrow")
	return cmd
}

func parseChanges(names []string) ([]sqlschema.Change, error) {
	changes := make([]sqlschema.Change, 0, len(names))
	for _, n := range names {
		c, err := sqlschema.ParseChange(n)
		if err != nil {
			return nil, errors.Wrap(err, "--allow")
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// drift checks what migrating the inspected schema to m would destroy.
func drift(current *atlas.Schema, m *sqlschema.Model, allowed []sqlschema.Change) (sqlschema.Issues, error) {
	tables, err := sqlschema.FromAtlas(current)
	if err != nil {
		return nil, errors.Wrap(err, "read inspected schema")
	}
	return sqlschema.CheckDrift(tables, m.Tables, allowed...), nil
}

func printIssues(cmd *cobra.Command, issues sqlschema.Issues) {
	for _, i := range issues {
		level := "warning"
		if i.Blocking {
			level = "blocking"
		}
		cmd.Printf("-- %s: %s\n", level, i)
	}
}
