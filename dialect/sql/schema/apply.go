package schema

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// ExecContext is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type ExecContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply creates the tables and foreign keys of the model. MySQL commits
// DDL implicitly, so a failure leaves the statements run so far applied.
func (m *Model) Apply(ctx context.Context, db ExecContext) error {
	return Exec(ctx, db, m.Statements())
}

// Exec runs the statements in order and stops at the first failure.
func Exec(ctx context.Context, db ExecContext, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	return nil
}
