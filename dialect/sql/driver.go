package sql

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
	"github.com/oolong-dev/oolong/runtime"
)

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver executes statements on a database or a transaction.
type Driver struct {
	conn  ExecQuerier
	stats *QueryStats
	log   *zap.Logger

	mu   sync.RWMutex
	slow time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger statements and slow queries are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(t time.Duration) Option {
	return func(d *Driver) {
		d.slow = t
	}
}

// OpenDB wraps db.
func OpenDB(db *sql.DB, opts ...Option) *Driver {
	d := &Driver{conn: db, stats: &QueryStats{}, log: zap.NewNop(), slow: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open connects to the MySQL database of dsn. It returns the driver and
// the name of the database.
func Open(dsn string, opts ...Option) (*Driver, string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, "", errors.Wrap(err, "parse dsn")
	}
	conn, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, "", err
	}
	return OpenDB(sql.OpenDB(conn), opts...), cfg.DBName, nil
}

// DB returns the underlying database. It panics inside a transaction.
func (d *Driver) DB() *sql.DB {
	return d.conn.(*sql.DB)
}

// Close closes the underlying database.
func (d *Driver) Close() error { return d.DB().Close() }

// QueryStats returns the statistics of the driver, shared with its
// transactions.
func (d *Driver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the current slow query threshold.
func (d *Driver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slow
}

// SetSlowThreshold updates the slow query threshold.
func (d *Driver) SetSlowThreshold(t time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slow = t
}

// ExecContext executes a statement and records statistics.
func (d *Driver) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.conn.ExecContext(ctx, query, args...)
	d.record(query, args, start, err, false)
	return res, err
}

// QueryContext executes a query and records statistics.
func (d *Driver) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, query, args...)
	d.record(query, args, start, err, true)
	return rows, err
}

// Tx starts a transaction. Statements of the transaction are recorded in
// the statistics of d.
func (d *Driver) Tx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Driver: &Driver{conn: tx, stats: d.stats, log: d.log, slow: d.SlowThreshold()},
		tx:     tx,
	}, nil
}

// Tx is a transaction.
type Tx struct {
	*Driver
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// FindOne returns the first row of the model table matching every
// column of condition, or nil when no row matches.
func (d *Driver) FindOne(ctx context.Context, model string, condition map[string]any) (map[string]any, error) {
	query, args, err := SelectOne(model, condition)
	if err != nil {
		return nil, err
	}
	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", model)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	row, err := scanMap(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", model)
	}
	return row, rows.Err()
}

// SelectOne renders the query of FindOne.
func SelectOne(model string, condition map[string]any) (string, []any, error) {
	q := sq.Select("*").From(sqlschema.Ident(model)).Limit(1)
	if len(condition) > 0 {
		eq := make(sq.Eq, len(condition))
		for col, v := range condition {
			eq[sqlschema.Ident(col)] = v
		}
		q = q.Where(eq)
	}
	return q.ToSql()
}

// scanMap scans the current row. Text columns are returned as strings,
// binary columns as bytes.
func scanMap(rows *sql.Rows) (map[string]any, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(types))
	for i, t := range types {
		v := vals[i]
		if b, ok := v.([]byte); ok && !binary(t.DatabaseTypeName()) {
			v = string(b)
		}
		row[t.Name()] = v
	}
	return row, nil
}

func binary(typ string) bool {
	typ = strings.ToUpper(typ)
	return strings.Contains(typ, "BLOB") || strings.HasSuffix(typ, "BINARY")
}

var _ runtime.DB = (*Driver)(nil)
