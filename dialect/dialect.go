package dialect

import "context"

// Dialect name constants identifying the concrete SQL backend a Params
// value (see params.go) and a driver.Conn (see dialect/sql) target.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"

	// Default is used when a storage definition does not name a dialect
	// explicitly; it resolves to SQLite, matching the in-memory/testing
	// driver carried in go.mod (modernc.org/sqlite).
	Default = SQLite
)

// Driver is the minimal surface a storage.Handle needs from a database
// connection: execute, query, open a transaction, close, and report which
// dialect it speaks (so the SQL compiler can apply dialect-specific
// rendering).
type Driver interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
	Tx(ctx context.Context) (Tx, error)
	Close() error
	Dialect() string
}

// Tx extends Driver with the commit/rollback pair component G's
// transaction helper drives.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}

// ExecQuerier is implemented by both Driver and Tx; sqlcompile-produced
// statements are run against whichever of the two is in scope.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}
