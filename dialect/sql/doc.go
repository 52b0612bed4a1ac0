// Package sql wraps database/sql with the dialect.Driver/Tx contract: a
// Conn adapting *sql.DB/*sql.Tx to dialect.ExecQuerier, session-variable
// propagation via WithVar/VarFromContext, and the Null* scanner aliases
// storage row materialization scans into.
//
// This package does not build SQL text; statement construction is
// sqlcompile's job (see github.com/esoco/esoco-storage/sqlcompile), which
// lowers a predicate.Criteria tree into parameterized SQL text; package
// storage runs that text against a *Driver/*Tx obtained here.
//
// # Opening a connection
//
//	import (
//	    "github.com/esoco/esoco-storage/dialect"
//	    "github.com/esoco/esoco-storage/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Session variables
//
// WithVar attaches a session variable to a context; the next statement
// run through a Conn derived from that context sets it before executing
// and resets it afterward:
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_42")
//	drv.Query(ctx, "SELECT * FROM widgets", []any{}, &rows)
package sql
