// Package sqlcompile lowers a predicate.Criteria tree, a mapping.Mapping,
// and a dialect.Params into parameterized SQL: statement text, an ordered
// vector of compare attributes (for re-applying MapValue at bind time), an
// ordered vector of compare values, and an ORDER BY fragment.
//
// Compilation is a single recursive traversal driven by Compile; every
// fragment is rendered directly as text by this package. Squirrel appears
// only in Statement.AsSqlizer, which wraps a finished WHERE clause for
// callers that compose it into a squirrel-built statement.
package sqlcompile
