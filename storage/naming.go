package storage

import (
	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/sqlcompile"
)

// tableNameFor and sqlcompileQuotedName are thin forwarders to sqlcompile's
// identifier resolution, so Handle's mutation/DDL paths name columns and
// tables exactly as the compiled WHERE clauses the same statements are
// combined with (spec §4.3, get_sql_name).
func tableNameFor(m mapping.Mapping) string { return sqlcompile.TableName(m) }

func sqlcompileQuotedName(attr *mapping.Attribute, params dialect.Params) string {
	return sqlcompile.QuotedSQLName(attr, params)
}
