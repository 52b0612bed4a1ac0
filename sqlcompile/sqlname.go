package sqlcompile

import (
	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
)

// SQLName resolves attr's column identifier per spec §4.3's priority
// (explicit SQL name, generic storage name, display-name camelCase split),
// caching the result on attr.
func SQLName(attr *mapping.Attribute) string {
	return attr.ResolvedSQLName()
}

// QuotedSQLName resolves attr's column identifier and wraps it in params'
// identifier quote characters.
func QuotedSQLName(attr *mapping.Attribute, params dialect.Params) string {
	return params.Quote(SQLName(attr))
}
