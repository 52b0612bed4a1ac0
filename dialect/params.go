package dialect

import "reflect"

// Params bundles the dialect-configuration knobs from spec §6: how an
// identifier is quoted, how an auto-generated id column is declared, which
// function name backs SimilarTo fuzzy matching, the paging clause
// template, and per-Go-type datatype overrides for CREATE statement
// synthesis.
type Params struct {
	// Name is the dialect identifier this Params describes (Postgres,
	// MySQL, SQLite, or a host-registered custom name).
	Name string

	// QuoteChar wraps a quoted identifier: QuoteChar[0] is the open
	// character, QuoteChar[1] the close (e.g. `"` / `"`, or MySQL's
	// backtick on both sides).
	QuoteChar [2]byte

	// AutoIDColumnType is the SQL fragment used for an auto-generated id
	// column (e.g. "INTEGER AUTO_INCREMENT", "SERIAL", "BIGSERIAL").
	AutoIDColumnType string

	// FuzzyFunction is the SQL function name SimilarTo comparisons
	// compile to (e.g. "soundex", "dmetaphone").
	FuzzyFunction string

	// PagingTemplate is a printf-style template taking (offset, limit)
	// appended after ORDER BY when paging is requested. An empty template
	// disables paging for this dialect (storage.Query then reports
	// Unsupported rather than silently ignoring offset/limit).
	PagingTemplate string

	// Datatypes overrides the default SQL column type for a Go type; a
	// miss falls back to the package-level defaultDatatypes table.
	Datatypes map[reflect.Type]string
}

// Quote wraps name in this dialect's identifier quote characters.
func (p Params) Quote(name string) string {
	return string(p.QuoteChar[0]) + name + string(p.QuoteChar[1])
}

// DatatypeFor resolves the SQL column type for t, consulting this
// dialect's override table first, then the generic defaults.
func (p Params) DatatypeFor(t reflect.Type) (string, bool) {
	if p.Datatypes != nil {
		if sqlType, ok := p.Datatypes[t]; ok {
			return sqlType, true
		}
	}
	sqlType, ok := defaultDatatypes[t]
	return sqlType, ok
}

// SupportsPaging reports whether this dialect has a paging template.
func (p Params) SupportsPaging() bool { return p.PagingTemplate != "" }

var defaultDatatypes = map[reflect.Type]string{
	reflect.TypeOf(""):        "VARCHAR",
	reflect.TypeOf(int(0)):    "INTEGER",
	reflect.TypeOf(int32(0)):  "INTEGER",
	reflect.TypeOf(int64(0)):  "BIGINT",
	reflect.TypeOf(float32(0)): "REAL",
	reflect.TypeOf(float64(0)): "DOUBLE PRECISION",
	reflect.TypeOf(true):      "BOOLEAN",
	reflect.TypeOf([]byte(nil)): "BLOB",
}

// DefaultParams returns the spec's default parameter set for name, or the
// generic default (identifier quote `"`, soundex, OFFSET/LIMIT paging) for
// an unrecognized name.
func DefaultParams(name string) Params {
	switch name {
	case Postgres:
		return Params{
			Name:             Postgres,
			QuoteChar:        [2]byte{'"', '"'},
			AutoIDColumnType: "BIGSERIAL",
			FuzzyFunction:    "dmetaphone",
			PagingTemplate:   "OFFSET %d LIMIT %d",
			Datatypes: map[reflect.Type]string{
				reflect.TypeOf(""): "TEXT",
			},
		}
	case MySQL:
		return Params{
			Name:             MySQL,
			QuoteChar:        [2]byte{'`', '`'},
			AutoIDColumnType: "INTEGER AUTO_INCREMENT",
			FuzzyFunction:    "soundex",
			PagingTemplate:   "LIMIT %[2]d OFFSET %[1]d",
			Datatypes: map[reflect.Type]string{
				reflect.TypeOf(""): "TEXT",
			},
		}
	case SQLite:
		return Params{
			Name:             SQLite,
			QuoteChar:        [2]byte{'"', '"'},
			AutoIDColumnType: "INTEGER",
			FuzzyFunction:    "soundex",
			PagingTemplate:   "LIMIT %[2]d OFFSET %[1]d",
		}
	default:
		return Params{
			Name:             name,
			QuoteChar:        [2]byte{'"', '"'},
			AutoIDColumnType: "INTEGER AUTO_INCREMENT",
			FuzzyFunction:    "soundex",
			PagingTemplate:   "OFFSET %d LIMIT %d",
		}
	}
}
