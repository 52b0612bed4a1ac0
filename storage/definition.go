package storage

import "fmt"

// Key names a storage definition in the manager's registry. Hosts mint
// their own keys (a type name, a logical shard id, a test fixture name);
// the manager treats it as opaque.
type Key string

// DefaultKey is the reserved key consulted when a lookup carries no
// explicit key, set via Manager.SetDefault.
const DefaultKey Key = "\x00default"

// Definition is the opaque, comparable, serializable key identifying a
// physical store: equality is by connection parameters, never identity
// (spec §3, Invariant 2 — "a storage-definition key's equality implies
// interchangeability of resulting handles"). It is deliberately a plain
// comparable struct (no maps, slices, or funcs) so it can serve as a map
// key in the manager's per-caller handle cache.
type Definition struct {
	// DriverName names the database/sql driver (e.g. "postgres",
	// "mysql", "sqlite").
	DriverName string
	// DataSourceName is the driver-specific connection string or DSN.
	DataSourceName string
	// Dialect selects the dialect.Params preset (dialect.Postgres,
	// dialect.MySQL, dialect.SQLite, dialect.Default) used to render
	// SQL for handles opened against this definition.
	Dialect string
	// Properties is a canonical, caller-encoded string of any additional
	// connection properties that participate in equality (e.g. a sorted
	// "k=v&k2=v2" query string). Kept as a string rather than a map so
	// Definition stays comparable.
	Properties string
}

func (d Definition) String() string {
	if d.Properties == "" {
		return fmt.Sprintf("%s:%s", d.DriverName, d.Dialect)
	}
	return fmt.Sprintf("%s:%s?%s", d.DriverName, d.Dialect, d.Properties)
}

// IsZero reports whether d is the zero Definition (no definition
// registered for a key).
func (d Definition) IsZero() bool { return d == Definition{} }
