package storagecfg

// Blank-imported so database/sql.Open("postgres", ...) and
// database/sql.Open("mysql", ...) resolve once a host imports storagecfg,
// the same way modernc.org/sqlite is blank-imported by storage's own
// integration test. storagecfg.Opener (opener.go) never imports a driver
// package itself — the dialect-to-driver-package association lives here,
// at the configuration layer, since that is the layer that already knows
// which dialect names a deployment actually uses.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
