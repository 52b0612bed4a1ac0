package storagecfg

import (
	"context"
	"fmt"

	"github.com/esoco/esoco-storage/dialect"
	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/storage"
)

// Opener returns a storage.Opener that opens def's DriverName/DataSourceName
// through database/sql, the same way storage.Manager.Register expects.
func Opener() storage.Opener {
	return func(_ context.Context, def storage.Definition) (dialect.Driver, error) {
		drv, err := dialectsql.Open(def.DriverName, def.DataSourceName)
		if err != nil {
			return nil, fmt.Errorf("storagecfg: opening %s: %w", def.DriverName, err)
		}
		return drv, nil
	}
}

// Register configures the existing manager m from cfg: every definition registered
// under its configured key (and as the default, if marked), disable_delete
// applied, all sharing the single database/sql-backed Opener.
func Register(m *storage.Manager, cfg *Config) error {
	opener := Opener()
	for _, dc := range cfg.Definitions {
		def := storage.Definition{
			DriverName:     dc.Driver,
			DataSourceName: dc.DataSourceName,
			Dialect:        dc.Dialect,
			Properties:     dc.Properties,
		}
		if err := m.Register(def, opener, storage.Key(dc.Key)); err != nil {
			return err
		}
		if dc.Default {
			if err := m.SetDefault(def, opener); err != nil {
				return err
			}
		}
	}
	m.SetDisableDelete(cfg.DisableDelete)
	return nil
}
