// Package storagecfg provides declarative configuration for storage
// definitions and their dialect parameters (spec §6, "Configuration"),
// plus a default mapping.CollectionParser implementation. Configuration is
// expressed in YAML, matching how a host application using this module
// would hand it a definitions file alongside its other service config.
package storagecfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/storage"
)

// DefinitionConfig is one entry in a storage definitions file: a storage
// key, its dialect name, and the connection parameters an Opener (storage
// package) needs to open it.
type DefinitionConfig struct {
	Key            string `yaml:"key"`
	Driver         string `yaml:"driver"`
	DataSourceName string `yaml:"dsn"`
	Dialect        string `yaml:"dialect"`
	Properties     string `yaml:"properties,omitempty"`
	Default        bool   `yaml:"default,omitempty"`
}

// DialectConfig overrides one of dialect.DefaultParams' presets, letting a
// host tune paging/quoting/auto-id behavior without a code change.
type DialectConfig struct {
	Name             string `yaml:"name"`
	QuoteOpen        string `yaml:"quote_open,omitempty"`
	QuoteClose       string `yaml:"quote_close,omitempty"`
	AutoIDColumnType string `yaml:"auto_id_column_type,omitempty"`
	FuzzyFunction    string `yaml:"fuzzy_function,omitempty"`
	PagingTemplate   string `yaml:"paging_template,omitempty"`
}

// Config is the top-level shape of a storage definitions YAML file.
type Config struct {
	Definitions []DefinitionConfig `yaml:"definitions"`
	Dialects    []DialectConfig    `yaml:"dialects,omitempty"`
	// DisableDelete mirrors the esoco.storage.disable_delete process
	// property (spec §6): when true, Manager.SetDisableDelete(true) should
	// be applied to every manager built from this config.
	DisableDelete bool `yaml:"disable_delete,omitempty"`
}

// Load parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storagecfg: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("storagecfg: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// DefinitionMap converts each DefinitionConfig into a storage.Definition
// keyed by storage.Key.
func (c *Config) DefinitionMap() map[storage.Key]storage.Definition {
	out := make(map[storage.Key]storage.Definition, len(c.Definitions))
	for _, d := range c.Definitions {
		out[storage.Key(d.Key)] = storage.Definition{
			DriverName:     d.Driver,
			DataSourceName: d.DataSourceName,
			Dialect:        d.Dialect,
			Properties:     d.Properties,
		}
	}
	return out
}

// DialectParams resolves dialect.Params for name, applying any matching
// DialectConfig override on top of dialect.DefaultParams(name).
func (c *Config) DialectParams(name string) dialect.Params {
	params := dialect.DefaultParams(name)
	for _, d := range c.Dialects {
		if d.Name != name {
			continue
		}
		if d.QuoteOpen != "" && d.QuoteClose != "" {
			params.QuoteChar = [2]byte{d.QuoteOpen[0], d.QuoteClose[0]}
		}
		if d.AutoIDColumnType != "" {
			params.AutoIDColumnType = d.AutoIDColumnType
		}
		if d.FuzzyFunction != "" {
			params.FuzzyFunction = d.FuzzyFunction
		}
		if d.PagingTemplate != "" {
			params.PagingTemplate = d.PagingTemplate
		}
		break
	}
	return params
}

// DefaultKey returns the Key of the definition marked default: true, if
// any, and whether one was found.
func (c *Config) DefaultKey() (storage.Key, bool) {
	for _, d := range c.Definitions {
		if d.Default {
			return storage.Key(d.Key), true
		}
	}
	return "", false
}
