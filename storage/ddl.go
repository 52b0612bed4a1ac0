package storage

import (
	"context"
	"fmt"
	"strings"

	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/mapping"
)

// initObjectStorage creates m's table if it does not already exist, then
// recursively initializes storage for every reference attribute's mapping
// and every child mapping (spec §4.6, "Init object storage"). seen guards
// against revisiting a type already initialized in this call tree — self
// references and parent/child cycles would otherwise recurse forever.
func (h *Handle) initObjectStorage(ctx context.Context, m mapping.Mapping, seen map[string]bool) error {
	table := tableNameFor(m)
	if seen[table] {
		return nil
	}
	seen[table] = true

	exists, err := h.hasTable(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		if err := h.createTable(ctx, m); err != nil {
			return err
		}
	}

	for _, attr := range m.Attributes() {
		if !attr.IsReference() {
			continue
		}
		refMapping, ok := h.manager.MappingFor(attr.Datatype)
		if !ok {
			continue
		}
		if err := h.initObjectStorage(ctx, refMapping, seen); err != nil {
			return err
		}
	}
	for _, cm := range m.ChildMappings() {
		if err := h.initObjectStorage(ctx, cm.Mapping, seen); err != nil {
			return err
		}
	}
	return nil
}

// createTable renders and executes a CREATE TABLE statement for m: one
// column per attribute (auto-generated id columns use the dialect's
// AutoIDColumnType rather than DatatypeFor), a PRIMARY KEY clause on the id
// attribute, a child-count integer column per child mapping when the
// manager's child-count columns are enabled, and a trailing UNIQUE/NOT NULL
// per attribute flags (spec §6, "Column synthesis").
func (h *Handle) createTable(ctx context.Context, m mapping.Mapping) error {
	var cols []string
	idAttr := m.IDAttribute()

	for _, attr := range m.Attributes() {
		cols = append(cols, h.columnDef(attr, idAttr))
	}
	if idAttr != nil {
		cols = append(cols, "PRIMARY KEY ("+sqlcompileQuotedName(idAttr, h.params)+")")
	}
	if h.manager.childCountColumns {
		for _, cm := range m.ChildMappings() {
			cols = append(cols, fmt.Sprintf("%s INTEGER", childCountColumn(h.params, cm)))
		}
	}

	query := fmt.Sprintf("CREATE TABLE %s (%s)", h.params.Quote(tableNameFor(m)), strings.Join(cols, ", "))
	if err := h.execQuerier().Exec(ctx, query, nil, nil); err != nil {
		return NewStorageError("init_object_storage", err)
	}

	for _, attr := range m.Attributes() {
		if !attr.Flags.Has(mapping.IndexedFlag) || attr.IsID() {
			continue
		}
		idxName := tableNameFor(m) + "_" + attr.ResolvedSQLName() + "_idx"
		idxQuery := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			h.params.Quote(idxName), h.params.Quote(tableNameFor(m)), sqlcompileQuotedName(attr, h.params))
		if err := h.execQuerier().Exec(ctx, idxQuery, nil, nil); err != nil {
			return NewStorageError("init_object_storage", err)
		}
	}
	return nil
}

// columnDef renders one column clause. The id attribute gets the dialect's
// auto-id type when AutoGeneratedFlag is set; everything else resolves
// through dialect.Params.DatatypeFor, falling back to the widest portable
// type (TEXT) when the Go type has no registered SQL datatype.
func (h *Handle) columnDef(attr *mapping.Attribute, idAttr *mapping.Attribute) string {
	var sqlType string
	if attr == idAttr && attr.IsAutoGenerated() {
		sqlType = h.params.AutoIDColumnType
	} else if t, ok := h.params.DatatypeFor(attr.Datatype); ok {
		sqlType = t
	} else {
		sqlType = "TEXT"
	}
	if attr.Length > 0 && !attr.IsAutoGenerated() {
		sqlType = fmt.Sprintf("%s(%d)", sqlType, attr.Length)
	}

	def := sqlcompileQuotedName(attr, h.params) + " " + sqlType
	if attr.Flags.Has(mapping.MandatoryFlag) {
		def += " NOT NULL"
	}
	if attr.Flags.Has(mapping.UniqueFlag) {
		def += " UNIQUE"
	}
	return def
}

// hasTable reports whether table already exists, via a dialect-appropriate
// catalog query (spec §4.6, "Has object storage"). Dialects without a
// recognized catalog query (a host-registered custom dialect name) fall
// back to attempting a zero-row SELECT and treating any error as "does not
// exist" — the same technique ent's schema/migrate package uses when no
// INFORMATION_SCHEMA is available.
func (h *Handle) hasTable(ctx context.Context, table string) (bool, error) {
	var query string
	var args []any
	switch h.params.Name {
	case "postgres":
		query = "SELECT 1 FROM information_schema.tables WHERE table_name = ?"
		args = []any{table}
	case "mysql":
		query = "SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
		args = []any{table}
	case "sqlite":
		query = "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?"
		args = []any{table}
	default:
		probe := fmt.Sprintf("SELECT 1 FROM %s WHERE 1 = 0", h.params.Quote(table))
		var rows dialectsql.Rows
		if err := h.execQuerier().Query(ctx, probe, nil, &rows); err != nil {
			return false, nil
		}
		rows.Close()
		return true, nil
	}

	var rows dialectsql.Rows
	if err := h.execQuerier().Query(ctx, query, args, &rows); err != nil {
		return false, NewStorageError("has_object_storage", err)
	}
	defer rows.Close()
	return rows.Next(), nil
}

// dropTable drops table if it exists (spec §4.6, "Remove object storage").
func (h *Handle) dropTable(ctx context.Context, table string) error {
	exists, err := h.hasTable(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	query := "DROP TABLE " + h.params.Quote(table)
	return NewStorageError("remove_object_storage", h.execQuerier().Exec(ctx, query, nil, nil))
}
