package storage

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/mapping"
)

// Store writes objOrSlice (a single domain object, or a slice of them) per
// spec §4.5: for each element, referenced objects are stored first
// (reference-first policy), then the element's own row (insert if not yet
// persistent, update otherwise), then its children. The whole call is
// bracketed in one transaction (spec §5, "no implicit auto-commit"),
// joining an already-open one if the caller started one explicitly.
func (h *Handle) Store(ctx context.Context, objOrSlice any) error {
	items, err := flattenStoreArg(objOrSlice)
	if err != nil {
		return err
	}
	group, err := beginGroup(h)
	if err != nil {
		return err
	}
	for _, obj := range items {
		if err := h.storeOne(ctx, obj); err != nil {
			return group.RollbackSwallowed(h.log, err)
		}
	}
	return group.Commit()
}

func flattenStoreArg(v any) ([]any, error) {
	if v == nil {
		return nil, mapping.NewError("store", "cannot store a nil value")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	}
	return []any{v}, nil
}

func (h *Handle) storeOne(ctx context.Context, obj any) error {
	m, err := h.manager.GetMapping(reflect.TypeOf(obj))
	if err != nil {
		return err
	}

	if p, ok := obj.(mapping.Persistable); ok {
		// A reference store never recurses into an object already
		// flagged storing (spec §3, Invariant 5).
		if p.IsStoring() {
			return nil
		}
		p.SetStoring(true)
		defer p.SetStoring(false)
	}

	if err := h.storeReferences(ctx, m, obj); err != nil {
		return err
	}

	persistent := h.manager.IsPersistent(obj)
	writeNeeded := true
	if p, ok := obj.(mapping.Persistable); ok && persistent {
		writeNeeded = p.IsModified()
	}
	if writeNeeded {
		if persistent {
			if err := h.update(ctx, m, obj); err != nil {
				return err
			}
		} else if err := h.insert(ctx, m, obj); err != nil {
			return err
		}
	}

	if p, ok := obj.(mapping.Persistable); ok {
		p.SetPersistent(true)
		p.SetModified(false)
	}
	if as, ok := obj.(mapping.AfterStorer); ok {
		if err := as.AfterStore(); err != nil {
			return err
		}
	}

	return h.storeChildren(ctx, m, obj)
}

// storeReferences stores every non-hierarchy reference attribute's
// current object ahead of obj's own row (spec §5, "a store of an object
// performs reference stores before the object's own row").
func (h *Handle) storeReferences(ctx context.Context, m mapping.Mapping, obj any) error {
	accessor, ok := m.(mapping.ReferenceAccessor)
	if !ok {
		return nil
	}
	for _, attr := range m.Attributes() {
		if !attr.IsReference() || m.IsHierarchyAttribute(attr) {
			continue
		}
		referenced, err := accessor.GetReferencedObject(obj, attr)
		if err != nil {
			return err
		}
		if referenced == nil {
			continue
		}
		if p, ok := referenced.(mapping.Persistable); ok && p.IsStoring() {
			continue
		}
		if err := h.storeReference(ctx, obj, referenced); err != nil {
			return err
		}
	}
	return nil
}

// storeReference implements the default store_reference policy (spec
// §4.2): open a transaction (or join one already open), store referenced,
// commit; on error roll back and swallow a rollback failure into a
// logged, documented RollbackError (spec §9). A mapping may override this
// entirely via mapping.ReferenceStorer.
func (h *Handle) storeReference(ctx context.Context, source, referenced any) error {
	if m, err := h.manager.GetMapping(reflect.TypeOf(source)); err == nil {
		if rs, ok := m.(mapping.ReferenceStorer); ok {
			return rs.StoreReference(source, referenced)
		}
	}
	group, err := beginGroup(h)
	if err != nil {
		return err
	}
	if err := h.storeOne(ctx, referenced); err != nil {
		return group.RollbackSwallowed(h.log, err)
	}
	return group.Commit()
}

func (h *Handle) storeChildren(ctx context.Context, m mapping.Mapping, obj any) error {
	for _, cm := range m.ChildMappings() {
		children, err := m.GetChildren(obj, cm)
		if err != nil {
			return err
		}
		if children == nil {
			continue
		}
		// An unmaterialized lazy list carries nothing new to write;
		// forcing materialization here would issue a query purely to
		// discover there is nothing to store (spec §9's child-count
		// invariant: a lazy list must already be materialized before
		// being mutated, so an unmaterialized one is by construction
		// unmutated).
		if ll, ok := children.(*LazyList); ok {
			if !ll.Materialized() {
				continue
			}
			items, err := ll.Items(ctx)
			if err != nil {
				return err
			}
			children = items
		}
		rv := reflect.ValueOf(children)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			continue
		}
		childObjs := make([]any, rv.Len())
		for i := range childObjs {
			childObjs[i] = rv.Index(i).Interface()
		}
		for _, child := range childObjs {
			if err := h.storeOne(ctx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handle) insert(ctx context.Context, m mapping.Mapping, obj any) error {
	idAttr := m.IDAttribute()
	var cols []string
	var placeholders []string
	var args []any
	var autoID *mapping.Attribute

	for _, attr := range m.Attributes() {
		if attr.IsAutoGenerated() && idAttr != nil && attr == idAttr {
			autoID = attr
			continue
		}
		if idAttr != nil && attr == idAttr {
			if err := assignUUIDIfNeeded(m, obj, attr); err != nil {
				return err
			}
		}
		value, err := m.GetValue(obj, attr)
		if err != nil {
			return err
		}
		mapped, err := m.MapValue(attr, value)
		if err != nil {
			return err
		}
		cols = append(cols, sqlcompileQuotedName(attr, h.params))
		placeholders = append(placeholders, "?")
		args = append(args, mapped)
	}

	table := h.params.Quote(tableNameFor(m))
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if autoID == nil {
		return NewStorageError("insert", h.execQuerier().Exec(ctx, query, args, nil))
	}

	if h.params.Name == "postgres" {
		idCol := sqlcompileQuotedName(autoID, h.params)
		query += " RETURNING " + idCol
		var rows dialectsql.Rows
		if err := h.execQuerier().Query(ctx, query, args, &rows); err != nil {
			return NewStorageError("insert", err)
		}
		defer rows.Close()
		var id int64
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				return NewStorageError("insert", err)
			}
		}
		return m.SetValue(obj, autoID, id)
	}

	var res dialectsql.Result
	if err := h.execQuerier().Exec(ctx, query, args, &res); err != nil {
		return NewStorageError("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NewStorageError("insert", err)
	}
	return m.SetValue(obj, autoID, id)
}

func (h *Handle) update(ctx context.Context, m mapping.Mapping, obj any) error {
	idAttr := m.IDAttribute()
	if idAttr == nil {
		return mapping.NewError("update", "%s has no id attribute", m.Type())
	}
	var sets []string
	var args []any
	for _, attr := range m.Attributes() {
		if attr == idAttr {
			continue
		}
		value, err := m.GetValue(obj, attr)
		if err != nil {
			return err
		}
		mapped, err := m.MapValue(attr, value)
		if err != nil {
			return err
		}
		sets = append(sets, sqlcompileQuotedName(attr, h.params)+" = ?")
		args = append(args, mapped)
	}
	id, err := m.GetValue(obj, idAttr)
	if err != nil {
		return err
	}
	args = append(args, id)

	table := h.params.Quote(tableNameFor(m))
	idCol := sqlcompileQuotedName(idAttr, h.params)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), idCol)
	return NewStorageError("update", h.execQuerier().Exec(ctx, query, args, nil))
}
