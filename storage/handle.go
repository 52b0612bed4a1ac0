package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
	"github.com/esoco/esoco-storage/storagelog"
)

// Handle is a live, usage-counted wrapper over a physical connection and
// its dialect parameters (component E). It is the only type in this
// package that actually issues SQL; Query/Store/Delete/DDL all funnel
// through it. Handles are obtained from a Manager (GetStorage/NewStorage)
// and returned to it via Release; hosts never construct one directly.
type Handle struct {
	manager *Manager
	def     Definition
	key     Key
	driver  dialect.Driver
	params  dialect.Params
	managed bool
	caller  CallerID
	log     storagelog.Logger

	mu     sync.Mutex
	usage  int
	closed bool
	tx     dialect.Tx // non-nil while a transaction is open on this handle

	// properties is the bag-of-properties from spec §3 ("Storage
	// handle"), filled by SetProperty. Query and the executor do not
	// read it: query depth, offset and limit come from the
	// QueryPredicate alone.
	properties map[string]any
}

func newHandle(m *Manager, def Definition, key Key, drv dialect.Driver, managed bool, caller CallerID) *Handle {
	return &Handle{
		manager:    m,
		def:        def,
		key:        key,
		driver:     drv,
		params:     dialect.DefaultParams(def.Dialect),
		managed:    managed,
		caller:     caller,
		log:        m.log,
		usage:      1,
		properties: make(map[string]any),
	}
}

// SetProperty stores a named handle-level property.
func (h *Handle) SetProperty(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.properties[name] = value
}

func (h *Handle) property(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.properties[name]
	return v, ok
}

func (h *Handle) acquire() {
	h.mu.Lock()
	h.usage++
	h.mu.Unlock()
}

// release decrements the usage count and returns what remains.
func (h *Handle) release() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.usage > 0 {
		h.usage--
	}
	return h.usage
}

// Release hands the handle back to the manager that produced it,
// decrementing its usage count; at zero it is evicted (if managed) and
// closed. Reaching zero on an unmanaged handle (from Manager.NewStorage)
// always closes it, since nothing else holds a reference.
func (h *Handle) Release() error {
	return h.manager.releaseStorage(h)
}

func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.tx != nil {
		_ = h.tx.Rollback()
		h.tx = nil
	}
	return NewStorageError("close", h.driver.Close())
}

// IsValid reports whether the handle has not yet been closed. It does not
// contact the driver, so a connection lost underneath an open handle still
// reports true.
func (h *Handle) IsValid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

func (h *Handle) inTx() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx != nil
}

// execQuerier returns whichever of the open transaction or the base
// driver statements should run against.
func (h *Handle) execQuerier() dialect.ExecQuerier {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tx != nil {
		return h.tx
	}
	return h.driver
}

// BeginTx opens a transaction on this handle; it is a no-op error
// (ErrTxStarted) if one is already open, matching "no implicit
// auto-commit" (spec §5) — callers must Commit or Rollback before
// starting another.
func (h *Handle) BeginTx() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tx != nil {
		return ErrTxStarted
	}
	tx, err := h.driver.Tx(context.Background())
	if err != nil {
		return NewStorageError("begin", err)
	}
	h.tx = tx
	return nil
}

// Commit commits the open transaction; a no-op if the driver has no
// transaction open (e.g. a non-transactional dialect).
func (h *Handle) Commit() error {
	h.mu.Lock()
	tx := h.tx
	h.tx = nil
	h.mu.Unlock()
	if tx == nil {
		return nil
	}
	return NewStorageError("commit", tx.Commit())
}

// Rollback rolls back the open transaction; a no-op if none is open.
func (h *Handle) Rollback() error {
	h.mu.Lock()
	tx := h.tx
	h.tx = nil
	h.mu.Unlock()
	if tx == nil {
		return nil
	}
	return NewStorageError("rollback", tx.Rollback())
}

// Query compiles qp against m and returns a fresh, unexecuted Query bound
// to this handle.
func (h *Handle) Query(qp predicate.QueryPredicate, m mapping.Mapping) (*Query, error) {
	return newQuery(h, qp, m)
}

// QueryFor builds a QueryPredicate for every instance of the type m
// describes (AlwaysTrue criteria) and compiles it. A convenience for the
// common "give me every row" case.
func (h *Handle) QueryFor(m mapping.Mapping) (*Query, error) {
	return h.Query(predicate.QueryPredicate{Type: m.Type(), Criteria: predicate.AlwaysTrue, Depth: predicate.UnboundedDepth}, m)
}

// Delete removes object's row. It fails with a *StorageError before
// issuing any SQL if m.IsDeleteAllowed() is false or the manager's
// esoco.storage.disable_delete property is set (spec §6, §7 "Delete
// pathway").
func (h *Handle) Delete(ctx context.Context, m mapping.Mapping, object any) error {
	if !m.IsDeleteAllowed() {
		return NewStorageError("delete", fmt.Errorf("deletes are not allowed for %s", m.Type()))
	}
	if h.manager.deleteDisabled() {
		return NewStorageError("delete", fmt.Errorf("esoco.storage.disable_delete is set"))
	}
	idAttr := m.IDAttribute()
	if idAttr == nil {
		return mapping.NewError("delete", "%s has no id attribute", m.Type())
	}
	id, err := m.GetValue(object, idAttr)
	if err != nil {
		return err
	}
	table := h.params.Quote(tableNameFor(m))
	idCol := sqlcompileQuotedName(idAttr, h.params)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, idCol)
	if err := h.execQuerier().Exec(ctx, query, []any{id}, nil); err != nil {
		return NewStorageError("delete", err)
	}
	return nil
}

// InitObjectStorage creates m's table (and, recursively, its referenced
// child tables) if it does not already exist. See ddl.go.
func (h *Handle) InitObjectStorage(ctx context.Context, m mapping.Mapping) error {
	return h.initObjectStorage(ctx, m, map[string]bool{})
}

// HasObjectStorage reports whether m's table already exists.
func (h *Handle) HasObjectStorage(ctx context.Context, m mapping.Mapping) (bool, error) {
	return h.hasTable(ctx, tableNameFor(m))
}

// RemoveObjectStorage drops m's table if it exists.
func (h *Handle) RemoveObjectStorage(ctx context.Context, m mapping.Mapping) error {
	return h.dropTable(ctx, tableNameFor(m))
}
