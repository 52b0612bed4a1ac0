package storage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/storagelog"
)

// CallerID identifies the logical caller whose handle cache is being
// consulted. The source language gives every thread an implicit
// thread-local cache (spec §9, "Per-thread caches"); Go has no thread
// identity to hang that off of, so callers supply their own id explicitly
// — typically a goroutine-scoped value threaded through context, or a
// worker-pool slot name. Two calls with the same CallerID against the
// same Definition share a handle; different CallerIDs never do.
type CallerID string

// Opener obtains a dialect.Driver for def. Concrete drivers are out of
// scope for this package (spec §1 Non-goals: "the core consumes a
// connection factory"); hosts register one Opener per Definition.
type Opener func(ctx context.Context, def Definition) (dialect.Driver, error)

// MappingFactory synthesizes a mapping.Mapping for t when no mapping has
// been registered directly against t. Factories are consulted in
// registration order; the first that reports ok=true wins.
type MappingFactory func(t reflect.Type) (mapping.Mapping, bool)

type registration struct {
	def    Definition
	opener Opener
}

// Manager is the process-wide, thread-safe registry of storage
// definitions and mappings, and the per-caller handle cache (component F).
type Manager struct {
	mu sync.RWMutex

	regByKey map[Key]registration
	def      Definition // not written by any Manager method; registrations live in regByKey

	mappingsByType map[reflect.Type]mapping.Mapping
	factories      []MappingFactory
	factoryGroup   singleflight.Group

	// handles is keyed by CallerID, then by Definition, so two different
	// callers against the same Definition never share a handle, and one
	// caller reusing the same Definition always does (spec §3,
	// Invariant 3 and §4.6 state machine).
	handlesMu sync.Mutex
	handles   map[CallerID]map[Definition]*Handle

	log               storagelog.Logger
	disableDelete     bool
	childCountColumns bool
}

// NewManager constructs an empty Manager. log may be nil, in which case
// storagelog.Nop() is used.
func NewManager(log storagelog.Logger) *Manager {
	if log == nil {
		log = storagelog.Nop()
	}
	return &Manager{
		regByKey:          make(map[Key]registration),
		mappingsByType:    make(map[reflect.Type]mapping.Mapping),
		handles:           make(map[CallerID]map[Definition]*Handle),
		log:               log,
		childCountColumns: true,
	}
}

// SetDisableDelete implements the esoco.storage.disable_delete process
// property from spec §6: when set, every Handle.Delete through handles
// from this manager fails before issuing SQL.
func (m *Manager) SetDisableDelete(disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disableDelete = disabled
}

func (m *Manager) deleteDisabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disableDelete
}

// Register maps def under every key. An opener is required so the
// manager can materialize a connection on first use of any of the keys.
func (m *Manager) Register(def Definition, opener Opener, keys ...Key) error {
	if opener == nil {
		return NewUnsupported("register", "nil opener")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := registration{def: def, opener: opener}
	for _, k := range keys {
		m.regByKey[k] = reg
	}
	return nil
}

// SetDefault registers def under the reserved DefaultKey, consulted by
// GetStorage/NewStorage when called with DefaultKey or an unregistered
// key that falls back to it.
func (m *Manager) SetDefault(def Definition, opener Opener) error {
	return m.Register(def, opener, DefaultKey)
}

// RegisterMappingFactory appends factory to the ordered registry
// consulted by GetMapping when the requested type has no
// directly-registered mapping; factory itself decides which types it
// handles (e.g. by its own reflect.Type.AssignableTo check).
func (m *Manager) RegisterMappingFactory(factory MappingFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories = append(m.factories, factory)
}

// RegisterMapping associates mp directly with its own Type(), taking
// priority over any factory (spec §3, Invariant 1: exactly one mapping
// per type).
func (m *Manager) RegisterMapping(mp mapping.Mapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappingsByType[mp.Type()] = mp
}

// GetMapping resolves the mapping for t: a directly registered mapping,
// else the first factory that produces one, else an error — this
// package never synthesizes a default reflection-based mapping itself
// (spec §9 pushes that derivation to the host; mapping.Base is the tool
// a host factory uses to build one).
func (m *Manager) GetMapping(t reflect.Type) (mapping.Mapping, error) {
	m.mu.RLock()
	if mp, ok := m.mappingsByType[t]; ok {
		m.mu.RUnlock()
		return mp, nil
	}
	factories := m.factories
	m.mu.RUnlock()

	v, err, _ := m.factoryGroup.Do(t.String(), func() (any, error) {
		for _, f := range factories {
			if mp, ok := f(t); ok {
				m.mu.Lock()
				m.mappingsByType[t] = mp
				m.mu.Unlock()
				return mp, nil
			}
		}
		return nil, mapping.NewError("get_mapping", "no mapping registered or derivable for %s", t)
	})
	if err != nil {
		return nil, err
	}
	return v.(mapping.Mapping), nil
}

// MappingFor implements sqlcompile.Resolver, letting the SQL compiler
// resolve sub-query/join mappings through the same registry.
func (m *Manager) MappingFor(t reflect.Type) (mapping.Mapping, bool) {
	mp, err := m.GetMapping(t)
	if err != nil {
		return nil, false
	}
	return mp, true
}

func (m *Manager) resolve(key Key) (registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.regByKey[key]
	if !ok && key != DefaultKey {
		reg, ok = m.regByKey[DefaultKey]
	}
	if !ok {
		return registration{}, NewUnsupported("get_storage", fmt.Sprintf("no storage definition registered for key %q", key))
	}
	return reg, nil
}

// GetStorage resolves key (falling back to the default definition) and
// returns a managed Handle for caller: a first call opens and caches a
// new Handle at usage=1; a repeated call from the same caller against
// the same Definition returns the identical Handle with usage
// incremented (spec §3, Invariant 3; spec §4.6 state machine).
func (m *Manager) GetStorage(ctx context.Context, caller CallerID, key Key) (*Handle, error) {
	reg, err := m.resolve(key)
	if err != nil {
		return nil, err
	}

	m.handlesMu.Lock()
	defer m.handlesMu.Unlock()

	perCaller, ok := m.handles[caller]
	if !ok {
		perCaller = make(map[Definition]*Handle)
		m.handles[caller] = perCaller
	}
	if h, ok := perCaller[reg.def]; ok && h.IsValid() {
		h.acquire()
		return h, nil
	}

	drv, err := reg.opener(ctx, reg.def)
	if err != nil {
		return nil, NewStorageError("get_storage", err)
	}
	h := newHandle(m, reg.def, key, drv, true, caller)
	perCaller[reg.def] = h
	return h, nil
}

// NewStorage always opens a fresh, unmanaged Handle for def's key: the
// caller owns its lifecycle outright and it is never shared or cached.
func (m *Manager) NewStorage(ctx context.Context, key Key) (*Handle, error) {
	reg, err := m.resolve(key)
	if err != nil {
		return nil, err
	}
	drv, err := reg.opener(ctx, reg.def)
	if err != nil {
		return nil, NewStorageError("new_storage", err)
	}
	return newHandle(m, reg.def, key, drv, false, ""), nil
}

// releaseStorage decrements h's usage count; at zero, a managed handle is
// evicted from its caller's cache and closed.
func (m *Manager) releaseStorage(h *Handle) error {
	remaining := h.release()
	if remaining > 0 {
		return nil
	}
	if h.managed {
		m.handlesMu.Lock()
		if perCaller, ok := m.handles[h.caller]; ok {
			delete(perCaller, h.def)
			if len(perCaller) == 0 {
				delete(m.handles, h.caller)
			}
		}
		m.handlesMu.Unlock()
	}
	return h.close()
}

// IsPersistent reports whether value's mapping treats it as already
// persisted, per mapping.Persistable; values whose type does not
// implement Persistable are always considered not-yet-persistent.
func (m *Manager) IsPersistent(value any) bool {
	p, ok := value.(mapping.Persistable)
	return ok && p.IsPersistent()
}

// Shutdown closes every cached handle across every caller, aggregating
// any close errors.
func (m *Manager) Shutdown() error {
	m.handlesMu.Lock()
	var handles []*Handle
	for _, perCaller := range m.handles {
		for _, h := range perCaller {
			handles = append(handles, h)
		}
	}
	m.handles = make(map[CallerID]map[Definition]*Handle)
	m.handlesMu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return NewAggregateError(errs...)
}
