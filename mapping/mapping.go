package mapping

import (
	"reflect"

	"github.com/esoco/esoco-storage/predicate"
)

// Mapping is the per-type schema object: the full description of how a
// domain type is persisted. Host applications implement one Mapping per
// type and register it with a storage.Manager (either directly or via a
// mapping factory keyed by a base type).
type Mapping interface {
	// Type returns the Go type this mapping describes.
	Type() reflect.Type

	// Attributes returns the mapping's attributes in stable, declared
	// order.
	Attributes() []*Attribute

	// IDAttribute returns the id attribute.
	IDAttribute() *Attribute

	// ParentAttribute returns the attribute that links an instance of
	// this mapping back to its parent under parentMapping, or nil if
	// this mapping is not a child of parentMapping.
	ParentAttribute(parentMapping Mapping) *Attribute

	// ChildMappings returns the set of child mappings keyed by the
	// collection-valued attribute that holds them.
	ChildMappings() []ChildMapping

	// GetValue returns the current value of attr on object. For a
	// reference attribute this is the referenced object's id, not the
	// referenced object itself.
	GetValue(object any, attr *Attribute) (any, error)

	// SetValue assigns value to attr on object.
	SetValue(object any, attr *Attribute, value any) error

	// GetChildren returns the current collection held by the
	// collection-valued attribute described by child.
	GetChildren(object any, child ChildMapping) (any, error)

	// SetChildren installs list as the collection held by the
	// collection-valued attribute described by child.
	SetChildren(object any, list any, child ChildMapping) error

	// InitChildren back-fills each element of list's parent
	// back-reference to object, for the given child mapping.
	InitChildren(object any, list any, child ChildMapping) error

	// CreateObject constructs a new instance from values given in
	// Attributes() order. asChild is true when the instance is being
	// materialized as part of a child sub-query.
	CreateObject(values []any, asChild bool) (any, error)

	// CheckAttributeValue normalizes an incoming value against attr's
	// declared datatype, per the conversion policy documented on the
	// package-level CheckAttributeValue function.
	CheckAttributeValue(attr *Attribute, incoming any) (any, error)

	// MapValue converts outgoing to its wire representation for attr.
	MapValue(attr *Attribute, outgoing any) (any, error)

	// DefaultCriteria returns an optional filter folded into every query
	// against subtype (subtype may equal Type() or a subtype of it), or
	// predicate.AlwaysTrue if there is none.
	DefaultCriteria(subtype reflect.Type) predicate.Criteria

	// IsDeleteAllowed reports whether instances of this mapping may be
	// deleted.
	IsDeleteAllowed() bool

	// IsHierarchyAttribute reports whether attr participates in a
	// self-referential parent/child hierarchy (as opposed to an ordinary
	// cross-type reference).
	IsHierarchyAttribute(attr *Attribute) bool
}

// ReferenceStorer is implemented by mappings that need to override the
// default store_reference behavior (open a transaction, store the
// referenced object, commit; roll back on error). Most mappings do not
// need to implement this; storage.Handle falls back to the default
// behavior described in spec §4.2 when a mapping does not implement it.
type ReferenceStorer interface {
	// StoreReference stores referenced as a dependency of source. See
	// storage.Handle.storeReference for the default policy this
	// overrides.
	StoreReference(source, referenced any) error
}

// Persistable is implemented by domain objects that track their own
// persistence bookkeeping (the persistent/storing/modified flags from
// spec §3 Invariants 4-6). Objects that do not implement Persistable are
// always treated as "not yet persistent" and always re-written on update.
type Persistable interface {
	// IsPersistent reports the monotonic persistent flag.
	IsPersistent() bool
	SetPersistent(bool)
	// IsStoring reports the storing flag, used to prevent a reference
	// store from recursing into an object already being stored.
	IsStoring() bool
	SetStoring(bool)
	// IsModified gates whether attributes are re-written on update; its
	// absence (a type not implementing Persistable) means "always write".
	IsModified() bool
	SetModified(bool)
}

// AfterStorer is implemented by domain objects that want a hook invoked
// after a successful store.
type AfterStorer interface {
	AfterStore() error
}
