// Package mapping describes how a domain type projects onto a relational
// table: its attributes, id attribute, parent/child hierarchy, reference
// attributes, and the value-conversion rules applied at the storage
// boundary.
//
// A Mapping is language-independent in the sense the original design
// intends: it does not require reflection over struct tags. The spec's
// "reflection-based default mapping" is replaced, per its own design
// notes, with explicit user-authored Mapping implementations, one per
// domain type, registered with a storage.Manager.
//
// Mappings never return wrapped "storage errors" (that is the handle
// layer's job, see package storage); errors returned here are always the
// second error kind from the design — mapping/argument errors — and are
// plain, unwrapped errors a caller can inspect with errors.As against the
// *mapping.Error type.
package mapping
