package mapping

import (
	"reflect"
	"strings"
	"unicode"
)

// Flags captures the boolean metadata carried by an attribute descriptor.
type Flags uint16

const (
	IDFlag Flags = 1 << iota
	ParentFlag
	ReferenceFlag
	AutoGeneratedFlag
	MandatoryFlag
	UniqueFlag
	IndexedFlag
	// OmitNamespaceFlag requests that outgoing type-handle values be
	// mapped to their simple name rather than their fully qualified name.
	OmitNamespaceFlag
	// UUIDFlag marks an id attribute whose value the storage layer itself
	// generates (a random UUID string) on insert when the field is still
	// its zero value, rather than relying on the database's own auto-
	// increment column. Mutually exclusive with AutoGeneratedFlag in
	// practice: a column can't be both database-assigned and client-
	// assigned.
	UUIDFlag
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Attribute describes one persisted field of a mapped type.
type Attribute struct {
	// Name is the field name used by predicate.AttributeElement lookups.
	Name string
	// Datatype is the Go type the attribute's value is checked against
	// after conversion.
	Datatype reflect.Type
	Flags    Flags

	// StorageName, if set, overrides the generic storage name; SQLName,
	// if set, overrides the resolved SQL column identifier outright.
	StorageName string
	SQLName     string

	// Element/Key/Value datatype hints for collection- and map-valued
	// attributes, consulted by CheckAttributeValue's collection/map
	// parsing branch.
	ElementType reflect.Type
	KeyType     reflect.Type
	ValueType   reflect.Type

	// Length is the declared storage length for string/bytes datatypes.
	Length int

	// sqlNameCache holds the resolved, lower-cased, underscore-joined SQL
	// name once computed, per the "resolved name is cached on the
	// descriptor" rule.
	sqlNameCache string
}

// AttributeName implements predicate.AttributeRef, letting an Attribute
// stand in directly wherever a predicate wants an attribute reference.
func (a *Attribute) AttributeName() string { return a.Name }

// IsID reports whether this attribute is the mapping's id attribute.
func (a *Attribute) IsID() bool { return a.Flags.Has(IDFlag) }

// IsParent reports whether this attribute links a child row to its
// parent.
func (a *Attribute) IsParent() bool { return a.Flags.Has(ParentFlag) }

// IsReference reports whether this attribute stores the id of a
// referenced object in another mapping.
func (a *Attribute) IsReference() bool { return a.Flags.Has(ReferenceFlag) }

// IsAutoGenerated reports whether the storage layer assigns this
// attribute's value (typically the id) on insert.
func (a *Attribute) IsAutoGenerated() bool { return a.Flags.Has(AutoGeneratedFlag) }

// IsUUIDGenerated reports whether the storage layer should assign this
// attribute a generated UUID string on insert, in place of relying on the
// database to auto-increment it.
func (a *Attribute) IsUUIDGenerated() bool { return a.Flags.Has(UUIDFlag) }

// ResolvedSQLName resolves this attribute's column identifier, per the
// priority explicit SQL name -> generic storage name -> display name
// (Name) split from camelCase into snake_case. The result is cached on
// the attribute so repeat resolution is O(1).
func (a *Attribute) ResolvedSQLName() string {
	if a.sqlNameCache != "" {
		return a.sqlNameCache
	}
	name := a.SQLName
	if name == "" {
		name = a.StorageName
	}
	if name == "" {
		name = camelToSnake(a.Name)
	}
	a.sqlNameCache = name
	return name
}

func camelToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ChildMapping pairs a child type's Mapping with the collection-valued
// attribute on the parent that holds its children.
type ChildMapping struct {
	Mapping             Mapping
	CollectionAttribute *Attribute
}
