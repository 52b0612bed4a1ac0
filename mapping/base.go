package mapping

import (
	"reflect"

	"github.com/esoco/esoco-storage/predicate"
)

// Base is an embeddable helper that gives a hand-written Mapping the
// common reflection-driven plumbing: GetValue/SetValue/CreateObject
// implemented once against a Go struct type, keyed by Attribute.Name
// matching an exported struct field name. Host mappings embed Base,
// supply Attrs/IDAttr/Children/ParentAttr/Criteria/DeleteAllowed, and
// override any method (e.g. GetValue, for a computed attribute) where
// the reflection default is not enough.
type Base struct {
	GoType       reflect.Type
	Attrs        []*Attribute
	IDAttr       *Attribute
	Children     []ChildMapping
	ParentAttrFn func(parent Mapping) *Attribute
	Criteria     predicate.Criteria
	DeleteAllowed bool
	Hierarchy    map[string]bool

	// Parser and Resolver are optional host-supplied helpers consulted by
	// CheckAttributeValue/MapValue for collection/map and type-handle
	// attributes; nil is valid when a mapping has no such attributes.
	Parser   CollectionParser
	Resolver TypeResolver
}

func (b *Base) Type() reflect.Type            { return b.GoType }
func (b *Base) Attributes() []*Attribute      { return b.Attrs }
func (b *Base) IDAttribute() *Attribute       { return b.IDAttr }
func (b *Base) ChildMappings() []ChildMapping { return b.Children }
func (b *Base) IsDeleteAllowed() bool         { return b.DeleteAllowed }

func (b *Base) ParentAttribute(parent Mapping) *Attribute {
	if b.ParentAttrFn == nil {
		return nil
	}
	return b.ParentAttrFn(parent)
}

func (b *Base) DefaultCriteria(subtype reflect.Type) predicate.Criteria {
	if b.Criteria == nil {
		return predicate.AlwaysTrue
	}
	return b.Criteria
}

func (b *Base) IsHierarchyAttribute(attr *Attribute) bool {
	return b.Hierarchy != nil && b.Hierarchy[attr.Name]
}

// GetValue reads the exported struct field named attr.Name off object via
// reflection.
func (b *Base) GetValue(object any, attr *Attribute) (any, error) {
	rv := indirect(reflect.ValueOf(object))
	fv := rv.FieldByName(attr.Name)
	if !fv.IsValid() {
		return nil, newError("get_value", "type %s has no field %q", rv.Type(), attr.Name)
	}
	return fv.Interface(), nil
}

// SetValue assigns value to the exported struct field named attr.Name on
// object via reflection.
func (b *Base) SetValue(object any, attr *Attribute, value any) error {
	rv := indirect(reflect.ValueOf(object))
	fv := rv.FieldByName(attr.Name)
	if !fv.IsValid() {
		return newError("set_value", "type %s has no field %q", rv.Type(), attr.Name)
	}
	if !fv.CanSet() {
		return newError("set_value", "field %q of type %s is not settable (pass a pointer)", attr.Name, rv.Type())
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(fv.Type()) {
		if vv.Type().ConvertibleTo(fv.Type()) {
			vv = vv.Convert(fv.Type())
		} else {
			return newError("set_value", "field %q of type %s cannot accept value of type %s", attr.Name, fv.Type(), vv.Type())
		}
	}
	fv.Set(vv)
	return nil
}

// GetChildren reads the collection-valued field for child off object.
func (b *Base) GetChildren(object any, child ChildMapping) (any, error) {
	return b.GetValue(object, child.CollectionAttribute)
}

// SetChildren installs list as the collection-valued field for child on
// object.
func (b *Base) SetChildren(object any, list any, child ChildMapping) error {
	return b.SetValue(object, child.CollectionAttribute, list)
}

// InitChildren is a no-op by default; mappings whose child type carries an
// explicit back-reference field override this to walk list and assign it.
func (b *Base) InitChildren(object any, list any, child ChildMapping) error {
	return nil
}

// CreateObject allocates a new instance of GoType and assigns values in
// Attrs order via SetValue. asChild is ignored by the default
// implementation; mappings that construct children differently (e.g. via
// a non-exported constructor) override CreateObject outright.
func (b *Base) CreateObject(values []any, asChild bool) (any, error) {
	if len(values) != len(b.Attrs) {
		return nil, newError("create_object", "type %s: expected %d values, got %d", b.GoType, len(b.Attrs), len(values))
	}
	elemType := b.GoType
	ptr := elemType.Kind() == reflect.Ptr
	if ptr {
		elemType = elemType.Elem()
	}
	instance := reflect.New(elemType)
	obj := instance.Interface()
	for i, attr := range b.Attrs {
		if err := b.SetValue(obj, attr, values[i]); err != nil {
			return nil, err
		}
	}
	if ptr {
		return obj, nil
	}
	return instance.Elem().Interface(), nil
}

// CheckAttributeValue delegates to the package-level CheckAttributeValue
// using Base's configured Parser/Resolver.
func (b *Base) CheckAttributeValue(attr *Attribute, incoming any) (any, error) {
	return CheckAttributeValue(attr, incoming, b.Parser, b.Resolver)
}

// MapValue delegates to the package-level MapValue using Base's
// configured Parser.
func (b *Base) MapValue(attr *Attribute, outgoing any) (any, error) {
	return MapValue(attr, outgoing, b.Parser)
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v
}
