package storagecfg

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCollectionParser is the default mapping.CollectionParser: a
// collection or map attribute's canonical string representation is its
// msgpack encoding, base64-free (msgpack is binary; we carry it as a Go
// string holding raw bytes, matching how attribute values already pass
// through database/sql as []byte/string interchangeably).
type MsgpackCollectionParser struct{}

// ParseCollection decodes s (msgpack bytes) into a freshly allocated slice
// of elementType; ordered is accepted for interface symmetry with
// mapping.CollectionParser but msgpack arrays are always ordered on the
// wire, so unordered collections decode into the same slice shape.
func (MsgpackCollectionParser) ParseCollection(s string, elementType reflect.Type, ordered bool) (any, error) {
	sliceType := reflect.SliceOf(elementType)
	out := reflect.New(sliceType)
	if err := msgpack.Unmarshal([]byte(s), out.Interface()); err != nil {
		return nil, fmt.Errorf("storagecfg: decoding collection: %w", err)
	}
	return out.Elem().Interface(), nil
}

// ParseMap decodes s (msgpack bytes) into a freshly allocated
// map[keyType]valueType.
func (MsgpackCollectionParser) ParseMap(s string, keyType, valueType reflect.Type) (any, error) {
	mapType := reflect.MapOf(keyType, valueType)
	out := reflect.New(mapType)
	if err := msgpack.Unmarshal([]byte(s), out.Interface()); err != nil {
		return nil, fmt.Errorf("storagecfg: decoding map: %w", err)
	}
	return out.Elem().Interface(), nil
}

// FormatCollection encodes v (a slice or array) to its msgpack wire form.
func (MsgpackCollectionParser) FormatCollection(v any) (string, error) {
	return encode(v)
}

// FormatMap encodes v (a map) to its msgpack wire form.
func (MsgpackCollectionParser) FormatMap(v any) (string, error) {
	return encode(v)
}

func encode(v any) (string, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("storagecfg: encoding value: %w", err)
	}
	return string(b), nil
}
