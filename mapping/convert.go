package mapping

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Error is the mapping/argument error kind from the design's error
// taxonomy: programmer errors such as an unknown key, a missing id
// attribute, an unsupported predicate, or a value type mismatch after
// conversion. The mapping layer never wraps or suppresses these (the
// tryInvokeParseMethod fallback below is the sole, documented exception:
// it returns the input unchanged rather than erroring).
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("mapping: %s: %s", e.Op, e.Msg)
	}
	return "mapping: " + e.Msg
}

func newError(op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewError constructs a mapping/argument *Error, for host and sibling
// packages (e.g. storage.Manager.GetMapping) that need to raise the same
// error kind this package raises internally.
func NewError(op, format string, args ...any) error {
	return newError(op, format, args...)
}

// IsMappingError reports whether err is (or wraps) a mapping *Error.
func IsMappingError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// CollectionParser is a host-supplied trait for parsing a string into a
// collection or map attribute value. The host knows how to construct the
// concrete collection/map type; this package only knows the element/key/
// value datatype hints carried on the Attribute.
type CollectionParser interface {
	// ParseCollection parses s into an ordered or unordered collection of
	// elementType, honoring ordered.
	ParseCollection(s string, elementType reflect.Type, ordered bool) (any, error)
	// ParseMap parses s into a map of keyType -> valueType.
	ParseMap(s string, keyType, valueType reflect.Type) (any, error)
	// FormatCollection renders a collection back to its canonical string
	// representation (used by MapValue).
	FormatCollection(v any) (string, error)
	// FormatMap renders a map back to its canonical string representation.
	FormatMap(v any) (string, error)
}

// TypeResolver is a host-supplied trait that resolves a fully-qualified or
// simple class name to a reflect.Type, used when the declared datatype is
// itself a type-handle.
type TypeResolver interface {
	ResolveType(name string) (reflect.Type, error)
}

// Enum is implemented by ordinal enum-like attribute values. Ordinal
// returns the position used in the "<ordinal>-<name>" wire form.
type Enum interface {
	fmt.Stringer
	Ordinal() int
}

// CheckAttributeValue normalizes incoming against attr's declared
// datatype per the conversion policy:
//
//   - String datatype: pass through unchanged.
//   - incoming is a string: parsed according to the datatype (type
//     handles via resolver, ordinal-prefixed enums via the "N-NAME"
//     convention, time.Duration via time.ParseDuration, collections/maps
//     via parser, otherwise a one-argument constructor or a static
//     "valueOf(string)"-equivalent is tried; failing both, the string is
//     returned unchanged).
//   - int64 datatype with a numeric incoming value: widened to int64.
//   - int/int8/int16/int32 datatype with an incoming int64 (the form
//     database/sql drivers return integers in) that fits: converted to
//     the declared datatype.
//   - *big.Int datatype with an incoming *big.Float / *big.Rat that has
//     zero fractional part: converted exactly.
//   - final check: the (possibly normalized) value's type must satisfy
//     attr.Datatype, else a type-mismatch *Error is returned.
func CheckAttributeValue(attr *Attribute, incoming any, parser CollectionParser, resolver TypeResolver) (any, error) {
	if attr.Datatype == nil {
		return incoming, nil
	}
	if attr.Datatype.Kind() == reflect.String && attr.Datatype == reflect.TypeOf("") {
		return incoming, nil
	}

	value := incoming
	if s, ok := incoming.(string); ok {
		parsed, err := parseString(attr, s, parser, resolver)
		if err != nil {
			return nil, err
		}
		value = parsed
	}

	if attr.Datatype.Kind() == reflect.Int64 {
		if widened, ok := widenToInt64(value); ok {
			value = widened
		}
	}

	switch attr.Datatype.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		if n, ok := value.(int64); ok && !reflect.Zero(attr.Datatype).OverflowInt(n) {
			value = reflect.ValueOf(n).Convert(attr.Datatype).Interface()
		}
	}

	if attr.Datatype == reflect.TypeOf((*big.Int)(nil)) {
		if converted, ok := exactBigInt(value); ok {
			value = converted
		}
	}

	if value != nil && !reflect.TypeOf(value).AssignableTo(attr.Datatype) {
		return nil, newError("check_attribute_value", "attribute %q: value of type %T does not satisfy declared datatype %s", attr.Name, value, attr.Datatype)
	}
	return value, nil
}

func parseString(attr *Attribute, s string, parser CollectionParser, resolver TypeResolver) (any, error) {
	switch {
	case attr.Datatype == reflect.TypeOf(reflect.Type(nil)):
		if resolver == nil {
			return s, nil
		}
		t, err := resolver.ResolveType(s)
		if err != nil {
			return nil, newError("check_attribute_value", "attribute %q: unresolvable type name %q: %v", attr.Name, s, err)
		}
		return t, nil

	case isOrdinalEnumForm(s):
		_, name, ok := splitOrdinalEnum(s)
		if ok {
			return name, nil
		}
		return s, nil

	case attr.Datatype == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, newError("check_attribute_value", "attribute %q: invalid duration %q: %v", attr.Name, s, err)
		}
		return d, nil

	case isCollectionOrMap(attr.Datatype):
		if parser == nil {
			return s, nil
		}
		if attr.Datatype.Kind() == reflect.Map {
			return parser.ParseMap(s, attr.KeyType, attr.ValueType)
		}
		ordered := attr.Datatype.Kind() == reflect.Slice || attr.Datatype.Kind() == reflect.Array
		return parser.ParseCollection(s, attr.ElementType, ordered)

	default:
		if v, ok := tryInvokeParseMethod(attr.Datatype, s); ok {
			return v, nil
		}
		return s, nil
	}
}

// isOrdinalEnumForm reports whether s looks like "N-NAME".
func isOrdinalEnumForm(s string) bool {
	_, _, ok := splitOrdinalEnum(s)
	return ok
}

func splitOrdinalEnum(s string) (ordinal int, name string, ok bool) {
	idx := strings.IndexByte(s, '-')
	if idx <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, "", false
	}
	return n, s[idx+1:], true
}

func isCollectionOrMap(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

// tryInvokeParseMethod is the documented, sole exception to "mapping
// never suppresses an error": if a one-argument constructor or a static
// valueOf(string)-equivalent cannot be found (or fails), the raw string is
// returned unchanged rather than surfacing a parse error.
func tryInvokeParseMethod(t reflect.Type, s string) (any, bool) {
	if t.Kind() == reflect.Ptr {
		elem := t.Elem()
		if m, ok := elem.MethodByName("Parse" + elem.Name()); ok {
			return invokeParse(m, s)
		}
	}
	if m, ok := t.MethodByName("Parse" + t.Name()); ok {
		return invokeParse(m, s)
	}
	return nil, false
}

func invokeParse(m reflect.Method, s string) (any, bool) {
	if m.Type.NumIn() != 2 || m.Type.NumOut() < 1 {
		return nil, false
	}
	defer func() { recover() }() //nolint:errcheck // best-effort fallback
	out := m.Func.Call([]reflect.Value{reflect.Zero(m.Type.In(0)), reflect.ValueOf(s)})
	if len(out) == 0 {
		return nil, false
	}
	return out[0].Interface(), true
}

func widenToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func exactBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Float:
		if n.IsInt() {
			i, _ := n.Int(nil)
			return i, true
		}
	case *big.Rat:
		if n.IsInt() {
			return new(big.Int).Set(n.Num()), true
		}
	}
	return nil, false
}

// MapValue converts outgoing to its wire representation for attr, per the
// outgoing mapping rules:
//
//   - values implementing Enum: "<ordinal>-<name>". Enum-like values that
//     do not implement Enum get no enum-specific handling and fall through
//     to the rules below.
//   - type handles (reflect.Type values): fully qualified name, or the
//     simple name if attr carries OmitNamespaceFlag.
//   - collections/maps: canonical string via parser.
//   - calendar date without time: preserved as a date-time value (the
//     outermost date type survives unchanged).
//   - if attr's declared datatype is the generic "default string" bucket
//     (reflect.TypeOf("")) and outgoing isn't already a string, it is
//     stringified with fmt.Sprint.
func MapValue(attr *Attribute, outgoing any, parser CollectionParser) (any, error) {
	if outgoing == nil {
		return nil, nil
	}
	if e, ok := outgoing.(Enum); ok {
		return fmt.Sprintf("%d-%s", e.Ordinal(), e.String()), nil
	}
	if t, ok := outgoing.(reflect.Type); ok {
		if attr.Flags.Has(OmitNamespaceFlag) {
			return t.Name(), nil
		}
		return t.PkgPath() + "." + t.Name(), nil
	}
	if isCollectionOrMap(reflect.TypeOf(outgoing)) && parser != nil {
		if reflect.TypeOf(outgoing).Kind() == reflect.Map {
			return parser.FormatMap(outgoing)
		}
		return parser.FormatCollection(outgoing)
	}
	if t, ok := outgoing.(time.Time); ok {
		return t, nil
	}
	if attr.Datatype == reflect.TypeOf("") {
		if s, ok := outgoing.(string); ok {
			return s, nil
		}
		return fmt.Sprint(outgoing), nil
	}
	return outgoing, nil
}
