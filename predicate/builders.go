package predicate

import "reflect"

// ForType is the root predicate builder: it pairs a type with its criteria.
// A nil Criteria is normalized to AlwaysTrue.
func ForType(t reflect.Type, c Criteria) QueryPredicate {
	if c == nil {
		c = AlwaysTrue
	}
	return QueryPredicate{Type: t, Criteria: c, Depth: UnboundedDepth}
}

// IfField applies inner to the attribute named by field.
func IfField(field string, inner Criteria) Criteria {
	return ElementPredicate{Element: AttributeElement{Name: field}, Inner: inner}
}

// IfAttribute applies inner to the attribute resolved by attr.
func IfAttribute(attr AttributeRef, inner Criteria) Criteria {
	return ElementPredicate{Element: AttrDescriptorElement{Attr: attr}, Inner: inner}
}

// EqualTo builds an equality comparison value predicate.
func EqualTo(v any) Criteria { return Comparison{Op: EQ, Value: v} }

// NotEqualTo builds an inequality comparison value predicate.
func NotEqualTo(v any) Criteria { return Comparison{Op: NE, Value: v} }

// LessThan builds a "<" comparison value predicate.
func LessThan(v any) Criteria { return Comparison{Op: LT, Value: v} }

// LessOrEqual builds a "<=" comparison value predicate.
func LessOrEqual(v any) Criteria { return Comparison{Op: LE, Value: v} }

// GreaterThan builds a ">" comparison value predicate.
func GreaterThan(v any) Criteria { return Comparison{Op: GT, Value: v} }

// GreaterOrEqual builds a ">=" comparison value predicate.
func GreaterOrEqual(v any) Criteria { return Comparison{Op: GE, Value: v} }

// ElementOfValues builds an "IN (...)" comparison value predicate over a
// fixed collection of values.
func ElementOfValues(vs ...any) Criteria { return Comparison{Op: ElementOf, Value: vs} }

// Like builds a SQL LIKE comparison value predicate. pattern uses SQL
// wildcards (% and _).
func Like(pattern string) Criteria { return LikeComparison{Pattern: pattern} }

// SimilarTo builds a fuzzy-match comparison value predicate, dispatched
// through the dialect's configured fuzzy-search function.
func SimilarTo(v any) Criteria { return SimilarToComparison{Value: v} }

// And joins two criteria with logical AND.
func And(left, right Criteria) Criteria { return Join{Op: And, Left: left, Right: right} }

// Or joins two criteria with logical OR.
func Or(left, right Criteria) Criteria { return Join{Op: Or, Left: left, Right: right} }

// Not negates a criteria. The SQL compiler, not this builder, performs the
// leaf-level operator folding described by the algebra's negation law;
// here Not always produces a Negation wrapper so that Not(Not(p)) and p
// compile to the same result set without requiring eager simplification.
func Not(c Criteria) Criteria { return Negation{Inner: c} }

// HasChild builds a sub-query predicate over a child mapping's rows,
// intended as the inner criteria of an IfField/IfAttribute naming the
// collection-valued attribute that holds the children.
func HasChild(childType reflect.Type, inner Criteria) Criteria {
	return SubQuery{Type: childType, Inner: inner}
}

// RefersTo builds a sub-query predicate over a referenced mapping's rows.
// accessor, if given, names the column to select in the inner query when
// the referenced mapping has no parent attribute back to the enclosing
// type; by default the referenced type's id attribute is used.
func RefersTo(refType reflect.Type, inner Criteria, accessor ...func(reflect.Type) string) Criteria {
	sq := SubQuery{Type: refType, Inner: inner}
	if len(accessor) > 0 {
		sq.Accessor = accessor[0]
	}
	return sq
}

// SortBy builds a sort-key predicate over the attribute named by field.
func SortBy(field string, ascending bool) Criteria {
	dir := Ascending
	if !ascending {
		dir = Descending
	}
	return SortKey{Element: AttributeElement{Name: field}, Direction: dir}
}

// SortByAttr builds a sort-key predicate over a resolved attribute
// descriptor.
func SortByAttr(attr AttributeRef, ascending bool) Criteria {
	dir := Ascending
	if !ascending {
		dir = Descending
	}
	return SortKey{Element: AttrDescriptorElement{Attr: attr}, Direction: dir}
}

// Lower wraps element in a lower-case function call.
func Lower(field string) FunctionCall {
	return FunctionCall{Kind: FnLower, Arg: AttributeElement{Name: field}}
}

// Upper wraps element in an upper-case function call.
func Upper(field string) FunctionCall {
	return FunctionCall{Kind: FnUpper, Arg: AttributeElement{Name: field}}
}

// Cast wraps field in a CAST(... AS datatype) function call.
func Cast(field string, datatype reflect.Type) FunctionCall {
	return FunctionCall{Kind: FnCast, Arg: AttributeElement{Name: field}, Datatype: datatype}
}

// Substring wraps field in a substring function call over the zero-based,
// end-exclusive range [begin, end); it compiles to SUBSTR(field, begin+1,
// end-begin).
func Substring(field string, begin, end int) FunctionCall {
	return FunctionCall{Kind: FnSubstring, Arg: AttributeElement{Name: field}, Begin: begin, End: end}
}

// Chain composes a sequence of function calls, applied innermost first.
func Chain(fns ...FunctionCall) FunctionCall {
	return FunctionCall{Kind: FnChain, Chain: fns}
}

// IfFunction applies inner to the result of fn.
func IfFunction(fn FunctionCall, inner Criteria) Criteria {
	return FunctionPredicate{Fn: fn, Inner: inner}
}
