package predicate

import "reflect"

// Criteria is the closed algebra of query criteria. All concrete variants
// are comparable value types so that trees compare structurally with
// reflect.DeepEqual, per the algebra's equality contract.
type Criteria interface {
	criteria()
}

// AttributeRef is implemented by anything that can stand in for a mapped
// attribute in a predicate (mapping.Attribute satisfies it structurally;
// this package never imports mapping, so there is no import cycle).
type AttributeRef interface {
	AttributeName() string
}

// AlwaysTrueCriteria is the sentinel criteria that is satisfied
// unconditionally. It contributes no text when compiled.
type AlwaysTrueCriteria struct{}

func (AlwaysTrueCriteria) criteria() {}

// AlwaysTrue is the canonical always-satisfied criteria value.
var AlwaysTrue Criteria = AlwaysTrueCriteria{}

// Op identifies a comparison operator.
type Op int

const (
	EQ Op = iota
	NE
	LT
	LE
	GT
	GE
	ElementOf // IN (...)
)

// negate returns the operator's logical negation, used when folding a
// Negation over a leaf Comparison.
func (o Op) negate() Op {
	switch o {
	case EQ:
		return NE
	case NE:
		return EQ
	case LT:
		return GE
	case GE:
		return LT
	case LE:
		return GT
	case GT:
		return LE
	default:
		// ElementOf has no single-operator negation; callers must wrap in
		// a Negation instead of trying to fold it.
		return o
	}
}

// String renders the operator the way the SQL compiler spells it.
func (o Op) String() string {
	switch o {
	case EQ:
		return "="
	case NE:
		return "<>"
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case ElementOf:
		return "IN"
	default:
		return "?"
	}
}

// Comparison is a leaf value predicate: "the attribute this is attached to,
// compared with Op against Value". A Comparison is not bound to any
// attribute on its own; IfField/IfAttribute bind it.
type Comparison struct {
	Op    Op
	Value any
}

func (Comparison) criteria() {}

// LikeComparison is a leaf value predicate for SQL LIKE matching. Pattern
// uses SQL wildcards (% and _). When evaluated outside SQL, % maps to
// ".*" and _ maps to "." for a full-string regular-expression match.
type LikeComparison struct {
	Pattern string
}

func (LikeComparison) criteria() {}

// SimilarToComparison is a leaf value predicate dispatched through the
// dialect's configured fuzzy-match function (e.g. soundex, dmetaphone).
type SimilarToComparison struct {
	Value any
}

func (SimilarToComparison) criteria() {}

// Element names what a predicate is applied to: a field by name, a mapped
// attribute descriptor, or the result of a function call.
type Element interface {
	element()
}

// AttributeElement refers to an attribute by its field name.
type AttributeElement struct {
	Name string
}

func (AttributeElement) element() {}

// AttrDescriptorElement refers to an attribute via a resolved descriptor.
type AttrDescriptorElement struct {
	Attr AttributeRef
}

func (AttrDescriptorElement) element() {}

// FunctionElement refers to the result of evaluating a FunctionCall.
type FunctionElement struct {
	Fn FunctionCall
}

func (FunctionElement) element() {}

// FunctionKind enumerates the function calls the compiler knows how to
// lower to a dialect-specific SQL fragment.
type FunctionKind int

const (
	FnLower FunctionKind = iota
	FnUpper
	FnCast
	FnSubstring
	FnChain
)

// FunctionCall describes a (possibly nested) function application over an
// Element. Datatype is used by FnCast, Begin/End by FnSubstring, and Chain
// by FnChain (applied innermost-first).
type FunctionCall struct {
	Kind     FunctionKind
	Arg      Element
	Datatype reflect.Type
	Begin    int
	End      int
	Chain    []FunctionCall
}

// ElementPredicate applies Inner to the value produced by Element. If Inner
// is AlwaysTrue, the predicate contributes nothing to the WHERE clause and
// only participates in sorting if it names a SortKey chained elsewhere.
type ElementPredicate struct {
	Element Element
	Inner   Criteria
}

func (ElementPredicate) criteria() {}

// FunctionPredicate applies Inner to the result of a function call
// directly, without going through an Element indirection. The compiler
// treats it identically to ElementPredicate{Element: FunctionElement{Fn}}.
type FunctionPredicate struct {
	Fn    FunctionCall
	Inner Criteria
}

func (FunctionPredicate) criteria() {}

// JoinOp identifies a boolean join operator.
type JoinOp int

const (
	And JoinOp = iota
	Or
)

// Join combines two criteria with a boolean operator.
type Join struct {
	Op          JoinOp
	Left, Right Criteria
}

func (Join) criteria() {}

// Negation wraps a criteria in a logical NOT. The SQL compiler resolves the
// negation at the leaf when Inner is a Comparison (flipping the operator);
// for anything else it emits a literal "NOT" prefix and keeps compiling.
type Negation struct {
	Inner Criteria
}

func (Negation) criteria() {}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// SortKey orders results by Element. It always evaluates to true in-memory
// (per the algebra's evaluation law); it affects only the compiled
// ORDER BY clause.
type SortKey struct {
	Element   Element
	Direction Direction
}

func (SortKey) criteria() {}

// SubQuery is a criteria leaf carrying its own type and criteria, lowered
// by the compiler to "col IN (SELECT ... WHERE Inner)". Accessor, when set,
// names the inner column to select when the referenced mapping has no
// parent attribute back to the enclosing type (used by RefersTo).
type SubQuery struct {
	Type     reflect.Type
	Inner    Criteria
	Accessor func(reflect.Type) string
}

func (SubQuery) criteria() {}

// QueryPredicate is the root predicate: a type together with its criteria
// and optional paging/depth properties. QueryPredicate is itself a Criteria
// so that it composes uniformly wherever a Criteria is expected.
type QueryPredicate struct {
	Type     reflect.Type
	Criteria Criteria
	// Depth is the eager-materialization depth; UnboundedDepth means
	// "unlimited".
	Depth int
	Offset int
	Limit  int
	// Child marks this predicate as a child sub-query (as opposed to a
	// root query), used by the executor to decide how to construct rows.
	Child bool
}

func (QueryPredicate) criteria() {}

// UnboundedDepth is the sentinel depth meaning "materialize every level".
const UnboundedDepth = -1

// NoLimit means "no LIMIT clause".
const NoLimit = 0
