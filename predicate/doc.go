// Package predicate implements the query-criteria algebra: a small, closed
// sum type of immutable value predicates (comparisons, boolean joins,
// negation, sub-queries, sort keys, function calls) that a caller composes
// into a QueryPredicate and hands to a storage handle.
//
// The algebra says nothing about SQL; lowering a Criteria tree into a
// parameterized statement is the job of package sqlcompile. Criteria trees
// compare structurally (plain value types, safe for reflect.DeepEqual), so
// two predicates built the same way are equal regardless of where they were
// constructed.
//
// # Usage
//
//	qp := predicate.ForType(reflect.TypeOf(TestRecord{}),
//		predicate.Or(
//			predicate.IfField("name", predicate.EqualTo("jones")),
//			predicate.And(
//				predicate.IfField("name", predicate.EqualTo("smith")),
//				predicate.IfField("value", predicate.GreaterThan(1)),
//			),
//		),
//	)
package predicate
