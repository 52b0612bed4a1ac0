package sqlcompile

import (
	"fmt"
	"reflect"

	sq "github.com/Masterminds/squirrel"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
)

// Statement is the output of Compile: parameterized WHERE text, the bind
// values in the same order sqlcompile encountered them, the attribute
// descriptors needed to re-apply mapping.MapValue at bind time (collection
// values contribute one attribute per bound element), and a rendered
// ORDER BY fragment (empty if no sort keys were encountered).
type Statement struct {
	Where        string
	Args         []any
	CompareAttrs []*mapping.Attribute
	OrderBy      string
}

// Resolver looks up the mapping.Mapping registered for a Go type, needed
// to compile SubQuery/HasChild sub-selects and RefersTo joins against a
// different mapping than the one being queried.
type Resolver interface {
	MappingFor(t reflect.Type) (mapping.Mapping, bool)
}

type compiler struct {
	m        mapping.Mapping
	params   dialect.Params
	resolver Resolver
	args     []any
	attrs    []*mapping.Attribute
	sorts    []sortEntry
}

type sortEntry struct {
	column string
	desc   bool
}

// Compile lowers qp.Criteria, AND-ed with m.DefaultCriteria(qp.Type),
// against m using params' identifier quoting; paging is left to the
// caller. resolver is consulted for sub-query/join lowering; it may be nil
// if qp's criteria contains no SubQuery/RefersTo nodes.
func Compile(qp predicate.QueryPredicate, m mapping.Mapping, params dialect.Params, resolver Resolver) (Statement, error) {
	c := &compiler{m: m, params: params, resolver: resolver}
	text, valid, err := c.compile(qp.Criteria)
	if err != nil {
		return Statement{}, err
	}
	defText, defValid, err := c.compile(m.DefaultCriteria(qp.Type))
	if err != nil {
		return Statement{}, err
	}
	switch {
	case valid && defValid:
		text = "(" + text + " AND " + defText + ")"
	case defValid:
		text, valid = defText, true
	}
	stmt := Statement{Args: c.args, CompareAttrs: c.attrs}
	if valid {
		stmt.Where = text
	}
	stmt.OrderBy = c.renderOrderBy()
	return stmt, nil
}

func (c *compiler) renderOrderBy() string {
	if len(c.sorts) == 0 {
		return ""
	}
	out := "ORDER BY "
	for i, s := range c.sorts {
		if i > 0 {
			out += ", "
		}
		out += s.column
		if s.desc {
			out += " DESC"
		}
	}
	return out
}

// compile returns the SQL text for crit and whether it is valid (non-empty
// contribution). An invalid side is dropped by Join per spec §4.3.
func (c *compiler) compile(crit predicate.Criteria) (string, bool, error) {
	switch v := crit.(type) {
	case nil, predicate.AlwaysTrueCriteria:
		return "", false, nil

	case predicate.Negation:
		return c.compileNegation(v)

	case predicate.Join:
		return c.compileJoin(v)

	case predicate.ElementPredicate:
		return c.compileElementPredicate(v)

	case predicate.FunctionPredicate:
		return c.compileFunctionPredicate(v)

	case predicate.SortKey:
		c.recordSort(v)
		return "", false, nil

	case predicate.SubQuery:
		return c.compileSubQuery(v, "", "")

	default:
		return "", false, fmt.Errorf("sqlcompile: unsupported criteria node %T", crit)
	}
}

func (c *compiler) compileNegation(n predicate.Negation) (string, bool, error) {
	if cmp, ok := n.Inner.(predicate.Comparison); ok {
		cmp.Op = cmp.Op.negate()
		// a bare Comparison with no Element context cannot be compiled on
		// its own; Negation only folds Comparisons reached through an
		// ElementPredicate, handled in compileElementPredicate.
		return "", false, fmt.Errorf("sqlcompile: negated comparison %v has no bound column; wrap with IfField/IfAttribute", cmp)
	}
	text, valid, err := c.compile(n.Inner)
	if err != nil || !valid {
		return "", valid, err
	}
	return "NOT " + text, true, nil
}

func (c *compiler) compileJoin(j predicate.Join) (string, bool, error) {
	left, leftValid, err := c.compile(j.Left)
	if err != nil {
		return "", false, err
	}
	right, rightValid, err := c.compile(j.Right)
	if err != nil {
		return "", false, err
	}
	switch {
	case leftValid && rightValid:
		sep := " AND "
		if j.Op == predicate.Or {
			sep = " OR "
		}
		return "(" + left + sep + right + ")", true, nil
	case leftValid:
		return left, true, nil
	case rightValid:
		return right, true, nil
	default:
		return "", false, nil
	}
}

func (c *compiler) compileElementPredicate(ep predicate.ElementPredicate) (string, bool, error) {
	if _, ok := ep.Inner.(predicate.AlwaysTrueCriteria); ok || ep.Inner == nil {
		return "", false, nil
	}
	column, attr, err := c.resolveElement(ep.Element)
	if err != nil {
		return "", false, err
	}

	negated := false
	inner := ep.Inner
	for {
		if n, ok := inner.(predicate.Negation); ok {
			if cmp, ok := n.Inner.(predicate.Comparison); ok {
				inner = predicate.Comparison{Op: cmp.Op.negate(), Value: cmp.Value}
				continue
			}
			negated = !negated
			inner = n.Inner
			continue
		}
		break
	}

	text, err := c.compileValuePredicate(column, attr, inner)
	if err != nil {
		return "", false, err
	}
	if negated {
		text = "NOT " + text
	}
	return text, true, nil
}

func (c *compiler) resolveElement(el predicate.Element) (column string, attr *mapping.Attribute, err error) {
	switch e := el.(type) {
	case predicate.AttributeElement:
		attr = c.findAttr(e.Name)
		if attr == nil {
			return "", nil, fmt.Errorf("sqlcompile: unknown attribute %q", e.Name)
		}
		return QuotedSQLName(attr, c.params), attr, nil
	case predicate.AttrDescriptorElement:
		if a, ok := e.Attr.(*mapping.Attribute); ok {
			return QuotedSQLName(a, c.params), a, nil
		}
		attr = c.findAttr(e.Attr.AttributeName())
		if attr == nil {
			return "", nil, fmt.Errorf("sqlcompile: unknown attribute %q", e.Attr.AttributeName())
		}
		return QuotedSQLName(attr, c.params), attr, nil
	case predicate.FunctionElement:
		col, err := c.renderFunction(e.Fn)
		return col, nil, err
	default:
		return "", nil, fmt.Errorf("sqlcompile: unsupported element %T", el)
	}
}

func (c *compiler) findAttr(name string) *mapping.Attribute {
	for _, a := range c.m.Attributes() {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (c *compiler) recordSort(sk predicate.SortKey) {
	column, _, err := c.resolveElement(sk.Element)
	if err != nil {
		return
	}
	c.sorts = append(c.sorts, sortEntry{column: column, desc: sk.Direction == predicate.Descending})
}

// compileValuePredicate dispatches a leaf comparison/like/similar-to/
// sub-query criteria bound to column.
func (c *compiler) compileValuePredicate(column string, attr *mapping.Attribute, crit predicate.Criteria) (string, error) {
	switch v := crit.(type) {
	case predicate.Comparison:
		return c.compileComparison(column, attr, v)
	case predicate.LikeComparison:
		ph := c.bind(attr, v.Pattern)
		return fmt.Sprintf("%s LIKE %s", column, ph), nil
	case predicate.SimilarToComparison:
		ph := c.bind(attr, v.Value)
		return fmt.Sprintf("%s(%s) = %s(%s)", c.params.FuzzyFunction, column, c.params.FuzzyFunction, ph), nil
	case predicate.SubQuery:
		return c.subQueryText(v, column, attr)
	default:
		return "", fmt.Errorf("sqlcompile: unsupported value predicate %T", crit)
	}
}

func (c *compiler) compileComparison(column string, attr *mapping.Attribute, cmp predicate.Comparison) (string, error) {
	if cmp.Value == nil {
		switch cmp.Op {
		case predicate.EQ:
			return column + " IS NULL", nil
		case predicate.NE:
			return column + " IS NOT NULL", nil
		}
	}
	if cmp.Op == predicate.ElementOf {
		values := flattenElementOf(cmp.Value)
		if len(values) == 0 {
			return "1=0", nil
		}
		phs := make([]string, len(values))
		for i, v := range values {
			phs[i] = c.bind(attr, v)
		}
		return fmt.Sprintf("%s IN (%s)", column, joinPlaceholders(phs)), nil
	}
	ph := c.bind(attr, cmp.Value)
	return fmt.Sprintf("%s %s %s", column, cmp.Op.String(), ph), nil
}

func flattenElementOf(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func joinPlaceholders(phs []string) string {
	out := phs[0]
	for _, p := range phs[1:] {
		out += ", " + p
	}
	return out
}

// bind records an argument (and its owning attribute, for MapValue
// re-application at execution time) and returns its placeholder, always
// "?" whatever the dialect; values are tracked by this package so
// collection expansion can attribute N bindings to one compare attribute.
func (c *compiler) bind(attr *mapping.Attribute, value any) string {
	c.args = append(c.args, value)
	c.attrs = append(c.attrs, attr)
	return "?"
}

func (c *compiler) renderFunction(fn predicate.FunctionCall) (string, error) {
	arg, _, err := c.resolveElement(fn.Arg)
	if err != nil {
		return "", err
	}
	switch fn.Kind {
	case predicate.FnLower:
		return fmt.Sprintf("LOWER(%s)", arg), nil
	case predicate.FnUpper:
		return fmt.Sprintf("UPPER(%s)", arg), nil
	case predicate.FnCast:
		sqlType := "TEXT"
		if t, ok := c.params.DatatypeFor(fn.Datatype); ok {
			sqlType = t
		}
		return fmt.Sprintf("CAST(%s AS %s)", arg, sqlType), nil
	case predicate.FnSubstring:
		length := fn.End - fn.Begin
		return fmt.Sprintf("SUBSTR(%s, %d, %d)", arg, fn.Begin+1, length), nil
	case predicate.FnChain:
		text := arg
		for _, inner := range fn.Chain {
			rendered, err := c.renderFunction(inner)
			if err != nil {
				return "", err
			}
			text = rendered
		}
		return text, nil
	default:
		return arg, nil
	}
}

func (c *compiler) compileFunctionPredicate(fp predicate.FunctionPredicate) (string, bool, error) {
	return c.compileElementPredicate(predicate.ElementPredicate{Element: predicate.FunctionElement{Fn: fp.Fn}, Inner: fp.Inner})
}

func (c *compiler) compileSubQuery(sq_ predicate.SubQuery, outerColumn string, _ string) (string, bool, error) {
	text, err := c.subQueryText(sq_, outerColumn, nil)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// subQueryText lowers a HasChild/RefersTo sub-query to
// "outer IN (SELECT inner FROM childTable WHERE recur)", picking inner/
// outer id columns per spec §4.3.
func (c *compiler) subQueryText(sq_ predicate.SubQuery, outerColumn string, outerAttr *mapping.Attribute) (string, error) {
	if c.resolver == nil {
		return "", fmt.Errorf("sqlcompile: sub-query on %s requires a mapping resolver", sq_.Type)
	}
	childMapping, ok := c.resolver.MappingFor(sq_.Type)
	if !ok {
		return "", fmt.Errorf("sqlcompile: no mapping registered for %s", sq_.Type)
	}

	var innerID, outer string
	if parentAttr := childMapping.ParentAttribute(c.m); parentAttr != nil {
		if outerColumn == "" {
			if idAttr := c.m.IDAttribute(); idAttr != nil {
				outerColumn = QuotedSQLName(idAttr, c.params)
			}
		}
		outer = outerColumn
		innerID = QuotedSQLName(parentAttr, c.params)
	} else {
		outer = outerColumn
		if sq_.Accessor != nil {
			innerID = c.params.Quote(sq_.Accessor(sq_.Type))
		} else if idAttr := childMapping.IDAttribute(); idAttr != nil {
			innerID = QuotedSQLName(idAttr, c.params)
		}
	}

	sub := &compiler{m: childMapping, params: c.params, resolver: c.resolver}
	where, valid, err := sub.compile(sq_.Inner)
	if err != nil {
		return "", err
	}
	c.args = append(c.args, sub.args...)
	c.attrs = append(c.attrs, sub.attrs...)

	table := c.params.Quote(TableName(childMapping))
	if valid {
		return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s)", outer, innerID, table, where), nil
	}
	return fmt.Sprintf("%s IN (SELECT %s FROM %s)", outer, innerID, table), nil
}

// TableName derives a table name for m from its Go type name (the pointed-to
// type's name when m.Type() is a pointer), using the same
// camelCase-to-snake_case rule Attribute.ResolvedSQLName applies to
// display names. Used both by sub-query lowering here and by storage.Handle
// for INSERT/UPDATE/DELETE/DDL statement targets.
func TableName(m mapping.Mapping) string {
	t := m.Type()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return camelToSnakePublic(t.Name())
}

// camelToSnakePublic mirrors mapping.Attribute's unexported camelToSnake
// for table-name derivation from a Go type name.
func camelToSnakePublic(s string) string {
	attr := &mapping.Attribute{Name: s}
	return attr.ResolvedSQLName()
}

var _ sq.Sqlizer = (*passthroughSqlizer)(nil)

// passthroughSqlizer adapts a pre-rendered (text, args) pair to squirrel's
// Sqlizer so compiled sub-expressions can be composed with squirrel.And/Or
// when a caller wants to embed a Statement inside a larger squirrel
// query.
type passthroughSqlizer struct {
	text string
	args []any
}

func (p passthroughSqlizer) ToSql() (string, []any, error) { return p.text, p.args, nil }

// AsSqlizer wraps a compiled Statement's WHERE clause as a squirrel
// Sqlizer.
func (s Statement) AsSqlizer() sq.Sqlizer { return passthroughSqlizer{s.Where, s.Args} }
