package sqlcompile_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
	"github.com/esoco/esoco-storage/sqlcompile"
)

type customer struct {
	ID   int64
	Name string
	Age  int
}

func newCustomerMapping() *mapping.Base {
	idAttr := &mapping.Attribute{Name: "ID", Datatype: reflect.TypeOf(int64(0)), Flags: mapping.IDFlag | mapping.AutoGeneratedFlag}
	nameAttr := &mapping.Attribute{Name: "Name", Datatype: reflect.TypeOf("")}
	ageAttr := &mapping.Attribute{Name: "Age", Datatype: reflect.TypeOf(0)}
	return &mapping.Base{
		GoType: reflect.TypeOf(customer{}),
		Attrs:  []*mapping.Attribute{idAttr, nameAttr, ageAttr},
		IDAttr: idAttr,
	}
}

func TestCompileSimpleEquality(t *testing.T) {
	m := newCustomerMapping()
	crit := predicate.IfField("Name", predicate.EqualTo("jones"))
	qp := predicate.ForType(m.Type(), crit)

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"name" = ?`, stmt.Where)
	assert.Equal(t, []any{"jones"}, stmt.Args)
	require.Len(t, stmt.CompareAttrs, 1)
	assert.Equal(t, "Name", stmt.CompareAttrs[0].Name)
}

func TestCompileAndJoinDropsInvalidSide(t *testing.T) {
	m := newCustomerMapping()
	crit := predicate.And(
		predicate.IfField("Name", predicate.EqualTo("jones")),
		predicate.AlwaysTrue,
	)
	qp := predicate.ForType(m.Type(), crit)

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"name" = ?`, stmt.Where)
}

func TestCompileNotFoldsAtComparisonLeaf(t *testing.T) {
	m := newCustomerMapping()
	crit := predicate.IfField("Name", predicate.Not(predicate.EqualTo("jones")))
	qp := predicate.ForType(m.Type(), crit)

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"name" <> ?`, stmt.Where)
}

func TestCompileElementOfExpandsPlaceholders(t *testing.T) {
	m := newCustomerMapping()
	crit := predicate.IfField("Age", predicate.ElementOfValues(1, 2, 3))
	qp := predicate.ForType(m.Type(), crit)

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"age" IN (?, ?, ?)`, stmt.Where)
	assert.Equal(t, []any{1, 2, 3}, stmt.Args)
}

func TestCompileSortKeyContributesNoWhereText(t *testing.T) {
	m := newCustomerMapping()
	crit := predicate.And(
		predicate.IfField("Name", predicate.EqualTo("jones")),
		predicate.SortBy("Age", true),
	)
	qp := predicate.ForType(m.Type(), crit)

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"name" = ?`, stmt.Where)
	assert.Equal(t, `ORDER BY "age"`, stmt.OrderBy)
}

func TestCompileDescendingSortKey(t *testing.T) {
	m := newCustomerMapping()
	qp := predicate.ForType(m.Type(), predicate.SortBy("Name", false))

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, "", stmt.Where)
	assert.Equal(t, `ORDER BY "name" DESC`, stmt.OrderBy)
}

func TestCompileLikeComparison(t *testing.T) {
	m := newCustomerMapping()
	qp := predicate.ForType(m.Type(), predicate.IfField("Name", predicate.Like("%ones")))

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.SQLite), nil)
	require.NoError(t, err)
	assert.Equal(t, `"name" LIKE ?`, stmt.Where)
	assert.Equal(t, []any{"%ones"}, stmt.Args)
}

func TestCompileSimilarToUsesFuzzyFunction(t *testing.T) {
	m := newCustomerMapping()
	qp := predicate.ForType(m.Type(), predicate.IfField("Name", predicate.SimilarTo("jones")))

	stmt, err := sqlcompile.Compile(qp, m, dialect.DefaultParams(dialect.Postgres), nil)
	require.NoError(t, err)
	assert.Equal(t, `dmetaphone("name") = dmetaphone(?)`, stmt.Where)
}
