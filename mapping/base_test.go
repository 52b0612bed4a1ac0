package mapping_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
)

type person struct {
	ID   int64
	Name string
	Age  int
}

func newPersonMapping() *mapping.Base {
	idAttr := &mapping.Attribute{Name: "ID", Datatype: reflect.TypeOf(int64(0)), Flags: mapping.IDFlag | mapping.AutoGeneratedFlag}
	nameAttr := &mapping.Attribute{Name: "Name", Datatype: reflect.TypeOf("")}
	ageAttr := &mapping.Attribute{Name: "Age", Datatype: reflect.TypeOf(0)}
	return &mapping.Base{
		GoType:        reflect.TypeOf(person{}),
		Attrs:         []*mapping.Attribute{idAttr, nameAttr, ageAttr},
		IDAttr:        idAttr,
		DeleteAllowed: true,
	}
}

func TestBaseCreateObjectAssignsInAttributeOrder(t *testing.T) {
	m := newPersonMapping()
	obj, err := m.CreateObject([]any{int64(1), "jones", 42}, false)
	require.NoError(t, err)

	p := obj.(person)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "jones", p.Name)
	assert.Equal(t, 42, p.Age)
}

func TestBaseGetSetValueRoundTrip(t *testing.T) {
	m := newPersonMapping()
	p := &person{}
	require.NoError(t, m.SetValue(p, m.Attrs[1], "smith"))

	v, err := m.GetValue(p, m.Attrs[1])
	require.NoError(t, err)
	assert.Equal(t, "smith", v)
}

func TestBaseSetValueRejectsUnknownField(t *testing.T) {
	m := newPersonMapping()
	bogus := &mapping.Attribute{Name: "DoesNotExist"}
	err := m.SetValue(&person{}, bogus, "x")
	assert.Error(t, err)
}

func TestBaseDefaultCriteriaIsAlwaysTrueByDefault(t *testing.T) {
	m := newPersonMapping()
	assert.Equal(t, predicate.AlwaysTrue, m.DefaultCriteria(m.GoType))
}

func TestBaseCheckAttributeValueWidensInt64(t *testing.T) {
	m := newPersonMapping()
	idAttr := m.IDAttr
	v, err := m.CheckAttributeValue(idAttr, int32(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestBaseCheckAttributeValueRejectsMismatch(t *testing.T) {
	m := newPersonMapping()
	_, err := m.CheckAttributeValue(m.Attrs[2], "not a number")
	assert.Error(t, err)
}
