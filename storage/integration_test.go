package storage_test

import (
	"context"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoco/esoco-storage/dialect"
	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
	"github.com/esoco/esoco-storage/storage"
)

// book is the end-to-end test's domain type: an id, a title, and the
// persistence bookkeeping Persistable needs.
type book struct {
	ID    int64
	Title string
	Pages int

	persistent bool
	storing    bool
	modified   bool
}

func (b *book) IsPersistent() bool  { return b.persistent }
func (b *book) SetPersistent(v bool) { b.persistent = v }
func (b *book) IsStoring() bool     { return b.storing }
func (b *book) SetStoring(v bool)   { b.storing = v }
func (b *book) IsModified() bool    { return b.modified }
func (b *book) SetModified(v bool)  { b.modified = v }

func newBookMapping() *mapping.Base {
	idAttr := &mapping.Attribute{Name: "ID", Datatype: reflect.TypeOf(int64(0)), Flags: mapping.IDFlag | mapping.AutoGeneratedFlag}
	titleAttr := &mapping.Attribute{Name: "Title", Datatype: reflect.TypeOf("")}
	pagesAttr := &mapping.Attribute{Name: "Pages", Datatype: reflect.TypeOf(int(0))}
	return &mapping.Base{
		GoType:        reflect.TypeOf(&book{}),
		Attrs:         []*mapping.Attribute{idAttr, titleAttr, pagesAttr},
		IDAttr:        idAttr,
		DeleteAllowed: true,
	}
}

func newSQLiteManager(t *testing.T) (*storage.Manager, *storage.Handle) {
	t.Helper()
	drv, err := dialectsql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)

	m := storage.NewManager(nil)
	require.NoError(t, m.SetDefault(
		storage.Definition{DriverName: "sqlite", DataSourceName: ":memory:", Dialect: dialect.SQLite},
		func(ctx context.Context, def storage.Definition) (dialect.Driver, error) { return drv, nil },
	))
	h, err := m.GetStorage(context.Background(), "test", storage.DefaultKey)
	require.NoError(t, err)
	return m, h
}

func TestStoreQueryUpdateDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, h := newSQLiteManager(t)
	defer h.Release()

	bm := newBookMapping()
	m.RegisterMapping(bm)

	require.NoError(t, h.InitObjectStorage(ctx, bm))
	exists, err := h.HasObjectStorage(ctx, bm)
	require.NoError(t, err)
	assert.True(t, exists)

	b := &book{Title: "The Pragmatic Programmer", Pages: 352}
	require.NoError(t, h.Store(ctx, b))
	assert.NotZero(t, b.ID, "auto-generated id should be assigned after insert")
	assert.True(t, b.IsPersistent())

	q, err := h.QueryFor(bm)
	require.NoError(t, err)
	defer q.Close()
	cur, err := q.Execute(ctx)
	require.NoError(t, err)

	obj, ok := cur.Next()
	require.True(t, ok)
	got := obj.(*book)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "The Pragmatic Programmer", got.Title)
	assert.Equal(t, 352, got.Pages)

	_, ok = cur.Next()
	assert.False(t, ok, "only one row should have been stored")

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	pos, err := q.PositionOf(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	b.Title = "The Pragmatic Programmer, 2nd Edition"
	b.SetModified(true)
	require.NoError(t, h.Store(ctx, b))

	q2, err := h.QueryFor(bm)
	require.NoError(t, err)
	defer q2.Close()
	cur2, err := q2.Execute(ctx)
	require.NoError(t, err)
	obj2, ok := cur2.Next()
	require.True(t, ok)
	assert.Equal(t, "The Pragmatic Programmer, 2nd Edition", obj2.(*book).Title)

	require.NoError(t, h.Delete(ctx, bm, b))

	q3, err := h.QueryFor(bm)
	require.NoError(t, err)
	defer q3.Close()
	cur3, err := q3.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cur3.Len())
}

func TestDeleteDisallowedFailsBeforeIssuingSQL(t *testing.T) {
	ctx := context.Background()
	m, h := newSQLiteManager(t)
	defer h.Release()

	idAttr := &mapping.Attribute{Name: "ID", Datatype: reflect.TypeOf(int64(0)), Flags: mapping.IDFlag | mapping.AutoGeneratedFlag}
	bm := &mapping.Base{
		GoType:        reflect.TypeOf(&book{}),
		Attrs:         []*mapping.Attribute{idAttr},
		IDAttr:        idAttr,
		DeleteAllowed: false,
	}
	m.RegisterMapping(bm)
	require.NoError(t, h.InitObjectStorage(ctx, bm))

	err := h.Delete(ctx, bm, &book{ID: 1})
	require.Error(t, err)
	assert.True(t, storage.IsStorageError(err))
}

func TestDisableDeleteGatesEveryHandle(t *testing.T) {
	ctx := context.Background()
	m, h := newSQLiteManager(t)
	defer h.Release()
	m.SetDisableDelete(true)

	bm := newBookMapping()
	m.RegisterMapping(bm)
	require.NoError(t, h.InitObjectStorage(ctx, bm))

	b := &book{Title: "t", Pages: 1}
	require.NoError(t, h.Store(ctx, b))

	err := h.Delete(ctx, bm, b)
	require.Error(t, err)
	assert.True(t, storage.IsStorageError(err))
}

// note is a second domain type with a string, UUID-generated id, used to
// exercise assignUUIDIfNeeded (idgen.go) end to end against a real table.
type note struct {
	ID   string
	Body string

	persistent bool
	storing    bool
	modified   bool
}

func (n *note) IsPersistent() bool   { return n.persistent }
func (n *note) SetPersistent(v bool) { n.persistent = v }
func (n *note) IsStoring() bool      { return n.storing }
func (n *note) SetStoring(v bool)    { n.storing = v }
func (n *note) IsModified() bool     { return n.modified }
func (n *note) SetModified(v bool)   { n.modified = v }

func newNoteMapping() *mapping.Base {
	idAttr := &mapping.Attribute{Name: "ID", Datatype: reflect.TypeOf(""), Flags: mapping.IDFlag | mapping.UUIDFlag}
	bodyAttr := &mapping.Attribute{Name: "Body", Datatype: reflect.TypeOf("")}
	return &mapping.Base{
		GoType:        reflect.TypeOf(&note{}),
		Attrs:         []*mapping.Attribute{idAttr, bodyAttr},
		IDAttr:        idAttr,
		DeleteAllowed: true,
	}
}

func TestStoreAssignsUUIDForUUIDFlaggedIDAttribute(t *testing.T) {
	ctx := context.Background()
	m, h := newSQLiteManager(t)
	defer h.Release()

	nm := newNoteMapping()
	m.RegisterMapping(nm)
	require.NoError(t, h.InitObjectStorage(ctx, nm))

	n := &note{Body: "remember the milk"}
	require.NoError(t, h.Store(ctx, n))
	assert.NotEmpty(t, n.ID, "uuid-flagged id attribute should be assigned on insert")

	preAssigned := &note{ID: "fixed-id", Body: "already has an id"}
	require.NoError(t, h.Store(ctx, preAssigned))
	assert.Equal(t, "fixed-id", preAssigned.ID, "a caller-assigned id must not be overwritten")
}

func TestQueryWithCriteriaFilters(t *testing.T) {
	ctx := context.Background()
	m, h := newSQLiteManager(t)
	defer h.Release()

	bm := newBookMapping()
	m.RegisterMapping(bm)
	require.NoError(t, h.InitObjectStorage(ctx, bm))

	require.NoError(t, h.Store(ctx, &book{Title: "Short", Pages: 100}))
	require.NoError(t, h.Store(ctx, &book{Title: "Long", Pages: 900}))

	pagesAttr := bm.Attrs[2]
	qp := predicate.QueryPredicate{
		Type:     bm.Type(),
		Criteria: predicate.IfAttribute(pagesAttr, predicate.GreaterThan(500)),
		Depth:    predicate.UnboundedDepth,
	}
	q, err := h.Query(qp, bm)
	require.NoError(t, err)
	defer q.Close()
	cur, err := q.Execute(ctx)
	require.NoError(t, err)

	obj, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, "Long", obj.(*book).Title)
	_, ok = cur.Next()
	assert.False(t, ok)
}
