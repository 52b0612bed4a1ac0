package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoco/esoco-storage/dialect"
	"github.com/esoco/esoco-storage/storage"
)

// fakeDriver is a minimal dialect.Driver/dialect.Tx double used by tests
// that exercise handle lifecycle and transaction plumbing without needing
// a real database/sql.Rows round trip.
type fakeDriver struct {
	closed     bool
	committed  int
	rolledBack int
}

func (f *fakeDriver) Exec(ctx context.Context, query string, args, v any) error  { return nil }
func (f *fakeDriver) Query(ctx context.Context, query string, args, v any) error { return nil }
func (f *fakeDriver) Tx(ctx context.Context) (dialect.Tx, error)                 { return f, nil }
func (f *fakeDriver) Close() error                                               { f.closed = true; return nil }
func (f *fakeDriver) Dialect() string                                           { return dialect.SQLite }
func (f *fakeDriver) Commit() error                                             { f.committed++; return nil }
func (f *fakeDriver) Rollback() error                                           { f.rolledBack++; return nil }

func newTestManager() (*storage.Manager, *fakeDriver) {
	m := storage.NewManager(nil)
	drv := &fakeDriver{}
	_ = m.SetDefault(storage.Definition{DriverName: "fake", DataSourceName: "mem", Dialect: dialect.SQLite},
		func(ctx context.Context, def storage.Definition) (dialect.Driver, error) { return drv, nil })
	return m, drv
}

func TestGetStorageReusesHandleForSameCallerAndDefinition(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	h1, err := m.GetStorage(ctx, "caller-a", storage.DefaultKey)
	require.NoError(t, err)
	h2, err := m.GetStorage(ctx, "caller-a", storage.DefaultKey)
	require.NoError(t, err)

	assert.Same(t, h1, h2)

	require.NoError(t, h1.Release())
	assert.True(t, h2.IsValid(), "handle should remain open while usage count > 0")
	require.NoError(t, h2.Release())
	assert.False(t, h2.IsValid(), "handle should close once usage reaches zero")
}

func TestGetStorageDoesNotShareAcrossCallers(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	h1, err := m.GetStorage(ctx, "caller-a", storage.DefaultKey)
	require.NoError(t, err)
	h2, err := m.GetStorage(ctx, "caller-b", storage.DefaultKey)
	require.NoError(t, err)

	assert.NotSame(t, h1, h2)
}

func TestNewStorageIsAlwaysFreshAndUnshared(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	h1, err := m.NewStorage(ctx, storage.DefaultKey)
	require.NoError(t, err)
	h2, err := m.NewStorage(ctx, storage.DefaultKey)
	require.NoError(t, err)

	assert.NotSame(t, h1, h2)
	require.NoError(t, h1.Release())
	assert.False(t, h1.IsValid())
	assert.True(t, h2.IsValid())
}

func TestShutdownClosesEveryCachedHandle(t *testing.T) {
	m, drv := newTestManager()
	ctx := context.Background()

	h, err := m.GetStorage(ctx, "caller-a", storage.DefaultKey)
	require.NoError(t, err)
	require.True(t, h.IsValid())

	require.NoError(t, m.Shutdown())
	assert.True(t, drv.closed)
	assert.False(t, h.IsValid())
}

func TestGetStorageUnknownKeyFallsBackToDefault(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	h, err := m.GetStorage(ctx, "caller-a", storage.Key("unregistered"))
	require.NoError(t, err)
	assert.True(t, h.IsValid())
}

func TestGetStorageNoDefaultIsUnsupported(t *testing.T) {
	m := storage.NewManager(nil)
	_, err := m.GetStorage(context.Background(), "caller-a", storage.Key("nope"))
	require.Error(t, err)
	assert.True(t, storage.IsUnsupported(err))
}

func TestConcurrentGetStorageSharesOneHandlePerCaller(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	const n = 16
	handles := make([]*storage.Handle, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			h, err := m.GetStorage(ctx, "shared-caller", storage.DefaultKey)
			require.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, handles[0], handles[i])
	}
}
