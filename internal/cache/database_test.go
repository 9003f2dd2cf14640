package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gatewarden/gatewarden/internal/models"
)

func newTestStore(t *testing.T) *DatabaseStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewDatabaseStore(db)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	value, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, value)

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), 0))
	value, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))
	value, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ephemeral", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "ephemeral")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = store.Increment(ctx, "counter")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// Counter entries never expire.
	value, ok, err := store.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), value)
}

func TestDatabaseStoreDeleteNoKeysIsNoop(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Delete(context.Background()))
}
