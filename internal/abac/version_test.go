package abac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/cache"
)

func TestVersionStoreNilStorePinsVersion(t *testing.T) {
	versions := NewVersionStore(nil)
	require.EqualValues(t, 1, versions.Current(context.Background()))

	versions.Bump(context.Background())
	require.EqualValues(t, 1, versions.Current(context.Background()))
}

func TestVersionStoreInitialisesAndBumps(t *testing.T) {
	db := newPlainTestDB(t)
	versions := NewVersionStore(cache.NewDatabaseStore(db))

	require.EqualValues(t, 1, versions.Current(context.Background()))
	require.EqualValues(t, 1, versions.Current(context.Background()))

	versions.Bump(context.Background())
	require.EqualValues(t, 2, versions.Current(context.Background()))

	versions.Bump(context.Background())
	versions.Bump(context.Background())
	require.EqualValues(t, 4, versions.Current(context.Background()))
}
