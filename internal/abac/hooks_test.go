package abac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/cache"
	"github.com/gatewarden/gatewarden/internal/models"
)

func TestInvalidationHooksBumpVersionOnCatalogMutations(t *testing.T) {
	db := newPlainTestDB(t)
	versions := NewVersionStore(cache.NewDatabaseStore(db))
	require.NoError(t, RegisterInvalidationHooks(db, versions))

	base := versions.Current(context.Background())

	permission := createPermission(t, db, "posts", models.KindCRUD)
	require.EqualValues(t, base+1, versions.Current(context.Background()))

	require.NoError(t, db.Model(permission).Update("description", "updated").Error)
	require.EqualValues(t, base+2, versions.Current(context.Background()))

	role := createRole(t, db, "Editor", nil, models.ZeusNone)
	require.EqualValues(t, base+3, versions.Current(context.Background()))

	require.NoError(t, db.Delete(role).Error)
	require.EqualValues(t, base+4, versions.Current(context.Background()))
}

func TestInvalidationHooksIgnoreOtherModels(t *testing.T) {
	db := newPlainTestDB(t)
	versions := NewVersionStore(cache.NewDatabaseStore(db))
	require.NoError(t, RegisterInvalidationHooks(db, versions))

	base := versions.Current(context.Background())

	createUser(t, db, "bystander@example.com")
	createAccount(t, db, "acme")

	require.EqualValues(t, base, versions.Current(context.Background()))
}

func TestRegisterInvalidationHooksValidatesArguments(t *testing.T) {
	db := newPlainTestDB(t)
	require.Error(t, RegisterInvalidationHooks(nil, NewVersionStore(nil)))
	require.Error(t, RegisterInvalidationHooks(db, nil))
}
