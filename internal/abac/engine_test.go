package abac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/models"
)

func TestResolveUnknownSubjectIsEmpty(t *testing.T) {
	_, engine := newEngineTestEnv(t)

	perms, err := engine.Resolve(context.Background(), 9999, nil)
	require.NoError(t, err)
	require.Empty(t, perms)

	perms, err = engine.Resolve(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestResolveSystemZeusGrantsUniversalEverywhere(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	account := createAccount(t, db, "acme")
	user := createUser(t, db, "root@example.com")
	role := createRole(t, db, "Operator", nil, models.ZeusSystem)
	assignRole(t, db, user, role)

	perms, err := engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{UniversalPermission}, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, &account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{UniversalPermission}, perms)

	allowed, err := engine.Check(context.Background(), user.ID, &account.ID, "anything:at:all")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResolveTenantZeusOnlyInOwnAccount(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	home := createAccount(t, db, "home")
	other := createAccount(t, db, "other")
	user := createUser(t, db, "owner@example.com")
	role := createRole(t, db, "Owner", &home.ID, models.ZeusTenant)
	assignRole(t, db, user, role)

	perms, err := engine.Resolve(context.Background(), user.ID, &home.ID)
	require.NoError(t, err)
	require.Equal(t, []string{UniversalPermission}, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, &other.ID)
	require.NoError(t, err)
	require.Empty(t, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestResolveExpandsRoleGrants(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	account := createAccount(t, db, "acme")
	user := createUser(t, db, "editor@example.com")
	role := createRole(t, db, "Editor", &account.ID, models.ZeusNone)
	assignRole(t, db, user, role)

	posts := createPermission(t, db, "posts", models.KindCRUD)
	grantDirect(t, db, RoleAssignee(role.ID), posts.ID, &account.ID, []string{"create", "read", "update"})

	perms, err := engine.Resolve(context.Background(), user.ID, &account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"posts:create", "posts:read", "posts:update"}, perms)

	allowed, err := engine.Check(context.Background(), user.ID, &account.ID, "posts:create")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = engine.Check(context.Background(), user.ID, &account.ID, "posts:delete")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveScopedRoleDoesNotApplyElsewhere(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	home := createAccount(t, db, "home")
	other := createAccount(t, db, "other")
	user := createUser(t, db, "scoped@example.com")
	role := createRole(t, db, "Viewer", &home.ID, models.ZeusNone)
	assignRole(t, db, user, role)

	posts := createPermission(t, db, "posts", models.KindCRUD)
	grantDirect(t, db, RoleAssignee(role.ID), posts.ID, &home.ID, []string{"read"})

	perms, err := engine.Resolve(context.Background(), user.ID, &other.ID)
	require.NoError(t, err)
	require.Empty(t, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestResolveRoleGrantIgnoresGrantAccountColumn(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	home := createAccount(t, db, "home")
	other := createAccount(t, db, "other")
	user := createUser(t, db, "global-role@example.com")
	role := createRole(t, db, "Support", nil, models.ZeusNone)
	assignRole(t, db, user, role)

	// Tenant scoping for role grants happens at the role level only. A grant
	// row carrying an account id still applies wherever the role applies.
	posts := createPermission(t, db, "posts", models.KindCRUD)
	exports := createPermission(t, db, "exports.run", models.KindFlag)
	grantDirect(t, db, RoleAssignee(role.ID), posts.ID, &home.ID, []string{"read"})
	grantDirect(t, db, RoleAssignee(role.ID), exports.ID, nil, nil)

	for _, scope := range []*uint{nil, &home.ID, &other.ID} {
		perms, err := engine.Resolve(context.Background(), user.ID, scope)
		require.NoError(t, err)
		require.Equal(t, []string{"exports.run", "posts:read"}, perms)
	}
}

func TestResolveDirectUserGrantScoping(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	home := createAccount(t, db, "home")
	other := createAccount(t, db, "other")
	user := createUser(t, db, "direct@example.com")

	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, &home.ID, nil)

	perms, err := engine.Resolve(context.Background(), user.ID, &home.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, &other.ID)
	require.NoError(t, err)
	require.Empty(t, perms)

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestResolveFlagOffRestrictionDenies(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	user := createUser(t, db, "denied@example.com")
	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, nil, []string{"off"})

	perms, err := engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, perms)

	allowed, err := engine.Check(context.Background(), user.ID, nil, "billing.view")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveUnionsRoleAndDirectGrants(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	account := createAccount(t, db, "acme")
	user := createUser(t, db, "mixed@example.com")
	role := createRole(t, db, "Viewer", &account.ID, models.ZeusNone)
	assignRole(t, db, user, role)

	posts := createPermission(t, db, "posts", models.KindCRUD)
	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, RoleAssignee(role.ID), posts.ID, &account.ID, []string{"read"})
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, &account.ID, nil)

	perms, err := engine.Resolve(context.Background(), user.ID, &account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view", "posts:read"}, perms)
}

func TestCheckRequiresPermissionName(t *testing.T) {
	_, engine := newEngineTestEnv(t)

	_, err := engine.Check(context.Background(), 1, nil, "   ")
	require.Error(t, err)
}

func TestResolveUsesCacheUntilVersionBump(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	user := createUser(t, db, "cached@example.com")
	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, nil, nil)

	perms, err := engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)

	// A second grant added behind the cache's back stays invisible.
	exports := createPermission(t, db, "exports.run", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), exports.ID, nil, nil)

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)

	engine.Versions().Bump(context.Background())

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view", "exports.run"}, perms)
}

func TestResolveEmptyResultIsNotCached(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	user := createUser(t, db, "late@example.com")

	perms, err := engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, perms)

	// The empty resolution must not have been pinned: a fresh grant shows up
	// without any invalidation.
	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, nil, nil)

	perms, err = engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)
}

func TestInvalidateUserEvictsAllTenantContexts(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	account := createAccount(t, db, "acme")
	user := createUser(t, db, "evicted@example.com")
	joinAccount(t, db, user, account)

	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grant := grantDirect(t, db, UserAssignee(user.ID), billing.ID, nil, nil)

	for _, scope := range []*uint{nil, &account.ID} {
		perms, err := engine.Resolve(context.Background(), user.ID, scope)
		require.NoError(t, err)
		require.Equal(t, []string{"billing.view"}, perms)
	}

	// Silent removal leaves both cached entries stale.
	require.NoError(t, db.Delete(grant).Error)

	perms, err := engine.Resolve(context.Background(), user.ID, &account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)

	require.NoError(t, engine.InvalidateUser(context.Background(), user.ID))

	for _, scope := range []*uint{nil, &account.ID} {
		perms, err := engine.Resolve(context.Background(), user.ID, scope)
		require.NoError(t, err)
		require.Empty(t, perms)
	}
}

func TestInvalidateAssigneeRoleEvictsAllMembers(t *testing.T) {
	db, engine := newEngineTestEnv(t)

	user1 := createUser(t, db, "one@example.com")
	user2 := createUser(t, db, "two@example.com")
	role := createRole(t, db, "Readers", nil, models.ZeusNone)
	assignRole(t, db, user1, role)
	assignRole(t, db, user2, role)

	posts := createPermission(t, db, "posts", models.KindCRUD)
	grant := grantDirect(t, db, RoleAssignee(role.ID), posts.ID, nil, []string{"read"})

	for _, id := range []uint{user1.ID, user2.ID} {
		perms, err := engine.Resolve(context.Background(), id, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"posts:read"}, perms)
	}

	require.NoError(t, db.Delete(grant).Error)
	require.NoError(t, engine.InvalidateAssignee(context.Background(), RoleAssignee(role.ID)))

	for _, id := range []uint{user1.ID, user2.ID} {
		perms, err := engine.Resolve(context.Background(), id, nil)
		require.NoError(t, err)
		require.Empty(t, perms)
	}
}

func TestEngineWorksWithoutCache(t *testing.T) {
	db := newPlainTestDB(t)

	engine, err := NewEngine(db, nil)
	require.NoError(t, err)

	user := createUser(t, db, "nocache@example.com")
	billing := createPermission(t, db, "billing.view", models.KindFlag)
	grantDirect(t, db, UserAssignee(user.ID), billing.ID, nil, nil)

	perms, err := engine.Resolve(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"billing.view"}, perms)
}
