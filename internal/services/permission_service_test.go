package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/models"
)

func TestPermissionCreateDefaultsAndValidates(t *testing.T) {
	env := newTestEnv(t)
	permissions := env.permissions(t)
	ctx := context.Background()

	flag, err := permissions.Create(ctx, CreatePermissionInput{Name: "billing.view"})
	require.NoError(t, err)
	require.Equal(t, models.KindFlag, flag.Kind)

	_, err = permissions.Create(ctx, CreatePermissionInput{Name: "billing.view"})
	require.Error(t, err)

	_, err = permissions.Create(ctx, CreatePermissionInput{Name: ""})
	require.Error(t, err)

	_, err = permissions.Create(ctx, CreatePermissionInput{Name: "posts", Kind: "binary"})
	require.Error(t, err)
}

func TestPermissionUpdateChangesDescriptionOnly(t *testing.T) {
	env := newTestEnv(t)
	permissions := env.permissions(t)
	ctx := context.Background()

	created, err := permissions.Create(ctx, CreatePermissionInput{Name: "posts", Kind: models.KindCRUD})
	require.NoError(t, err)

	description := "Blog post management"
	updated, err := permissions.Update(ctx, created.ID, UpdatePermissionInput{Description: &description})
	require.NoError(t, err)
	require.Equal(t, description, updated.Description)
	require.Equal(t, "posts", updated.Name)
	require.Equal(t, models.KindCRUD, updated.Kind)
}

func TestPermissionDeleteCascadesToGrants(t *testing.T) {
	env := newTestEnv(t)
	permissions := env.permissions(t)
	ctx := context.Background()

	permission, err := permissions.Create(ctx, CreatePermissionInput{Name: "posts", Kind: models.KindCRUD})
	require.NoError(t, err)

	role, err := env.roles(t).Create(ctx, CreateRoleInput{Name: "Editor"})
	require.NoError(t, err)
	_, err = env.assignments(t).Grant(ctx, abac.RoleAssignee(role.ID), GrantRequest{PermissionID: permission.ID})
	require.NoError(t, err)

	require.NoError(t, permissions.Delete(ctx, permission.ID))

	_, err = permissions.GetByID(ctx, permission.ID)
	require.ErrorIs(t, err, ErrPermissionNotFound)

	var grants int64
	require.NoError(t, env.db.Model(&models.AssignedPermission{}).Count(&grants).Error)
	require.Zero(t, grants)
}

func TestPermissionListCatalog(t *testing.T) {
	env := newTestEnv(t)
	permissions := env.permissions(t)
	ctx := context.Background()

	_, err := permissions.Create(ctx, CreatePermissionInput{Name: "posts", Kind: models.KindCRUD})
	require.NoError(t, err)
	_, err = permissions.Create(ctx, CreatePermissionInput{Name: "billing.view"})
	require.NoError(t, err)

	catalog, err := permissions.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	require.Equal(t, "billing.view", catalog[0].Permission.Name)
	require.Equal(t, []string{"on", "off"}, catalog[0].Actions)
	require.Equal(t, "posts", catalog[1].Permission.Name)
	require.Equal(t, []string{"create", "read", "update", "delete"}, catalog[1].Actions)
}

func TestPermissionFindByName(t *testing.T) {
	env := newTestEnv(t)
	permissions := env.permissions(t)
	ctx := context.Background()

	created, err := permissions.Create(ctx, CreatePermissionInput{Name: "impersonate"})
	require.NoError(t, err)

	found, err := permissions.FindByName(ctx, "impersonate")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = permissions.FindByName(ctx, "ghost")
	require.ErrorIs(t, err, ErrPermissionNotFound)
}
