package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/models"
)

func TestUserCreateNormalisesEmail(t *testing.T) {
	env := newTestEnv(t)
	users := env.users(t)
	ctx := context.Background()

	user, err := users.Create(ctx, CreateUserInput{Email: "  Jamie@Example.COM ", Name: "Jamie"})
	require.NoError(t, err)
	require.Equal(t, "jamie@example.com", user.Email)

	_, err = users.Create(ctx, CreateUserInput{Email: "jamie@example.com"})
	require.Error(t, err)

	_, err = users.Create(ctx, CreateUserInput{Email: "   "})
	require.Error(t, err)
}

func TestUserDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	users := env.users(t)
	ctx := context.Background()

	user, err := users.Create(ctx, CreateUserInput{Email: "leaver@example.com"})
	require.NoError(t, err)

	account, err := env.accounts(t).Create(ctx, CreateAccountInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	require.NoError(t, env.accounts(t).AddUser(ctx, account.ID, user.ID))

	role, err := env.roles(t).Create(ctx, CreateRoleInput{Name: "Editor"})
	require.NoError(t, err)
	require.NoError(t, env.roles(t).AssignUser(ctx, role.ID, user.ID))

	permission, err := env.permissions(t).Create(ctx, CreatePermissionInput{Name: "billing.view"})
	require.NoError(t, err)
	_, err = env.assignments(t).Grant(ctx, abac.UserAssignee(user.ID), GrantRequest{PermissionID: permission.ID})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, user.ID))

	_, err = users.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var grants int64
	require.NoError(t, env.db.Model(&models.AssignedPermission{}).Count(&grants).Error)
	require.Zero(t, grants)

	var roleLinks int64
	require.NoError(t, env.db.Table("user_roles").Count(&roleLinks).Error)
	require.Zero(t, roleLinks)

	var accountLinks int64
	require.NoError(t, env.db.Table("account_users").Count(&accountLinks).Error)
	require.Zero(t, accountLinks)

	// The role and account themselves survive.
	_, err = env.roles(t).GetByID(ctx, role.ID)
	require.NoError(t, err)
	_, err = env.accounts(t).GetByID(ctx, account.ID)
	require.NoError(t, err)
}
