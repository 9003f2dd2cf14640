package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/database"
	"github.com/gatewarden/gatewarden/internal/database/testutil"
	"github.com/gatewarden/gatewarden/internal/models"
)

func TestSeedDataIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())

	var permissions, roles, grants int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissions).Error)
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	require.NoError(t, db.Model(&models.AssignedPermission{}).Count(&grants).Error)
	require.NotZero(t, permissions)
	require.NotZero(t, roles)
	require.NotZero(t, grants)

	require.NoError(t, database.SeedData(db))

	var permissions2, roles2, grants2 int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissions2).Error)
	require.NoError(t, db.Model(&models.Role{}).Count(&roles2).Error)
	require.NoError(t, db.Model(&models.AssignedPermission{}).Count(&grants2).Error)
	require.Equal(t, permissions, permissions2)
	require.Equal(t, roles, roles2)
	require.Equal(t, grants, grants2)
}

func TestSeedDataProvisionsExpectedFixtures(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())

	var posts models.Permission
	require.NoError(t, db.First(&posts, "name = ?", "posts").Error)
	require.Equal(t, models.KindCRUD, posts.Kind)

	var billing models.Permission
	require.NoError(t, db.First(&billing, "name = ?", "billing.view").Error)
	require.Equal(t, models.KindFlag, billing.Kind)

	var operator models.Role
	require.NoError(t, db.First(&operator, "account_id IS NULL AND name = ?", "System Operator").Error)
	require.Equal(t, models.ZeusSystem, operator.ZeusLevel)

	var account models.Account
	require.NoError(t, db.First(&account, "slug = ?", "demo-corp").Error)

	var owner models.Role
	require.NoError(t, db.First(&owner, "account_id = ? AND name = ?", account.ID, "Owner").Error)
	require.Equal(t, models.ZeusTenant, owner.ZeusLevel)

	var editor models.Role
	require.NoError(t, db.First(&editor, "account_id = ? AND name = ?", account.ID, "Editor").Error)

	var grant models.AssignedPermission
	err := db.First(&grant,
		"assignee_type = ? AND assignee_id = ? AND permission_id = ?",
		models.AssigneeTypeRole, editor.ID, posts.ID).Error
	require.NoError(t, err)
	require.True(t, grant.HasAccessRestriction())
	require.Equal(t, []string{"create", "read", "update"}, grant.AccessTokens())
}
