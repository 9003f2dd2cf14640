package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestZeusLevelValid(t *testing.T) {
	require.True(t, ZeusNone.Valid())
	require.True(t, ZeusTenant.Valid())
	require.True(t, ZeusSystem.Valid())
	require.False(t, ZeusLevel("root").Valid())
	require.False(t, ZeusLevel("").Valid())
}

func TestPermissionKindValid(t *testing.T) {
	require.True(t, KindFlag.Valid())
	require.True(t, KindCRUD.Valid())
	require.False(t, PermissionKind("binary").Valid())
}

func TestRoleAppliesTo(t *testing.T) {
	var (
		home  uint = 1
		other uint = 2
	)

	global := Role{}
	require.True(t, global.AppliesTo(nil))
	require.True(t, global.AppliesTo(&home))

	scoped := Role{AccountID: &home}
	require.False(t, scoped.AppliesTo(nil))
	require.True(t, scoped.AppliesTo(&home))
	require.False(t, scoped.AppliesTo(&other))
}

func TestAssignedPermissionAccessRestriction(t *testing.T) {
	unrestricted := AssignedPermission{}
	require.False(t, unrestricted.HasAccessRestriction())
	require.Nil(t, unrestricted.AccessTokens())

	null := AssignedPermission{Access: datatypes.JSON("null")}
	require.False(t, null.HasAccessRestriction())

	empty := AssignedPermission{Access: datatypes.JSON("[]")}
	require.True(t, empty.HasAccessRestriction())
	require.Empty(t, empty.AccessTokens())

	restricted := AssignedPermission{Access: datatypes.JSON(`["read","update"]`)}
	require.True(t, restricted.HasAccessRestriction())
	require.Equal(t, []string{"read", "update"}, restricted.AccessTokens())

	garbage := AssignedPermission{Access: datatypes.JSON("{broken")}
	require.True(t, garbage.HasAccessRestriction())
	require.Nil(t, garbage.AccessTokens())
}
