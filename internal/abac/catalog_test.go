package abac

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/gatewarden/gatewarden/internal/models"
)

func TestExpandCRUDProducesExactlyFourActions(t *testing.T) {
	expanded := Expand("posts", models.KindCRUD)
	require.Equal(t, []string{"posts:create", "posts:read", "posts:update", "posts:delete"}, expanded)
}

func TestExpandFlagIsBareName(t *testing.T) {
	require.Equal(t, []string{"billing.view"}, Expand("billing.view", models.KindFlag))
}

func TestAvailableActions(t *testing.T) {
	require.Equal(t, []string{"create", "read", "update", "delete"}, AvailableActions(models.KindCRUD))
	require.Equal(t, []string{"on", "off"}, AvailableActions(models.KindFlag))
}

func TestExpandGrantNilPermissionContributesNothing(t *testing.T) {
	require.Nil(t, ExpandGrant(nil))
	require.Nil(t, ExpandGrant(&models.AssignedPermission{}))
}

func TestExpandGrantCRUDUnrestricted(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "posts", Kind: models.KindCRUD},
	}
	require.Equal(t, []string{"posts:create", "posts:read", "posts:update", "posts:delete"}, ExpandGrant(grant))
}

func TestExpandGrantCRUDRestrictionIsAllowlist(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "posts", Kind: models.KindCRUD},
		Access:     datatypes.JSON(`["read","update"]`),
	}
	require.Equal(t, []string{"posts:read", "posts:update"}, ExpandGrant(grant))
}

func TestExpandGrantCRUDUnknownTokensExpandLiterally(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "posts", Kind: models.KindCRUD},
		Access:     datatypes.JSON(`["publish"]`),
	}
	require.Equal(t, []string{"posts:publish"}, ExpandGrant(grant))
}

func TestExpandGrantCRUDEmptyRestrictionGrantsNothing(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "posts", Kind: models.KindCRUD},
		Access:     datatypes.JSON(`[]`),
	}
	require.Empty(t, ExpandGrant(grant))
}

func TestExpandGrantFlagUnrestricted(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "impersonate", Kind: models.KindFlag},
	}
	require.Equal(t, []string{"impersonate"}, ExpandGrant(grant))
}

func TestExpandGrantFlagOffDenies(t *testing.T) {
	for _, access := range []string{`["off"]`, `["on","off"]`, `["off","on"]`} {
		grant := &models.AssignedPermission{
			Permission: &models.Permission{Name: "impersonate", Kind: models.KindFlag},
			Access:     datatypes.JSON(access),
		}
		require.Nil(t, ExpandGrant(grant), "access %s should deny", access)
	}
}

func TestExpandGrantFlagRestrictionWithoutOffStillGrants(t *testing.T) {
	grant := &models.AssignedPermission{
		Permission: &models.Permission{Name: "impersonate", Kind: models.KindFlag},
		Access:     datatypes.JSON(`["on"]`),
	}
	require.Equal(t, []string{"impersonate"}, ExpandGrant(grant))
}
