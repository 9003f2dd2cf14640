package abac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/cache"
	"github.com/gatewarden/gatewarden/internal/database/testutil"
	"github.com/gatewarden/gatewarden/internal/models"
)

func newPlainTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func newEngineTestEnv(t *testing.T) (*gorm.DB, *Engine) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	engine, err := NewEngine(db, cache.NewDatabaseStore(db))
	require.NoError(t, err)
	return db, engine
}

func createAccount(t *testing.T, db *gorm.DB, slug string) *models.Account {
	t.Helper()

	account := &models.Account{Name: slug, Slug: slug}
	require.NoError(t, db.Create(account).Error)
	return account
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createRole(t *testing.T, db *gorm.DB, name string, accountID *uint, zeus models.ZeusLevel) *models.Role {
	t.Helper()

	role := &models.Role{AccountID: accountID, Name: name, ZeusLevel: zeus}
	require.NoError(t, db.Create(role).Error)
	return role
}

func createPermission(t *testing.T, db *gorm.DB, name string, kind models.PermissionKind) *models.Permission {
	t.Helper()

	permission := &models.Permission{Name: name, Kind: kind}
	require.NoError(t, db.Create(permission).Error)
	return permission
}

func assignRole(t *testing.T, db *gorm.DB, user *models.User, role *models.Role) {
	t.Helper()
	require.NoError(t, db.Model(user).Association("Roles").Append(role))
}

func joinAccount(t *testing.T, db *gorm.DB, user *models.User, account *models.Account) {
	t.Helper()
	require.NoError(t, db.Model(account).Association("Users").Append(user))
}

// grantDirect inserts a grant row bypassing the store, for fixtures that need
// precise control over the stored restriction value.
func grantDirect(t *testing.T, db *gorm.DB, assignee Assignee, permissionID uint, accountID *uint, access []string) *models.AssignedPermission {
	t.Helper()

	grant := &models.AssignedPermission{
		AccountID:    accountID,
		PermissionID: permissionID,
		AssigneeID:   assignee.ID,
		AssigneeType: string(assignee.Kind),
	}
	if access != nil {
		encoded, err := json.Marshal(access)
		require.NoError(t, err)
		grant.Access = datatypes.JSON(encoded)
	}
	require.NoError(t, db.Create(grant).Error)
	return grant
}
