package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/cache"
	"github.com/gatewarden/gatewarden/internal/database/testutil"
)

type testEnv struct {
	db     *gorm.DB
	engine *abac.Engine
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	engine, err := abac.NewEngine(db, cache.NewDatabaseStore(db))
	require.NoError(t, err)
	return testEnv{db: db, engine: engine}
}

func (e testEnv) accounts(t *testing.T) *AccountService {
	t.Helper()
	svc, err := NewAccountService(e.db, nil)
	require.NoError(t, err)
	return svc
}

func (e testEnv) users(t *testing.T) *UserService {
	t.Helper()
	svc, err := NewUserService(e.db, e.engine, nil)
	require.NoError(t, err)
	return svc
}

func (e testEnv) roles(t *testing.T) *RoleService {
	t.Helper()
	svc, err := NewRoleService(e.db, e.engine, nil)
	require.NoError(t, err)
	return svc
}

func (e testEnv) permissions(t *testing.T) *PermissionService {
	t.Helper()
	svc, err := NewPermissionService(e.db, nil)
	require.NoError(t, err)
	return svc
}

func (e testEnv) assignments(t *testing.T) *AssignmentService {
	t.Helper()
	svc, err := NewAssignmentService(e.db, e.engine, nil)
	require.NoError(t, err)
	return svc
}
