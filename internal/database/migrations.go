package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// AutoMigrate creates or updates the schema for every registered model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.AssignedPermission{},
		&models.ActivityLog{},
		&models.CacheEntry{},
	)
}

// SeedData provisions the baseline permission catalog, the system
// operator role, and a demo tenant with a conventional role ladder.
// Seeding is idempotent; existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	log := logger.WithModule("database")

	if err := seedPermissionCatalog(db); err != nil {
		return fmt.Errorf("seed permission catalog: %w", err)
	}

	if err := seedSystemRole(db); err != nil {
		return fmt.Errorf("seed system role: %w", err)
	}

	if err := seedDemoTenant(db); err != nil {
		return fmt.Errorf("seed demo tenant: %w", err)
	}

	log.Info("database seed complete")
	return nil
}

func seedPermissionCatalog(db *gorm.DB) error {
	crud := []struct {
		name        string
		description string
	}{
		{"accounts", "Manage tenant accounts"},
		{"users", "Manage users"},
		{"roles", "Manage roles"},
		{"permissions", "Manage the permission catalog"},
		{"assigned_permissions", "Manage permission grants"},
		{"activity_logs", "Browse the activity log"},
		{"posts", "Manage posts"},
	}

	flags := []struct {
		name        string
		description string
	}{
		{"billing.view", "See billing details"},
		{"exports.run", "Run data exports"},
		{"impersonate", "Impersonate another user"},
	}

	for _, p := range crud {
		perm := models.Permission{
			Name:        p.name,
			Kind:        models.KindCRUD,
			Description: p.description,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&perm).Error; err != nil {
			return err
		}
	}

	for _, p := range flags {
		perm := models.Permission{
			Name:        p.name,
			Kind:        models.KindFlag,
			Description: p.description,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&perm).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedSystemRole(db *gorm.DB) error {
	role := models.Role{
		Name:        "System Operator",
		ZeusLevel:   models.ZeusSystem,
		Description: "Unrestricted platform access across every tenant",
	}
	return db.Where("account_id IS NULL AND name = ?", role.Name).
		FirstOrCreate(&role).Error
}

func seedDemoTenant(db *gorm.DB) error {
	var account models.Account
	err := db.Where(models.Account{Slug: "demo-corp"}).
		Attrs(models.Account{Name: "Demo Corp", Plan: "trial"}).
		FirstOrCreate(&account).Error
	if err != nil {
		return err
	}

	roles := []struct {
		name        string
		zeus        models.ZeusLevel
		description string
	}{
		{"Owner", models.ZeusTenant, "Full control inside the tenant"},
		{"Manager", models.ZeusNone, "Day-to-day administration"},
		{"Editor", models.ZeusNone, "Creates and edits content"},
		{"Viewer", models.ZeusNone, "Read-only access"},
	}

	created := map[string]*models.Role{}
	for _, r := range roles {
		role := models.Role{
			AccountID:   &account.ID,
			Name:        r.name,
			ZeusLevel:   r.zeus,
			Description: r.description,
		}
		if err := db.Where("account_id = ? AND name = ?", account.ID, r.name).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
		role.AccountID = &account.ID
		created[r.name] = &role
	}

	grants := []struct {
		role       string
		permission string
		access     []string
	}{
		{"Manager", "users", nil},
		{"Manager", "roles", []string{"read"}},
		{"Manager", "posts", nil},
		{"Manager", "activity_logs", []string{"read"}},
		{"Editor", "posts", []string{"create", "read", "update"}},
		{"Viewer", "posts", []string{"read"}},
		{"Viewer", "activity_logs", []string{"read"}},
	}

	for _, g := range grants {
		role, ok := created[g.role]
		if !ok {
			continue
		}

		var perm models.Permission
		if err := db.First(&perm, "name = ?", g.permission).Error; err != nil {
			return err
		}

		if err := seedGrant(db, account.ID, role.ID, perm.ID, g.access); err != nil {
			return err
		}
	}

	return nil
}

func seedGrant(db *gorm.DB, accountID, roleID, permissionID uint, access []string) error {
	var existing models.AssignedPermission
	err := db.Where(
		"account_id = ? AND permission_id = ? AND assignee_id = ? AND assignee_type = ?",
		accountID, permissionID, roleID, models.AssigneeTypeRole,
	).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	grant := models.AssignedPermission{
		AccountID:    &accountID,
		PermissionID: permissionID,
		AssigneeID:   roleID,
		AssigneeType: models.AssigneeTypeRole,
	}
	if access != nil {
		raw, err := encodeSeedAccess(access)
		if err != nil {
			return err
		}
		grant.Access = raw
	}

	if err := db.Create(&grant).Error; err != nil {
		logger.WithModule("database").Warn("seed grant failed",
			zap.Uint("role_id", roleID),
			zap.Uint("permission_id", permissionID),
			zap.Error(err))
		return err
	}
	return nil
}

func encodeSeedAccess(tokens []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
