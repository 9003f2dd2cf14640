package abac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatewarden/gatewarden/internal/models"
)

// AssignmentStore is the engine's read/write surface over grant rows and the
// role/account membership tables.
type AssignmentStore struct {
	db *gorm.DB
}

// NewAssignmentStore constructs an AssignmentStore backed by the provided database.
func NewAssignmentStore(db *gorm.DB) (*AssignmentStore, error) {
	if db == nil {
		return nil, errors.New("abac: assignment store requires a db handle")
	}
	return &AssignmentStore{db: db}, nil
}

// UserWithRoles loads a user together with their full, unfiltered role set.
// Tenant-scope filtering happens later, during resolution.
func (s *AssignmentStore) UserWithRoles(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RoleGrants returns the grant rows targeting any of the given roles, with
// the permission resolved in the same round trip. The grant row's own account
// column is ignored here: tenant scoping for role grants happens when the
// role set is filtered, not per grant.
func (s *AssignmentStore) RoleGrants(ctx context.Context, roleIDs []uint) ([]models.AssignedPermission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var grants []models.AssignedPermission
	err := s.db.WithContext(ctx).
		Preload("Permission").
		Where("assignee_type = ? AND assignee_id IN ?", models.AssigneeTypeRole, roleIDs).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("abac: load role grants: %w", err)
	}
	return grants, nil
}

// UserGrants returns the user's direct grants applicable under the given
// tenant context: global grants always, account-scoped grants only when the
// account matches.
func (s *AssignmentStore) UserGrants(ctx context.Context, userID uint, accountID *uint) ([]models.AssignedPermission, error) {
	query := s.db.WithContext(ctx).
		Preload("Permission").
		Where("assignee_type = ? AND assignee_id = ?", models.AssigneeTypeUser, userID)

	if accountID != nil {
		query = query.Where("account_id IS NULL OR account_id = ?", *accountID)
	} else {
		query = query.Where("account_id IS NULL")
	}

	var grants []models.AssignedPermission
	if err := query.Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("abac: load user grants: %w", err)
	}
	return grants, nil
}

// GrantsFor lists every grant row targeting the assignee, permission
// resolved, for administrative inspection. No tenant filtering is applied.
func (s *AssignmentStore) GrantsFor(ctx context.Context, assignee Assignee) ([]models.AssignedPermission, error) {
	if err := assignee.Validate(); err != nil {
		return nil, err
	}

	var grants []models.AssignedPermission
	err := s.db.WithContext(ctx).
		Preload("Permission").
		Where("assignee_type = ? AND assignee_id = ?", string(assignee.Kind), assignee.ID).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("abac: load grants for %s: %w", assignee, err)
	}
	return grants, nil
}

// GrantInput describes one grant to upsert. A nil Access means the grant is
// unrestricted; a non-nil empty slice is an explicit empty restriction, which
// confers nothing for crud permissions.
type GrantInput struct {
	Assignee     Assignee
	PermissionID uint
	AccountID    *uint
	Access       []string
}

// Upsert creates the grant or, when a row with the same natural key already
// exists, replaces its access restriction. An explicit lookup comes first
// because a NULL account_id is never equal to itself under the unique index;
// the insert still carries an ON CONFLICT clause so a concurrent grant racing
// past the lookup lands as an update on account-scoped rows instead of a
// duplicate.
func (s *AssignmentStore) Upsert(ctx context.Context, input GrantInput) (*models.AssignedPermission, error) {
	if err := input.Assignee.Validate(); err != nil {
		return nil, err
	}
	if input.PermissionID == 0 {
		return nil, errors.New("abac: permission id is required")
	}

	access, err := encodeAccess(input.Access)
	if err != nil {
		return nil, err
	}

	lookup := func(tx *gorm.DB, dest *models.AssignedPermission) error {
		query := tx.Where(
			"permission_id = ? AND assignee_id = ? AND assignee_type = ?",
			input.PermissionID, input.Assignee.ID, string(input.Assignee.Kind),
		)
		return scopeGrantAccount(query, input.AccountID).First(dest).Error
	}

	var grant models.AssignedPermission

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lookup(tx, &grant)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			grant = models.AssignedPermission{
				AccountID:    input.AccountID,
				PermissionID: input.PermissionID,
				AssigneeID:   input.Assignee.ID,
				AssigneeType: string(input.Assignee.Kind),
				Access:       access,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "permission_id"},
					{Name: "assignee_id"},
					{Name: "assignee_type"},
					{Name: "account_id"},
				},
				DoUpdates: clause.Assignments(map[string]interface{}{"access": access}),
			}).Create(&grant)
			if result.Error != nil {
				return result.Error
			}
			if grant.ID != 0 {
				return nil
			}
			// Conflict resolved in favour of an existing row; load it.
			return lookup(tx, &grant)
		}
		if err != nil {
			return err
		}

		grant.Access = access
		return tx.Model(&grant).Update("access", access).Error
	})
	if err != nil {
		return nil, fmt.Errorf("abac: upsert grant: %w", err)
	}

	return &grant, nil
}

// Revoke deletes the grant row matching the natural key. Missing rows are
// not an error; revocation is idempotent.
func (s *AssignmentStore) Revoke(ctx context.Context, assignee Assignee, permissionID uint, accountID *uint) error {
	if err := assignee.Validate(); err != nil {
		return err
	}

	query := s.db.WithContext(ctx).Where(
		"permission_id = ? AND assignee_id = ? AND assignee_type = ?",
		permissionID, assignee.ID, string(assignee.Kind),
	)
	query = scopeGrantAccount(query, accountID)

	if err := query.Delete(&models.AssignedPermission{}).Error; err != nil {
		return fmt.Errorf("abac: revoke grant: %w", err)
	}
	return nil
}

// RevokeAll removes every grant targeting the assignee. Used by the sync
// endpoint, which replaces a subject's grants wholesale, and by cascade
// deletion when a role or user disappears.
func (s *AssignmentStore) RevokeAll(ctx context.Context, assignee Assignee) error {
	if err := assignee.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Where("assignee_type = ? AND assignee_id = ?", string(assignee.Kind), assignee.ID).
		Delete(&models.AssignedPermission{}).Error
	if err != nil {
		return fmt.Errorf("abac: revoke all grants for %s: %w", assignee, err)
	}
	return nil
}

// UserIDsWithRoles returns the distinct users holding any of the roles,
// straight from the membership table.
func (s *AssignmentStore) UserIDsWithRoles(ctx context.Context, roleIDs []uint) ([]uint, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var userIDs []uint
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Where("role_id IN ?", roleIDs).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("abac: load role members: %w", err)
	}
	return userIDs, nil
}

// AccountIDsForUser returns the accounts a user belongs to. The membership
// table makes a user's possible tenant contexts enumerable, which is what
// allows grouped cache eviction.
func (s *AssignmentStore) AccountIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var accountIDs []uint
	err := s.db.WithContext(ctx).
		Table("account_users").
		Where("user_id = ?", userID).
		Pluck("account_id", &accountIDs).Error
	if err != nil {
		return nil, fmt.Errorf("abac: load user accounts: %w", err)
	}
	return accountIDs, nil
}

func scopeGrantAccount(query *gorm.DB, accountID *uint) *gorm.DB {
	if accountID == nil {
		return query.Where("account_id IS NULL")
	}
	return query.Where("account_id = ?", *accountID)
}

func encodeAccess(tokens []string) (datatypes.JSON, error) {
	if tokens == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("abac: encode access restriction: %w", err)
	}
	return datatypes.JSON(encoded), nil
}
