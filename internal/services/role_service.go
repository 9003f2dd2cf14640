package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/models"
	apperrors "github.com/gatewarden/gatewarden/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrRoleMemberExists signals the user already holds the role.
	ErrRoleMemberExists = apperrors.New("ROLE_MEMBER_EXISTS", "User already holds role", http.StatusConflict)
)

// CreateRoleInput captures new role metadata. A nil AccountID creates a
// global role.
type CreateRoleInput struct {
	AccountID   *uint
	Name        string
	ZeusLevel   models.ZeusLevel
	Description string
}

// UpdateRoleInput describes mutable role fields.
type UpdateRoleInput struct {
	Name        *string
	ZeusLevel   *models.ZeusLevel
	Description *string
}

// RoleService handles role lifecycle and membership.
type RoleService struct {
	db       *gorm.DB
	engine   *abac.Engine
	activity *ActivityService
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(db *gorm.DB, engine *abac.Engine, activity *ActivityService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	if engine == nil {
		return nil, errors.New("role service: engine is required")
	}
	return &RoleService{db: db, engine: engine, activity: activity}, nil
}

// Create registers a new role. Role names are unique within their scope; the
// global scope is enforced here because NULL values bypass the composite
// database index.
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	zeus := input.ZeusLevel
	if zeus == "" {
		zeus = models.ZeusNone
	}
	if !zeus.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown zeus level %q", zeus))
	}
	if zeus == models.ZeusTenant && input.AccountID == nil {
		return nil, apperrors.NewBadRequest("tenant zeus roles must belong to an account")
	}

	if taken, err := s.nameTaken(ctx, input.AccountID, name, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.NewBadRequest("role name already exists in this scope")
	}

	role := &models.Role{
		AccountID:   input.AccountID,
		Name:        name,
		ZeusLevel:   zeus,
		Description: strings.TrimSpace(input.Description),
	}

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists in this scope")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   role.AccountID,
		Event:       "role.created",
		SubjectType: "role",
		SubjectID:   &role.ID,
		Properties:  map[string]any{"name": role.Name, "zeus_level": string(role.ZeusLevel)},
	})

	return role, nil
}

// Update modifies role metadata. The scope is immutable.
func (s *RoleService) Update(ctx context.Context, id uint, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != "" && name != role.Name {
			if taken, err := s.nameTaken(ctx, role.AccountID, name, role.ID); err != nil {
				return nil, err
			} else if taken {
				return nil, apperrors.NewBadRequest("role name already exists in this scope")
			}
			updates["name"] = name
		}
	}
	if input.ZeusLevel != nil {
		zeus := *input.ZeusLevel
		if !zeus.Valid() {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown zeus level %q", zeus))
		}
		if zeus == models.ZeusTenant && role.AccountID == nil {
			return nil, apperrors.NewBadRequest("tenant zeus roles must belong to an account")
		}
		updates["zeus_level"] = zeus
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return role, nil
	}

	if err := s.db.WithContext(ctx).Model(role).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   role.AccountID,
		Event:       "role.updated",
		SubjectType: "role",
		SubjectID:   &role.ID,
		Properties:  updates,
	})

	return s.GetByID(ctx, id)
}

// Delete removes a role, its memberships, and every grant addressed to it.
func (s *RoleService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Capture affected users before the membership rows disappear.
	if err := s.engine.InvalidateAssignee(ctx, abac.RoleAssignee(id)); err != nil {
		return fmt.Errorf("role service: invalidate role members: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignee_type = ? AND assignee_id = ?", models.AssigneeTypeRole, id).
			Delete(&models.AssignedPermission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(role).Association("Users").Clear(); err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	if err != nil {
		return fmt.Errorf("role service: delete role: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   role.AccountID,
		Event:       "role.deleted",
		SubjectType: "role",
		SubjectID:   &id,
		Properties:  map[string]any{"name": role.Name},
	})

	return nil
}

// GetByID loads a role by primary key.
func (s *RoleService) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).First(&role, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// List returns the roles visible in the given scope: global roles plus, when
// an account is active, that account's roles.
func (s *RoleService) List(ctx context.Context, accountID *uint) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Order("name ASC")
	if accountID != nil {
		query = query.Where("account_id IS NULL OR account_id = ?", *accountID)
	} else {
		query = query.Where("account_id IS NULL")
	}

	var roles []models.Role
	if err := query.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// AssignUser grants role membership to a user.
func (s *RoleService) AssignUser(ctx context.Context, roleID, userID uint) error {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("user not found")
		}
		return fmt.Errorf("role service: load user: %w", err)
	}

	var existing int64
	err = s.db.WithContext(ctx).
		Table("user_roles").
		Where("role_id = ? AND user_id = ?", roleID, userID).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("role service: check membership: %w", err)
	}
	if existing > 0 {
		return ErrRoleMemberExists
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Users").Append(&user); err != nil {
		return fmt.Errorf("role service: assign user: %w", err)
	}

	if err := s.engine.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("role service: invalidate user: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   role.AccountID,
		Event:       "role.member_added",
		SubjectType: "user",
		SubjectID:   &userID,
		Properties:  map[string]any{"role": role.Name},
	})

	return nil
}

// RemoveUser revokes role membership. Removing a non-member is a no-op.
func (s *RoleService) RemoveUser(ctx context.Context, roleID, userID uint) error {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	user := models.User{BaseModel: models.BaseModel{ID: userID}}
	if err := s.db.WithContext(ctx).Model(role).Association("Users").Delete(&user); err != nil {
		return fmt.Errorf("role service: remove user: %w", err)
	}

	if err := s.engine.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("role service: invalidate user: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   role.AccountID,
		Event:       "role.member_removed",
		SubjectType: "user",
		SubjectID:   &userID,
		Properties:  map[string]any{"role": role.Name},
	})

	return nil
}

func (s *RoleService) nameTaken(ctx context.Context, accountID *uint, name string, excludeID uint) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.Role{}).Where("name = ?", name)
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	} else {
		query = query.Where("account_id IS NULL")
	}
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("role service: check name: %w", err)
	}
	return count > 0, nil
}
