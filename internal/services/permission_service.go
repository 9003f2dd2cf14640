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

// ErrPermissionNotFound indicates the requested permission does not exist.
var ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)

// CreatePermissionInput captures a new catalog entry.
type CreatePermissionInput struct {
	Name        string
	Kind        models.PermissionKind
	Description string
}

// UpdatePermissionInput describes mutable permission fields. The name and
// kind are immutable once grants may reference them.
type UpdatePermissionInput struct {
	Description *string
}

// CatalogEntry pairs a permission with the action names it can grant.
type CatalogEntry struct {
	Permission models.Permission `json:"permission"`
	Actions    []string          `json:"actions"`
}

// PermissionService manages the permission catalog.
type PermissionService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewPermissionService constructs a PermissionService instance.
func NewPermissionService(db *gorm.DB, activity *ActivityService) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{db: db, activity: activity}, nil
}

// Create registers a new permission in the catalog.
func (s *PermissionService) Create(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("permission name is required")
	}

	kind := input.Kind
	if kind == "" {
		kind = models.KindFlag
	}
	if !kind.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission kind %q", kind))
	}

	permission := &models.Permission{
		Name:        name,
		Kind:        kind,
		Description: strings.TrimSpace(input.Description),
	}

	if err := s.db.WithContext(ctx).Create(permission).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("permission name already exists")
		}
		return nil, fmt.Errorf("permission service: create permission: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "permission.created",
		SubjectType: "permission",
		SubjectID:   &permission.ID,
		Properties:  map[string]any{"name": permission.Name, "kind": string(permission.Kind)},
	})

	return permission, nil
}

// Update modifies a permission's description.
func (s *PermissionService) Update(ctx context.Context, id uint, input UpdatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	permission, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Description == nil {
		return permission, nil
	}

	description := strings.TrimSpace(*input.Description)
	if err := s.db.WithContext(ctx).Model(permission).Update("description", description).Error; err != nil {
		return nil, fmt.Errorf("permission service: update permission: %w", err)
	}
	permission.Description = description

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "permission.updated",
		SubjectType: "permission",
		SubjectID:   &permission.ID,
		Properties:  map[string]any{"name": permission.Name},
	})

	return permission, nil
}

// Delete removes a permission from the catalog along with every grant
// referencing it.
func (s *PermissionService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	permission, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).
			Delete(&models.AssignedPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(permission).Error
	})
	if err != nil {
		return fmt.Errorf("permission service: delete permission: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "permission.deleted",
		SubjectType: "permission",
		SubjectID:   &id,
		Properties:  map[string]any{"name": permission.Name},
	})

	return nil
}

// GetByID loads a permission by primary key.
func (s *PermissionService) GetByID(ctx context.Context, id uint) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	var permission models.Permission
	err := s.db.WithContext(ctx).First(&permission, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("permission service: load permission: %w", err)
	}
	return &permission, nil
}

// FindByName loads a permission by its catalog name.
func (s *PermissionService) FindByName(ctx context.Context, name string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("permission name is required")
	}

	var permission models.Permission
	err := s.db.WithContext(ctx).First(&permission, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("permission service: find permission: %w", err)
	}
	return &permission, nil
}

// ListCatalog returns every permission with the actions each one can grant.
func (s *PermissionService) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	ctx = ensureContext(ctx)

	var permissions []models.Permission
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, fmt.Errorf("permission service: list catalog: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(permissions))
	for _, permission := range permissions {
		entries = append(entries, CatalogEntry{
			Permission: permission,
			Actions:    abac.AvailableActions(permission.Kind),
		})
	}
	return entries, nil
}
