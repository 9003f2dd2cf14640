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

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// CreateUserInput captures new user metadata.
type CreateUserInput struct {
	Email string
	Name  string
}

// UserService handles user lifecycle.
type UserService struct {
	db       *gorm.DB
	engine   *abac.Engine
	activity *ActivityService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, engine *abac.Engine, activity *ActivityService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if engine == nil {
		return nil, errors.New("user service: engine is required")
	}
	return &UserService{db: db, engine: engine, activity: activity}, nil
}

// Create registers a new user.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("user email is required")
	}

	user := &models.User{
		Email: email,
		Name:  strings.TrimSpace(input.Name),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("user email already exists")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "user.created",
		SubjectType: "user",
		SubjectID:   &user.ID,
		Properties:  map[string]any{"email": user.Email},
	})

	return user, nil
}

// GetByID loads a user with role membership.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// List returns all users ordered by email.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("email ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// Delete removes a user, their memberships, and their direct grants.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.engine.InvalidateUser(ctx, id); err != nil {
		return fmt.Errorf("user service: invalidate user: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignee_type = ? AND assignee_id = ?", models.AssigneeTypeUser, id).
			Delete(&models.AssignedPermission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		if err := tx.Model(user).Association("Accounts").Clear(); err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "user.deleted",
		SubjectType: "user",
		SubjectID:   &id,
		Properties:  map[string]any{"email": user.Email},
	})

	return nil
}
