package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
	apperrors "github.com/gatewarden/gatewarden/pkg/errors"
)

var (
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
	// ErrAccountMemberExists signals the user already belongs to the account.
	ErrAccountMemberExists = apperrors.New("ACCOUNT_MEMBER_EXISTS", "User already belongs to account", http.StatusConflict)
)

// CreateAccountInput captures new account metadata.
type CreateAccountInput struct {
	Name     string
	Slug     string
	Plan     string
	Metadata map[string]any
}

// UpdateAccountInput describes mutable account fields.
type UpdateAccountInput struct {
	Name     *string
	Plan     *string
	Metadata map[string]any
}

// AccountService handles tenant account lifecycle and membership.
type AccountService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(db *gorm.DB, activity *ActivityService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db, activity: activity}, nil
}

// Create registers a new tenant account.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	slug := strings.ToLower(strings.TrimSpace(input.Slug))

	if name == "" {
		return nil, apperrors.NewBadRequest("account name is required")
	}
	if slug == "" {
		return nil, apperrors.NewBadRequest("account slug is required")
	}

	account := &models.Account{
		Name: name,
		Slug: slug,
		Plan: strings.TrimSpace(input.Plan),
	}

	if input.Metadata != nil {
		encoded, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperrors.NewBadRequest("account metadata is not serialisable")
		}
		account.Metadata = datatypes.JSON(encoded)
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("account slug already exists")
		}
		return nil, fmt.Errorf("account service: create account: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   &account.ID,
		Event:       "account.created",
		SubjectType: "account",
		SubjectID:   &account.ID,
		Properties:  map[string]any{"name": account.Name, "slug": account.Slug},
	})

	return account, nil
}

// Update modifies account metadata. The slug is immutable; it identifies the
// tenant on the wire.
func (s *AccountService) Update(ctx context.Context, id uint, input UpdateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" && name != account.Name {
			updates["name"] = name
		}
	}
	if input.Plan != nil {
		updates["plan"] = strings.TrimSpace(*input.Plan)
	}
	if input.Metadata != nil {
		encoded, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperrors.NewBadRequest("account metadata is not serialisable")
		}
		updates["metadata"] = datatypes.JSON(encoded)
	}

	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("account service: update account: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   &account.ID,
		Event:       "account.updated",
		SubjectType: "account",
		SubjectID:   &account.ID,
		Properties:  updates,
	})

	return s.GetByID(ctx, id)
}

// Delete removes an account. Roles and grants scoped to the account are
// removed by the database's cascading foreign keys.
func (s *AccountService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	account, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(account).Association("Users").Clear(); err != nil {
			return err
		}
		return tx.Delete(account).Error
	})
	if err != nil {
		return fmt.Errorf("account service: delete account: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "account.deleted",
		SubjectType: "account",
		SubjectID:   &id,
		Properties:  map[string]any{"slug": account.Slug},
	})

	return nil
}

// GetByID loads an account by primary key.
func (s *AccountService) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	return &account, nil
}

// FindBySlug loads an account by its URL slug.
func (s *AccountService) FindBySlug(ctx context.Context, slug string) (*models.Account, error) {
	ctx = ensureContext(ctx)

	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, apperrors.NewBadRequest("account slug is required")
	}

	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: find account: %w", err)
	}
	return &account, nil
}

// List returns all accounts ordered by name.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	ctx = ensureContext(ctx)

	var accounts []models.Account
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("account service: list accounts: %w", err)
	}
	return accounts, nil
}

// AddUser links a user to the account.
func (s *AccountService) AddUser(ctx context.Context, accountID, userID uint) error {
	ctx = ensureContext(ctx)

	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("user not found")
		}
		return fmt.Errorf("account service: load user: %w", err)
	}

	count := s.db.WithContext(ctx).
		Table("account_users").
		Where("account_id = ? AND user_id = ?", accountID, userID)
	var existing int64
	if err := count.Count(&existing).Error; err != nil {
		return fmt.Errorf("account service: check membership: %w", err)
	}
	if existing > 0 {
		return ErrAccountMemberExists
	}

	if err := s.db.WithContext(ctx).Model(account).Association("Users").Append(&user); err != nil {
		return fmt.Errorf("account service: add member: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   &accountID,
		Event:       "account.member_added",
		SubjectType: "user",
		SubjectID:   &userID,
	})

	return nil
}

// RemoveUser unlinks a user from the account. Removing a non-member is a no-op.
func (s *AccountService) RemoveUser(ctx context.Context, accountID, userID uint) error {
	ctx = ensureContext(ctx)

	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	user := models.User{BaseModel: models.BaseModel{ID: userID}}
	if err := s.db.WithContext(ctx).Model(account).Association("Users").Delete(&user); err != nil {
		return fmt.Errorf("account service: remove member: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   &accountID,
		Event:       "account.member_removed",
		SubjectType: "user",
		SubjectID:   &userID,
	})

	return nil
}
