package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/models"
	apperrors "github.com/gatewarden/gatewarden/pkg/errors"
)

// GrantRequest describes a single permission grant for an assignee.
type GrantRequest struct {
	PermissionID uint
	AccountID    *uint
	Access       []string // nil means unrestricted
}

// AssignedGrant pairs a stored grant with the permission names it expands to.
type AssignedGrant struct {
	Grant   models.AssignedPermission `json:"grant"`
	Expands []string                  `json:"expands"`
}

// AssignmentService manages permission grants and keeps resolved caches
// coherent with them.
type AssignmentService struct {
	db       *gorm.DB
	store    *abac.AssignmentStore
	engine   *abac.Engine
	activity *ActivityService
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(db *gorm.DB, engine *abac.Engine, activity *ActivityService) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	if engine == nil {
		return nil, errors.New("assignment service: engine is required")
	}
	store, err := abac.NewAssignmentStore(db)
	if err != nil {
		return nil, err
	}
	return &AssignmentService{db: db, store: store, engine: engine, activity: activity}, nil
}

// Grant attaches a permission to an assignee, replacing the restriction on an
// existing grant for the same permission and scope.
func (s *AssignmentService) Grant(ctx context.Context, assignee abac.Assignee, req GrantRequest) (*models.AssignedPermission, error) {
	ctx = ensureContext(ctx)

	if err := s.validateAssignee(ctx, assignee); err != nil {
		return nil, err
	}

	var permission models.Permission
	if err := s.db.WithContext(ctx).First(&permission, "id = ?", req.PermissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("assignment service: load permission: %w", err)
	}

	if req.AccountID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Account{}).
			Where("id = ?", *req.AccountID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("assignment service: check account: %w", err)
		}
		if count == 0 {
			return nil, ErrAccountNotFound
		}
	}

	grant, err := s.store.Upsert(ctx, abac.GrantInput{
		Assignee:     assignee,
		PermissionID: req.PermissionID,
		AccountID:    req.AccountID,
		Access:       normaliseTokens(req.Access),
	})
	if err != nil {
		return nil, fmt.Errorf("assignment service: upsert grant: %w", err)
	}

	if err := s.engine.InvalidateAssignee(ctx, assignee); err != nil {
		return nil, fmt.Errorf("assignment service: invalidate: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   req.AccountID,
		Event:       "permission.granted",
		SubjectType: string(assignee.Kind),
		SubjectID:   &assignee.ID,
		Properties: map[string]any{
			"permission": permission.Name,
			"access":     req.Access,
		},
	})

	return grant, nil
}

// Revoke removes a permission grant. Revoking an absent grant is a no-op.
func (s *AssignmentService) Revoke(ctx context.Context, assignee abac.Assignee, permissionID uint, accountID *uint) error {
	ctx = ensureContext(ctx)

	if err := assignee.Validate(); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}

	if err := s.store.Revoke(ctx, assignee, permissionID, accountID); err != nil {
		return fmt.Errorf("assignment service: revoke grant: %w", err)
	}

	if err := s.engine.InvalidateAssignee(ctx, assignee); err != nil {
		return fmt.Errorf("assignment service: invalidate: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		AccountID:   accountID,
		Event:       "permission.revoked",
		SubjectType: string(assignee.Kind),
		SubjectID:   &assignee.ID,
		Properties:  map[string]any{"permission_id": permissionID},
	})

	return nil
}

// Sync replaces the assignee's grants with exactly the requested set: listed
// grants are upserted, all others are removed.
func (s *AssignmentService) Sync(ctx context.Context, assignee abac.Assignee, requests []GrantRequest) error {
	ctx = ensureContext(ctx)

	if err := s.validateAssignee(ctx, assignee); err != nil {
		return err
	}

	existing, err := s.store.GrantsFor(ctx, assignee)
	if err != nil {
		return fmt.Errorf("assignment service: list grants: %w", err)
	}

	keep := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		keep[grantKey(req.PermissionID, req.AccountID)] = struct{}{}
	}

	for _, grant := range existing {
		if _, ok := keep[grantKey(grant.PermissionID, grant.AccountID)]; ok {
			continue
		}
		if err := s.store.Revoke(ctx, assignee, grant.PermissionID, grant.AccountID); err != nil {
			return fmt.Errorf("assignment service: revoke stale grant: %w", err)
		}
	}

	for _, req := range requests {
		if _, err := s.store.Upsert(ctx, abac.GrantInput{
			Assignee:     assignee,
			PermissionID: req.PermissionID,
			AccountID:    req.AccountID,
			Access:       normaliseTokens(req.Access),
		}); err != nil {
			return fmt.Errorf("assignment service: upsert grant: %w", err)
		}
	}

	if err := s.engine.InvalidateAssignee(ctx, assignee); err != nil {
		return fmt.Errorf("assignment service: invalidate: %w", err)
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		Event:       "permission.synced",
		SubjectType: string(assignee.Kind),
		SubjectID:   &assignee.ID,
		Properties:  map[string]any{"grants": len(requests)},
	})

	return nil
}

// ListForAssignee returns the assignee's stored grants together with the
// permission names each one expands to.
func (s *AssignmentService) ListForAssignee(ctx context.Context, assignee abac.Assignee) ([]AssignedGrant, error) {
	ctx = ensureContext(ctx)

	if err := assignee.Validate(); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	grants, err := s.store.GrantsFor(ctx, assignee)
	if err != nil {
		return nil, fmt.Errorf("assignment service: list grants: %w", err)
	}

	out := make([]AssignedGrant, 0, len(grants))
	for _, grant := range grants {
		g := grant
		out = append(out, AssignedGrant{
			Grant:   g,
			Expands: abac.ExpandGrant(&g),
		})
	}
	return out, nil
}

func (s *AssignmentService) validateAssignee(ctx context.Context, assignee abac.Assignee) error {
	if err := assignee.Validate(); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}

	var (
		count int64
		err   error
	)
	switch assignee.Kind {
	case abac.AssigneeRole:
		err = s.db.WithContext(ctx).Model(&models.Role{}).
			Where("id = ?", assignee.ID).Count(&count).Error
	case abac.AssigneeUser:
		err = s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", assignee.ID).Count(&count).Error
	}
	if err != nil {
		return fmt.Errorf("assignment service: check assignee: %w", err)
	}
	if count == 0 {
		return apperrors.NewNotFound(fmt.Sprintf("%s not found", assignee.Kind))
	}
	return nil
}

func grantKey(permissionID uint, accountID *uint) string {
	if accountID == nil {
		return fmt.Sprintf("%d:global", permissionID)
	}
	return fmt.Sprintf("%d:%d", permissionID, *accountID)
}
