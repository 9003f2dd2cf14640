package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/middleware"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/internal/tenancy"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type PermissionHandler struct {
	svc    *services.PermissionService
	engine *abac.Engine
}

func NewPermissionHandler(db *gorm.DB, engine *abac.Engine, activity *services.ActivityService) (*PermissionHandler, error) {
	svc, err := services.NewPermissionService(db, activity)
	if err != nil {
		return nil, err
	}
	return &PermissionHandler{svc: svc, engine: engine}, nil
}

// GET /api/permissions
func (h *PermissionHandler) Catalog(c *gin.Context) {
	entries, err := h.svc.ListCatalog(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	userID := middleware.UserIDFromGin(c)
	if userID == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	accountID := tenancy.AccountIDFromGin(c)
	perms, err := h.engine.Resolve(requestContext(c), userID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": perms})
}

// GET /api/permissions/check?permission=posts:create
func (h *PermissionHandler) Check(c *gin.Context) {
	userID := middleware.UserIDFromGin(c)
	if userID == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	permission := strings.TrimSpace(c.Query("permission"))
	if permission == "" {
		response.Error(c, errors.NewBadRequest("permission query parameter is required"))
		return
	}

	accountID := tenancy.AccountIDFromGin(c)
	allowed, err := h.engine.Check(requestContext(c), userID, accountID, permission)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permission": permission, "allowed": allowed})
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var body struct {
		Name        string `json:"name" validate:"required,min=2,max=128"`
		Kind        string `json:"kind" validate:"omitempty,oneof=flag crud"`
		Description string `json:"description" validate:"max=512"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	permission, err := h.svc.Create(requestContext(c), services.CreatePermissionInput{
		Name:        body.Name,
		Kind:        models.PermissionKind(body.Kind),
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, permission)
}

// PATCH /api/permissions/:id
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Description *string `json:"description" validate:"omitempty,max=512"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	permission, err := h.svc.Update(requestContext(c), id, services.UpdatePermissionInput{
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, permission)
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
