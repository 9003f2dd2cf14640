package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/internal/tenancy"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type RoleHandler struct {
	svc *services.RoleService
}

func NewRoleHandler(db *gorm.DB, engine *abac.Engine, activity *services.ActivityService) (*RoleHandler, error) {
	svc, err := services.NewRoleService(db, engine, activity)
	if err != nil {
		return nil, err
	}
	return &RoleHandler{svc: svc}, nil
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.List(requestContext(c), tenancy.AccountIDFromGin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	role, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
//
// Roles created while a tenant is active are scoped to that tenant; without
// an active tenant the role is global.
func (h *RoleHandler) Create(c *gin.Context) {
	var body struct {
		Name        string `json:"name" validate:"required,min=2,max=128"`
		ZeusLevel   string `json:"zeus_level" validate:"omitempty,oneof=none tenant system"`
		Description string `json:"description" validate:"max=512"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.Create(requestContext(c), services.CreateRoleInput{
		AccountID:   tenancy.AccountIDFromGin(c),
		Name:        body.Name,
		ZeusLevel:   models.ZeusLevel(body.ZeusLevel),
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Name        *string `json:"name" validate:"omitempty,min=2,max=128"`
		ZeusLevel   *string `json:"zeus_level" validate:"omitempty,oneof=none tenant system"`
		Description *string `json:"description" validate:"omitempty,max=512"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateRoleInput{
		Name:        body.Name,
		Description: body.Description,
	}
	if body.ZeusLevel != nil {
		zeus := models.ZeusLevel(*body.ZeusLevel)
		input.ZeusLevel = &zeus
	}

	role, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
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

// POST /api/roles/:id/users
func (h *RoleHandler) AddUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.AssignUser(requestContext(c), id, body.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// DELETE /api/roles/:id/users/:userID
func (h *RoleHandler) RemoveUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	if err := h.svc.RemoveUser(requestContext(c), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
