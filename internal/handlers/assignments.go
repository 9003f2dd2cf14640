package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/internal/tenancy"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type AssignmentHandler struct {
	svc *services.AssignmentService
}

func NewAssignmentHandler(db *gorm.DB, engine *abac.Engine, activity *services.ActivityService) (*AssignmentHandler, error) {
	svc, err := services.NewAssignmentService(db, engine, activity)
	if err != nil {
		return nil, err
	}
	return &AssignmentHandler{svc: svc}, nil
}

// grantPayload is a single grant in request bodies. A null access list means
// the grant is unrestricted; an empty list is an explicit empty restriction.
type grantPayload struct {
	PermissionID uint      `json:"permission_id" validate:"required"`
	Access       *[]string `json:"access"`
}

func (p grantPayload) toRequest(accountID *uint) services.GrantRequest {
	req := services.GrantRequest{
		PermissionID: p.PermissionID,
		AccountID:    accountID,
	}
	if p.Access != nil {
		req.Access = *p.Access
		if req.Access == nil {
			req.Access = []string{}
		}
	}
	return req
}

// GET /api/assignments/:kind/:id
func (h *AssignmentHandler) List(c *gin.Context) {
	assignee, ok := assigneeFromPath(c)
	if !ok {
		return
	}

	grants, err := h.svc.ListForAssignee(requestContext(c), assignee)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}

// POST /api/assignments/:kind/:id
//
// Grants are scoped to the request's active tenant; without one the grant is
// global.
func (h *AssignmentHandler) Grant(c *gin.Context) {
	assignee, ok := assigneeFromPath(c)
	if !ok {
		return
	}

	var body grantPayload
	if !bindAndValidate(c, &body) {
		return
	}

	grant, err := h.svc.Grant(requestContext(c), assignee, body.toRequest(tenancy.AccountIDFromGin(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

// PUT /api/assignments/:kind/:id
func (h *AssignmentHandler) Sync(c *gin.Context) {
	assignee, ok := assigneeFromPath(c)
	if !ok {
		return
	}

	var body struct {
		Grants []grantPayload `json:"grants" validate:"required,dive"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	accountID := tenancy.AccountIDFromGin(c)
	requests := make([]services.GrantRequest, 0, len(body.Grants))
	for _, grant := range body.Grants {
		requests = append(requests, grant.toRequest(accountID))
	}

	if err := h.svc.Sync(requestContext(c), assignee, requests); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"synced": true})
}

// DELETE /api/assignments/:kind/:id/:permissionID
func (h *AssignmentHandler) Revoke(c *gin.Context) {
	assignee, ok := assigneeFromPath(c)
	if !ok {
		return
	}
	permissionID, ok := uintParam(c, "permissionID")
	if !ok {
		return
	}

	err := h.svc.Revoke(requestContext(c), assignee, permissionID, tenancy.AccountIDFromGin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func assigneeFromPath(c *gin.Context) (abac.Assignee, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return abac.Assignee{}, false
	}

	assignee := abac.Assignee{Kind: abac.AssigneeKind(c.Param("kind")), ID: id}
	if err := assignee.Validate(); err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return abac.Assignee{}, false
	}
	return assignee, true
}
