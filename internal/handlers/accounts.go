package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type AccountHandler struct {
	svc *services.AccountService
}

func NewAccountHandler(db *gorm.DB, activity *services.ActivityService) (*AccountHandler, error) {
	svc, err := services.NewAccountService(db, activity)
	if err != nil {
		return nil, err
	}
	return &AccountHandler{svc: svc}, nil
}

// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts)
}

// GET /api/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	account, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// POST /api/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var body struct {
		Name     string         `json:"name" validate:"required,min=2,max=128"`
		Slug     string         `json:"slug" validate:"required,min=2,max=64"`
		Plan     string         `json:"plan" validate:"max=64"`
		Metadata map[string]any `json:"metadata"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	account, err := h.svc.Create(requestContext(c), services.CreateAccountInput{
		Name:     body.Name,
		Slug:     body.Slug,
		Plan:     body.Plan,
		Metadata: body.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, account)
}

// PATCH /api/accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Name     *string        `json:"name" validate:"omitempty,min=2,max=128"`
		Plan     *string        `json:"plan" validate:"omitempty,max=64"`
		Metadata map[string]any `json:"metadata"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	account, err := h.svc.Update(requestContext(c), id, services.UpdateAccountInput{
		Name:     body.Name,
		Plan:     body.Plan,
		Metadata: body.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// DELETE /api/accounts/:id
func (h *AccountHandler) Delete(c *gin.Context) {
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

// POST /api/accounts/:id/users
func (h *AccountHandler) AddUser(c *gin.Context) {
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

	if err := h.svc.AddUser(requestContext(c), id, body.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"added": true})
}

// DELETE /api/accounts/:id/users/:userID
func (h *AccountHandler) RemoveUser(c *gin.Context) {
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
