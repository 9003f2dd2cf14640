package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(db *gorm.DB, engine *abac.Engine, activity *services.ActivityService) (*UserHandler, error) {
	svc, err := services.NewUserService(db, engine, activity)
	if err != nil {
		return nil, err
	}
	return &UserHandler{svc: svc}, nil
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	user, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"max=128"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.Create(requestContext(c), services.CreateUserInput{
		Email: body.Email,
		Name:  body.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
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
