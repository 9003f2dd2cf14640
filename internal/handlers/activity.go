package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/internal/tenancy"
	"github.com/gatewarden/gatewarden/pkg/response"
)

type ActivityHandler struct {
	svc *services.ActivityService
}

func NewActivityHandler(db *gorm.DB) (*ActivityHandler, error) {
	svc, err := services.NewActivityService(db)
	if err != nil {
		return nil, err
	}
	return &ActivityHandler{svc: svc}, nil
}

// GET /api/activity
//
// With an active tenant the listing is restricted to that tenant's events.
func (h *ActivityHandler) List(c *gin.Context) {
	opts := services.ActivityListOptions{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
		Filters: services.ActivityFilters{
			AccountID:   tenancy.AccountIDFromGin(c),
			Event:       strings.TrimSpace(c.Query("event")),
			SubjectType: strings.TrimSpace(c.Query("subject_type")),
		},
	}

	logs, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, int(total)))
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
