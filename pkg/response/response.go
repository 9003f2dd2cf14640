package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gatewarden/gatewarden/pkg/errors"
)

// Response is the envelope every JSON endpoint answers with: exactly one of
// Data or Error is set, Meta only on paginated listings.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo is the client-visible part of an AppError.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination counters for list endpoints.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// NewMeta fills pagination counters, deriving TotalPages from the total and
// page size.
func NewMeta(page, perPage, total int) *Meta {
	pages := 0
	if perPage > 0 {
		pages = total / perPage
		if total%perPage != 0 {
			pages++
		}
	}
	return &Meta{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// Success answers with data under the success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	SuccessWithMeta(c, statusCode, data, nil)
}

// SuccessWithMeta answers with data and pagination counters.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{Success: true, Data: data, Meta: meta})
}

// Error answers with the error envelope. Plain errors are masked behind the
// generic internal-server error so their text never reaches a client; pass an
// AppError to control code, message and status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		appErr = appErrors.ErrInternalServer
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}
