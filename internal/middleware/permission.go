package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/tenancy"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/metrics"
	"github.com/gatewarden/gatewarden/pkg/response"
)

// RequirePermission checks that the authenticated user holds the named
// permission in the request's tenant scope. Check failures deny access.
func RequirePermission(engine *abac.Engine, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserIDFromGin(c)
		if userID == 0 {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		accountID := tenancy.AccountIDFromGin(c)
		allowed, err := engine.Check(c.Request.Context(), userID, accountID, permission)
		if err != nil {
			// A check that cannot complete denies access instead of leaking
			// the failure to the caller.
			metrics.PermissionChecks.WithLabelValues(permission, "error").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permission, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permission, "allowed").Inc()
		c.Next()
	}
}
