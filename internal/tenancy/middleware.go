package tenancy

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// CtxTenantKey is the gin context key under which the request's tenant
// context is stored.
const CtxTenantKey = "tenantContext"

// SlugHeader identifies the tenant on inbound requests.
const SlugHeader = "X-Account-Slug"

// DetectTenant resolves the account slug header and binds a fresh tenant
// context to the request. An unknown slug leaves the request in global
// scope; permission checks then simply see no tenant-scoped grants.
func DetectTenant(db *gorm.DB, enabled bool) gin.HandlerFunc {
	log := logger.WithModule("tenancy")

	return func(c *gin.Context) {
		tc := NewContext()
		c.Set(CtxTenantKey, tc)

		if !enabled {
			c.Next()
			return
		}

		slug := strings.TrimSpace(c.GetHeader(SlugHeader))
		if slug == "" {
			c.Next()
			return
		}

		var account models.Account
		err := db.WithContext(c.Request.Context()).
			First(&account, "slug = ?", slug).Error
		switch {
		case err == nil:
			tc.SetAccount(&account)
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Debug("unknown account slug", zap.String("slug", slug))
		default:
			log.Warn("account lookup failed", zap.String("slug", slug), zap.Error(err))
		}

		c.Next()
	}
}

// FromGin returns the request's tenant context, or an empty one when the
// detection middleware did not run (tests, internal calls).
func FromGin(c *gin.Context) *Context {
	if c == nil {
		return NewContext()
	}
	if v, ok := c.Get(CtxTenantKey); ok {
		if tc, ok := v.(*Context); ok && tc != nil {
			return tc
		}
	}
	return NewContext()
}

// AccountIDFromGin is a shorthand for the active account id on a request.
func AccountIDFromGin(c *gin.Context) *uint {
	return FromGin(c).AccountID()
}
