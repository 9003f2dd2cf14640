package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/abac"
	"github.com/gatewarden/gatewarden/internal/app"
	iauth "github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/handlers"
	"github.com/gatewarden/gatewarden/internal/middleware"
	"github.com/gatewarden/gatewarden/internal/services"
	"github.com/gatewarden/gatewarden/internal/tenancy"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// administration and resolution routes.
func NewRouter(db *gorm.DB, engine *abac.Engine, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if engine == nil {
		return nil, fmt.Errorf("permission engine must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	activity, err := services.NewActivityService(db)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))
	api.Use(tenancy.DetectTenant(db, cfg.Tenancy.Enabled))

	// Resolution surface
	permHandler, err := handlers.NewPermissionHandler(db, engine, activity)
	if err != nil {
		return nil, err
	}
	perms := api.Group("/permissions")
	{
		perms.GET("/my", permHandler.MyPermissions)
		perms.GET("/check", permHandler.Check)
		perms.GET("", middleware.RequirePermission(engine, "permissions:read"), permHandler.Catalog)
		perms.POST("", middleware.RequirePermission(engine, "permissions:create"), permHandler.Create)
		perms.PATCH("/:id", middleware.RequirePermission(engine, "permissions:update"), permHandler.Update)
		perms.DELETE("/:id", middleware.RequirePermission(engine, "permissions:delete"), permHandler.Delete)
	}

	// Roles
	roleHandler, err := handlers.NewRoleHandler(db, engine, activity)
	if err != nil {
		return nil, err
	}
	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(engine, "roles:read"), roleHandler.List)
		roles.GET("/:id", middleware.RequirePermission(engine, "roles:read"), roleHandler.Get)
		roles.POST("", middleware.RequirePermission(engine, "roles:create"), roleHandler.Create)
		roles.PATCH("/:id", middleware.RequirePermission(engine, "roles:update"), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(engine, "roles:delete"), roleHandler.Delete)
		roles.POST("/:id/users", middleware.RequirePermission(engine, "roles:update"), roleHandler.AddUser)
		roles.DELETE("/:id/users/:userID", middleware.RequirePermission(engine, "roles:update"), roleHandler.RemoveUser)
	}

	// Accounts
	accountHandler, err := handlers.NewAccountHandler(db, activity)
	if err != nil {
		return nil, err
	}
	accounts := api.Group("/accounts")
	{
		accounts.GET("", middleware.RequirePermission(engine, "accounts:read"), accountHandler.List)
		accounts.GET("/:id", middleware.RequirePermission(engine, "accounts:read"), accountHandler.Get)
		accounts.POST("", middleware.RequirePermission(engine, "accounts:create"), accountHandler.Create)
		accounts.PATCH("/:id", middleware.RequirePermission(engine, "accounts:update"), accountHandler.Update)
		accounts.DELETE("/:id", middleware.RequirePermission(engine, "accounts:delete"), accountHandler.Delete)
		accounts.POST("/:id/users", middleware.RequirePermission(engine, "accounts:update"), accountHandler.AddUser)
		accounts.DELETE("/:id/users/:userID", middleware.RequirePermission(engine, "accounts:update"), accountHandler.RemoveUser)
	}

	// Users
	userHandler, err := handlers.NewUserHandler(db, engine, activity)
	if err != nil {
		return nil, err
	}
	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(engine, "users:read"), userHandler.List)
		users.GET("/:id", middleware.RequirePermission(engine, "users:read"), userHandler.Get)
		users.POST("", middleware.RequirePermission(engine, "users:create"), userHandler.Create)
		users.DELETE("/:id", middleware.RequirePermission(engine, "users:delete"), userHandler.Delete)
	}

	// Grants
	assignmentHandler, err := handlers.NewAssignmentHandler(db, engine, activity)
	if err != nil {
		return nil, err
	}
	assignments := api.Group("/assignments")
	{
		assignments.GET("/:kind/:id", middleware.RequirePermission(engine, "assigned_permissions:read"), assignmentHandler.List)
		assignments.POST("/:kind/:id", middleware.RequirePermission(engine, "assigned_permissions:create"), assignmentHandler.Grant)
		assignments.PUT("/:kind/:id", middleware.RequirePermission(engine, "assigned_permissions:update"), assignmentHandler.Sync)
		assignments.DELETE("/:kind/:id/:permissionID", middleware.RequirePermission(engine, "assigned_permissions:delete"), assignmentHandler.Revoke)
	}

	// Activity log
	activityHandler, err := handlers.NewActivityHandler(db)
	if err != nil {
		return nil, err
	}
	api.GET("/activity", middleware.RequirePermission(engine, "activity_logs:read"), activityHandler.List)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
