package router

import (
	"fintrack/internal/apperr"
	"fintrack/internal/handler"
	"fintrack/internal/middleware"
	"fintrack/internal/model"
	"fintrack/pkg/logger"
	"fintrack/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// New builds the echo instance with the full middleware pipeline and
// route table.
func New(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(log)

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Token refresh picks up membership changes
	api.POST("/auth/refresh", handler.RefreshToken)

	// User account
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.DELETE("/profile", handler.DeleteProfile)

	// Tenant management - not tenant-scoped
	api.POST("/tenants", handler.CreateTenant)
	api.GET("/tenants", handler.ListUserTenants)

	// Tenant-scoped routes. Each declares its minimum role; the pair of
	// middleware stages (authorization decision, then context propagation)
	// comes from that declaration.
	t := api.Group("/tenants/:tenant_id")
	t.GET("", handler.GetTenant, middleware.TenantScoped(model.RoleViewer)...)
	t.PATCH("", handler.UpdateTenant, middleware.TenantScoped(model.RoleOwner)...)
	t.DELETE("", handler.DeleteTenant, middleware.TenantScoped(model.RoleOwner)...)

	t.GET("/members", handler.ListMembers, middleware.TenantScoped(model.RoleViewer)...)
	t.POST("/members", handler.AddMember, middleware.TenantScoped(model.RoleOwner)...)
	t.PATCH("/members/:user_id", handler.UpdateMemberRole, middleware.TenantScoped(model.RoleOwner)...)
	t.DELETE("/members/:user_id", handler.RemoveMember, middleware.TenantScoped(model.RoleOwner)...)

	t.GET("/transactions", handler.ListTransactions, middleware.TenantScoped(model.RoleViewer)...)
	t.POST("/transactions", handler.CreateTransaction, middleware.TenantScoped(model.RoleEditor)...)
	t.GET("/transactions/:id", handler.GetTransaction, middleware.TenantScoped(model.RoleViewer)...)
	t.PATCH("/transactions/:id", handler.UpdateTransaction, middleware.TenantScoped(model.RoleEditor)...)
	t.DELETE("/transactions/:id", handler.DeleteTransaction, middleware.TenantScoped(model.RoleEditor)...)

	t.GET("/budgets", handler.ListBudgets, middleware.TenantScoped(model.RoleViewer)...)
	t.POST("/budgets", handler.CreateBudget, middleware.TenantScoped(model.RoleEditor)...)
	t.GET("/budgets/:id", handler.GetBudget, middleware.TenantScoped(model.RoleViewer)...)
	t.PATCH("/budgets/:id", handler.UpdateBudget, middleware.TenantScoped(model.RoleEditor)...)
	t.DELETE("/budgets/:id", handler.DeleteBudget, middleware.TenantScoped(model.RoleEditor)...)

	return e
}
