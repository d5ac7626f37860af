package handler

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/apperr"
	"fintrack/internal/model"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"
	"fintrack/pkg/logger"
	"fintrack/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTenant handles tenant creation. The creator becomes Owner; the
// claim for the new tenant appears in their next-issued token.
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("create")

	// Get user ID from context (set by AuthMiddleware)
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("unauthorized_tenant_creation")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	// Parse request
	var req struct {
		Name string `json:"name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Begin transaction
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Create tenant
	tenant := model.Tenant{
		PublicID: uuid.New().String(),
		Name:     req.Name,
		Active:   true,
	}

	if result := tx.Create(&tenant); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	// The creator's Owner membership
	membership := model.UserTenant{
		UserID:   userID,
		TenantID: tenant.ID,
		Role:     model.RoleOwner,
		Active:   true,
	}

	if result := tx.Create(&membership); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create owner membership", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	// Commit transaction
	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction commit failed"})
	}

	log.Info("Tenant created",
		zap.String("name", tenant.Name),
		zap.String("tenant", tenant.PublicID),
		zap.Uint("owner_user_id", userID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}

// ListUserTenants retrieves all tenants associated with the authenticated user
func ListUserTenants(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("list")

	// Get user ID from context (set by AuthMiddleware)
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	// Get user's tenants through their memberships
	var memberships []model.UserTenant
	if result := database.GetDB().Preload("Tenant").
		Where("user_id = ? AND active = ?", userID, true).
		Find(&memberships); result.Error != nil {
		log.Error("Failed to retrieve user's tenants", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenants"})
	}

	// Format response
	type TenantResponse struct {
		ID        string     `json:"id"`
		Name      string     `json:"name"`
		Role      model.Role `json:"role"`
		CreatedAt time.Time  `json:"created_at"`
	}

	response := make([]TenantResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, TenantResponse{
			ID:        m.Tenant.PublicID,
			Name:      m.Tenant.Name,
			Role:      m.Role,
			CreatedAt: m.Tenant.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// GetTenant retrieves the resolved tenant's details
func GetTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("access")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, tc.TenantID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperr.TenantNotFound(tc.TenantPublicID)
		}
		log.Error("Failed to retrieve tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenant"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant": tenant,
		"role":   tc.Role,
	})
}

// UpdateTenant renames or (de)activates the resolved tenant
func UpdateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	var req struct {
		Name   *string `json:"name,omitempty"`
		Active *bool   `json:"active,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		updates["name"] = *req.Name
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Model(&model.Tenant{}).
		Where("id = ?", tc.TenantID).
		Updates(updates).Error; err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant update failed"})
	}

	log.Info("Tenant updated", zap.String("tenant", tc.TenantPublicID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Tenant updated successfully"})
}

// DeleteTenant removes the resolved tenant and cascades to its memberships
// and all tenant-scoped data.
func DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("delete")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	for _, m := range []interface{}{
		&model.Transaction{},
		&model.Budget{},
		&model.UserTenant{},
	} {
		if err := tx.Where("tenant_id = ?", tc.TenantID).Delete(m).Error; err != nil {
			tx.Rollback()
			log.Error("Failed to cascade tenant delete", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant deletion failed"})
		}
	}

	if err := tx.Delete(&model.Tenant{}, tc.TenantID).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to delete tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant deletion failed"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction commit failed"})
	}

	log.Info("Tenant deleted", zap.String("tenant", tc.TenantPublicID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Tenant deleted successfully"})
}
