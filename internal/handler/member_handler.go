package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/apperr"
	"fintrack/internal/model"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"
	"fintrack/pkg/logger"
	"fintrack/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListMembers returns the tenant's role assignments
func ListMembers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("list_members")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var memberships []model.UserTenant
	if result := database.GetDB().Preload("User").
		Where("tenant_id = ? AND active = ?", tc.TenantID, true).
		Find(&memberships); result.Error != nil {
		log.Error("Failed to retrieve members", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve members"})
	}

	type MemberResponse struct {
		UserID    uint       `json:"user_id"`
		Email     string     `json:"email"`
		Role      model.Role `json:"role"`
		CreatedAt time.Time  `json:"created_at"`
	}

	response := make([]MemberResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, MemberResponse{
			UserID:    m.UserID,
			Email:     m.User.Email,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// AddMember invites a user into the tenant with a role. A user who already
// holds a role here is a conflict; the existing assignment stays untouched
// and role changes must go through UpdateMemberRole.
func AddMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("add_member")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	var req struct {
		UserEmail string `json:"user_email"`
		Role      string `json:"role,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse add member request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.UserEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_email is required"})
	}

	// Default to the lowest role if not provided
	role := model.RoleViewer
	if req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		role = parsed
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	// Find the user by email
	var user model.User
	if result := database.GetDB().Where("email = ?", req.UserEmail).First(&user); result.Error != nil {
		log.Warn("User not found", zap.String("email", req.UserEmail))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	// At most one assignment per (user, tenant) pair
	var existing model.UserTenant
	result := database.GetDB().Where("user_id = ? AND tenant_id = ?", user.ID, tc.TenantID).First(&existing)
	if result.Error == nil {
		return apperr.DuplicateMembership(user.ID)
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		log.Error("Failed to check existing membership", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add member"})
	}

	membership := model.UserTenant{
		UserID:   user.ID,
		TenantID: tc.TenantID,
		Role:     role,
		Active:   true,
	}

	if err := database.GetDB().Create(&membership).Error; err != nil {
		log.Error("Failed to add member", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add member"})
	}

	log.Info("Member added",
		zap.String("tenant", tc.TenantPublicID),
		zap.String("email", req.UserEmail),
		zap.String("role", role.String()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Member added successfully",
		"member": map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    membership.Role,
		},
	})
}

// UpdateMemberRole changes an existing member's role. The last Owner
// cannot be demoted.
func UpdateMemberRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update_member")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	targetUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req struct {
		Role string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var membership model.UserTenant
	result := database.GetDB().
		Where("user_id = ? AND tenant_id = ?", targetUserID, tc.TenantID).
		First(&membership)
	if result.Error != nil {
		return apperr.MembershipNotFound(uint(targetUserID))
	}

	if membership.Role == model.RoleOwner && role != model.RoleOwner {
		lastOwner, err := isLastOwner(tc.TenantID)
		if err != nil {
			log.Error("Failed to count owners", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update member"})
		}
		if lastOwner {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot demote the last owner"})
		}
	}

	membership.Role = role
	if err := database.GetDB().Save(&membership).Error; err != nil {
		log.Error("Failed to update member role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update member"})
	}

	log.Info("Member role updated",
		zap.String("tenant", tc.TenantPublicID),
		zap.Uint64("user_id", targetUserID),
		zap.String("role", role.String()))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Member role updated successfully",
		"member": map[string]interface{}{
			"user_id": membership.UserID,
			"role":    membership.Role,
		},
	})
}

// RemoveMember revokes a user's access to the tenant. The last Owner
// cannot be removed.
func RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("remove_member")

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	targetUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	var membership model.UserTenant
	result := database.GetDB().
		Where("user_id = ? AND tenant_id = ?", targetUserID, tc.TenantID).
		First(&membership)
	if result.Error != nil {
		return apperr.MembershipNotFound(uint(targetUserID))
	}

	if membership.Role == model.RoleOwner {
		lastOwner, err := isLastOwner(tc.TenantID)
		if err != nil {
			log.Error("Failed to count owners", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove member"})
		}
		if lastOwner {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot remove the last owner"})
		}
	}

	if err := database.GetDB().Delete(&membership).Error; err != nil {
		log.Error("Failed to remove member", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove member"})
	}

	log.Info("Member removed",
		zap.String("tenant", tc.TenantPublicID),
		zap.Uint64("user_id", targetUserID))

	return c.JSON(http.StatusOK, echo.Map{"message": "Member removed successfully"})
}

func isLastOwner(tenantID uint) (bool, error) {
	var owners int64
	err := database.GetDB().Model(&model.UserTenant{}).
		Where("tenant_id = ? AND role = ? AND active = ?", tenantID, model.RoleOwner, true).
		Count(&owners).Error
	return owners <= 1, err
}
