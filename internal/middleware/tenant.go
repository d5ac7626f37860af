package middleware

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/apperr"
	"fintrack/internal/model"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"
	"fintrack/pkg/jwtutil"
	"fintrack/pkg/logger"
	"fintrack/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequireTenantRole is the authorization decision for tenant-scoped routes.
// Each route declares its minimum role by attaching this middleware. The
// decision runs entirely on the caller's claims: the tenant named in the
// path must appear in the token's tenant_roles with at least the minimum
// role. Claims are trusted as of issuance; membership changes take effect
// at the next token refresh.
//
// Rejections are indistinguishable from "tenant does not exist": no lookup
// happens before the claim check, and the rejection renders the same body
// either way.
func RequireTenantRole(min model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			publicID := c.Param("tenant_id")
			if publicID == "" {
				return apperr.TenantAccessDenied(publicID)
			}

			claims, ok := c.Get("user").(*jwtutil.UserClaims)
			if !ok {
				log.Warn("Tenant authorization attempted without authenticated claims")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			roleStr, ok := claims.RoleFor(publicID)
			if !ok {
				return apperr.TenantAccessDenied(publicID)
			}

			role, err := model.ParseRole(roleStr)
			if err != nil {
				log.Warn("Unparseable role in tenant claim", zap.String("role", roleStr))
				return apperr.TenantAccessDenied(publicID)
			}

			if !role.AtLeast(min) {
				return apperr.TenantAccessDenied(publicID)
			}

			prometheus.RecordAuthzDecision("accept")
			tenantctx.SetGrant(c, tenantctx.Grant{TenantPublicID: publicID, Role: role})
			return next(c)
		}
	}
}

// TenantContext is the context propagation stage. It runs after
// RequireTenantRole on every tenant-scoped route, resolves the granted
// tenant to its internal id and publishes the immutable tenant context for
// handlers and stores.
//
// A missing grant means the authorization decision was bypassed; the
// request fails closed with an internal error and never reaches the
// handler.
func TenantContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			grant, ok := tenantctx.GrantFrom(c)
			if !ok {
				return apperr.TenantContextNotSet(c.Path())
			}

			defer prometheus.TrackDBOperation("query")(time.Now())

			var tenant model.Tenant
			result := database.GetDB().WithContext(c.Request().Context()).
				Where("public_id = ? AND active = ?", grant.TenantPublicID, true).
				First(&tenant)
			if result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					// Claim outlived the tenant; renders exactly like a
					// plain access denial.
					return apperr.TenantNotFound(grant.TenantPublicID)
				}
				return result.Error
			}

			tenantctx.Set(c, tenantctx.Context{
				TenantID:       tenant.ID,
				TenantPublicID: tenant.PublicID,
				Role:           grant.Role,
			})

			logger.SetContext(c, log.With(
				zap.String("tenant", tenant.PublicID),
				zap.String("tenant_role", grant.Role.String()),
			))

			return next(c)
		}
	}
}

// TenantScoped bundles the two pipeline stages for route registration so a
// route declares its minimum role in one place and cannot attach the
// context stage without the decision stage.
func TenantScoped(min model.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{RequireTenantRole(min), TenantContext()}
}
