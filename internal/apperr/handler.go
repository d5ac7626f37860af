package apperr

import (
	"errors"
	"net/http"

	"fintrack/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// forbiddenBody is the one response rendered for both KindTenantNotFound
// and KindTenantAccessDenied. Using a single literal keeps the two cases
// byte-identical, so status, shape and text leak nothing about whether the
// tenant exists.
var forbiddenBody = echo.Map{"error": "forbidden", "message": "access denied"}

// HTTPErrorHandler returns the echo error handler that maps the tenancy
// taxonomy to transport statuses. All tenancy failures funnel through here.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			switch appErr.Kind {
			case KindTenantNotFound, KindTenantAccessDenied:
				prometheus.RecordAuthzDecision("reject")
				log.Warn("tenant access rejected",
					zap.String("kind", string(appErr.Kind)),
					zap.String("path", c.Path()),
					zap.String("detail", appErr.Message))
				_ = c.JSON(http.StatusForbidden, forbiddenBody)
			case KindMembershipNotFound:
				_ = c.JSON(http.StatusNotFound, echo.Map{
					"error":   string(appErr.Kind),
					"message": "membership not found",
				})
			case KindDuplicateMembership:
				_ = c.JSON(http.StatusConflict, echo.Map{
					"error":   string(appErr.Kind),
					"message": "membership already exists",
				})
			case KindTenantContextNotSet:
				// Fail-closed guarantee was bypassed somewhere; this is a
				// defect in route wiring, so log loudly and say nothing
				// useful to the caller.
				prometheus.TenantContextMissingCounter.Inc()
				log.Error("tenant context not set on tenant-scoped route",
					zap.String("path", c.Path()),
					zap.String("detail", appErr.Message))
				_ = c.JSON(http.StatusInternalServerError, echo.Map{
					"error":   "internal",
					"message": "internal server error",
				})
			default:
				log.Error("unmapped application error", zap.Error(appErr))
				_ = c.JSON(http.StatusInternalServerError, echo.Map{
					"error":   "internal",
					"message": "internal server error",
				})
			}
			return
		}

		// Fall through to echo's own errors (404 route, 405, binding).
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg := httpErr.Message
			if _, ok := msg.(string); !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, echo.Map{"error": msg})
			return
		}

		log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		_ = c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "internal",
			"message": "internal server error",
		})
	}
}
