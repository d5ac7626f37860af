// Package tenantctx holds the request-scoped tenant state shared between
// the authorization middleware and feature code. Values live only in the
// per-request echo.Context; nothing here may be cached across requests.
package tenantctx

import (
	"fintrack/internal/model"

	"github.com/labstack/echo/v4"
)

const (
	grantKey   = "tenant_grant"
	contextKey = "tenant_context"
)

// Grant is the side channel written by a successful authorization decision
// and consumed by the context propagation middleware. It is not visible to
// handlers.
type Grant struct {
	TenantPublicID string
	Role           model.Role
}

// Context is the resolved tenant for the remainder of one request. It is
// stored and read by value, so callers cannot mutate it after it is set.
type Context struct {
	TenantID       uint
	TenantPublicID string
	Role           model.Role
}

// SetGrant records the authorization outcome for the propagation middleware.
func SetGrant(c echo.Context, g Grant) {
	c.Set(grantKey, g)
}

// GrantFrom reads the authorization outcome, reporting whether one was set.
func GrantFrom(c echo.Context) (Grant, bool) {
	g, ok := c.Get(grantKey).(Grant)
	return g, ok
}

// Set stores the resolved tenant context. Only the context propagation
// middleware calls this; once set it stays fixed for the request.
func Set(c echo.Context, tc Context) {
	c.Set(contextKey, tc)
}

// FromContext returns the resolved tenant context, reporting whether the
// propagation middleware ran for this request.
func FromContext(c echo.Context) (Context, bool) {
	tc, ok := c.Get(contextKey).(Context)
	return tc, ok
}
