// Package apperr defines the tenancy failure taxonomy and its single
// mapping to HTTP responses. Feature code returns these errors instead of
// writing its own tenancy error bodies.
package apperr

import "fmt"

// Kind identifies a tenancy failure condition.
type Kind string

const (
	// KindTenantNotFound: the named tenant does not exist at all.
	KindTenantNotFound Kind = "tenant_not_found"
	// KindTenantAccessDenied: the tenant exists but the caller holds no
	// role in it, or holds one below the required minimum.
	KindTenantAccessDenied Kind = "tenant_access_denied"
	// KindMembershipNotFound: an operation referenced a (user, tenant)
	// pair that has no assignment.
	KindMembershipNotFound Kind = "membership_not_found"
	// KindDuplicateMembership: a second assignment was attempted for a
	// (user, tenant) pair that already has one.
	KindDuplicateMembership Kind = "duplicate_membership"
	// KindTenantContextNotSet: a tenant-scoped route ran without a prior
	// authorization decision. Always a defect, never a user error.
	KindTenantContextNotSet Kind = "tenant_context_not_set"
)

// Error is a tenancy failure carrying its kind and an internal message.
// The message is for logs; the HTTP body is chosen by the error handler.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TenantNotFound reports a tenant that does not exist. Renders identically
// to TenantAccessDenied so callers cannot probe for valid tenant ids.
func TenantNotFound(publicID string) *Error {
	return &Error{Kind: KindTenantNotFound, Message: fmt.Sprintf("tenant %s not found", publicID)}
}

// TenantAccessDenied reports a caller without a sufficient role in the tenant.
func TenantAccessDenied(publicID string) *Error {
	return &Error{Kind: KindTenantAccessDenied, Message: fmt.Sprintf("access to tenant %s denied", publicID)}
}

// MembershipNotFound reports a missing (user, tenant) role assignment.
func MembershipNotFound(userID uint) *Error {
	return &Error{Kind: KindMembershipNotFound, Message: fmt.Sprintf("no membership for user %d", userID)}
}

// DuplicateMembership reports an attempt to assign a role to a user who
// already has one in the tenant.
func DuplicateMembership(userID uint) *Error {
	return &Error{Kind: KindDuplicateMembership, Message: fmt.Sprintf("user %d already has a membership", userID)}
}

// TenantContextNotSet reports the fail-closed path: a tenant-scoped route
// reached the propagation stage without an authorization grant.
func TenantContextNotSet(path string) *Error {
	return &Error{Kind: KindTenantContextNotSet, Message: fmt.Sprintf("no authorization grant for tenant-scoped route %s", path)}
}
