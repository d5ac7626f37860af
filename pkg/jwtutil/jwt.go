package jwtutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Config holds JWT configuration
type Config struct {
	SigningKey      string
	ExpirationHours int
}

var config *Config

// Initialize sets the package configuration. Must be called before any
// token is generated or validated.
func Initialize(cfg *Config) {
	config = cfg
}

// UserClaims represents the JWT claims for user authentication.
// TenantRoles carries one "{tenantPublicID}:{role}" entry per tenant the
// user belongs to; it is minted from the membership store at issuance time
// and trusted until the token expires.
type UserClaims struct {
	Email       string   `json:"email"`
	UserID      uint     `json:"user_id"`
	TenantRoles []string `json:"tenant_roles,omitempty"`
	jwt.RegisteredClaims
}

// TenantClaim encodes a single tenant role assignment in its claim form.
func TenantClaim(tenantPublicID, role string) string {
	return fmt.Sprintf("%s:%s", tenantPublicID, role)
}

// RoleFor returns the role string the claims hold for the given tenant
// public id, and whether any claim matched.
func (c *UserClaims) RoleFor(tenantPublicID string) (string, bool) {
	for _, tr := range c.TenantRoles {
		id, role, ok := strings.Cut(tr, ":")
		if ok && id == tenantPublicID {
			return role, true
		}
	}
	return "", false
}

// GenerateToken creates a JWT token carrying the user's tenant role claims.
// An empty tenantRoles slice is valid: the user simply has no tenant-scoped
// access until invited.
func GenerateToken(email string, userID uint, tenantRoles []string) (string, error) {
	if config == nil {
		return "", errors.New("jwt configuration not initialized")
	}

	claims := UserClaims{
		Email:       email,
		UserID:      userID,
		TenantRoles: tenantRoles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if config == nil {
		return nil, errors.New("jwt configuration not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.SigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
