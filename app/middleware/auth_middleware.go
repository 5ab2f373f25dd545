// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/gofiber/fiber/v3"
)

// Locals keys set by Authenticate
const (
	LocalTenantID = "tenant_id"
	LocalActor    = "actor"
	LocalClaims   = "token_claims"
	LocalRequest  = "request_id"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate validates the bearer token and stores the tenant and actor for downstream handlers.
// The tenant always comes from the token, never from the request body.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenTenantMissing):
				return unauthorized(c, "Access token has no tenant", "TOKEN_TENANT_MISSING")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalActor, claims.Subject)
		c.Locals(LocalClaims, claims)
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals(LocalRequest, requestID)
		}

		return c.Next()
	}
}

// RequireAdmin rejects tokens without the admin role. It must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := c.Locals(LocalClaims).(*services.TokenClaims)
		if !ok || claims == nil {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}
		if !claims.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Admin role required",
				Error:   dto.ErrorDetail{Code: "ADMIN_ROLE_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// TenantID returns the tenant stored by Authenticate
func TenantID(c fiber.Ctx) string {
	v, _ := c.Locals(LocalTenantID).(string)
	return v
}

// Actor returns the token subject stored by Authenticate
func Actor(c fiber.Ctx) string {
	v, _ := c.Locals(LocalActor).(string)
	return v
}
