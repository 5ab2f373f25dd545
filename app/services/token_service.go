// Package services provides technical concerns shared by flows and handlers: tokens, caches, queues, locks, metrics and exports
package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/quote-core/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Token service error constants
var (
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenTenantMissing = errors.New("token has no tenant")
	ErrSigningUnavailable = errors.New("token signing is not available with a public key only")
)

// Roles carried by access tokens of the external auth system
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// TokenService verifies bearer tokens issued by the external auth system
type TokenService interface {
	ValidateToken(token string) (*TokenClaims, error)
	// IssueToken signs a token with the shared secret. Used by tooling and tests.
	IssueToken(subject, tenantID, role string, ttl time.Duration) (string, error)
}

// TokenClaims represents the claims the service relies on
type TokenClaims struct {
	Subject   string    `json:"sub"`
	TenantID  string    `json:"tenant_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// IsAdmin reports whether the token carries the admin role
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	publicKey  *rsa.PublicKey
	secretKey  []byte
	useRSAKeys bool
	issuer     string
	audience   string
}

// NewTokenService creates a token service verifying RS256 with publicKeyPEM or HS256 with secretKey
func NewTokenService(issuer, audience string, useRSAKeys bool, publicKeyPEM, secretKey string) (TokenService, error) {
	s := &TokenServiceImpl{
		useRSAKeys: useRSAKeys,
		issuer:     issuer,
		audience:   audience,
	}

	if useRSAKeys {
		publicKey, err := parseRSAPublicKey(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		s.publicKey = publicKey
		return s, nil
	}

	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required when not using RSA keys")
	}
	s.secretKey = []byte(secretKey)
	return s, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	if publicKeyPEM == "" {
		return nil, fmt.Errorf("public key is required")
	}

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return rsaPublicKey, nil
}

// ValidateToken verifies signature, expiry, issuer and audience and extracts the claims
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if s.useRSAKeys {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return nil, ErrTokenInvalid
	}

	tenantID, _ := claims["tenant_id"].(string)
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrTokenTenantMissing
	}

	role, _ := claims["role"].(string)
	tokenID, _ := claims["jti"].(string)

	result := &TokenClaims{
		Subject:  subject,
		TenantID: tenantID,
		Role:     role,
		TokenID:  tokenID,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.UTC()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.UTC()
	}
	return result, nil
}

// IssueToken signs an HS256 token for subject in tenantID
func (s *TokenServiceImpl) IssueToken(subject, tenantID, role string, ttl time.Duration) (string, error) {
	if s.useRSAKeys {
		return "", ErrSigningUnavailable
	}

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"sub":       subject,
		"tenant_id": tenantID,
		"role":      role,
		"jti":       tokenID,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
