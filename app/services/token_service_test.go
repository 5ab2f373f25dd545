package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	s, err := NewTokenService("test-issuer", "test-audience", false, "", testSecret)
	require.NoError(t, err)
	return s
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "RSA without public key", useRSAKeys: true, expectError: true},
		{name: "RSA with garbage key", useRSAKeys: true, publicKey: "not a pem", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTokenService("issuer", "audience", tt.useRSAKeys, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	s := createTestTokenService(t)

	token, err := s.IssueToken("estimator@tenant-a", "tenant-a", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "estimator@tenant-a", claims.Subject)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.True(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateTokenRejects(t *testing.T) {
	s := createTestTokenService(t)

	sign := func(claims jwt.MapClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":       "user",
			"tenant_id": "tenant-a",
			"role":      RoleOperator,
			"iss":       "test-issuer",
			"aud":       "test-audience",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("expired", func(t *testing.T) {
		claims := valid()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := s.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := s.ValidateToken(sign(valid(), "another-secret-another-secret-00"))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := valid()
		claims["aud"] = "someone-else"
		_, err := s.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing tenant", func(t *testing.T) {
		claims := valid()
		delete(claims, "tenant_id")
		_, err := s.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenTenantMissing)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := valid()
		delete(claims, "exp")
		_, err := s.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestIssueTokenUnavailableWithRSA(t *testing.T) {
	s := &TokenServiceImpl{useRSAKeys: true}
	_, err := s.IssueToken("user", "tenant-a", RoleOperator, time.Hour)
	assert.ErrorIs(t, err, ErrSigningUnavailable)
}
