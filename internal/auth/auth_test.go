package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func signed(t *testing.T, claims *JWTClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestGenerateAccessToken(t *testing.T) {
	token, err := GenerateAccessToken(1, "ana@example.com", RoleMember, testSecret)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = GenerateAccessToken(1, "ana@example.com", RoleMember, "")
	assert.Equal(t, ErrEmptyJWTSecret, err)
}

func TestValidateToken(t *testing.T) {
	userID := 100
	email := "ana@example.com"

	t.Run("valid token", func(t *testing.T) {
		token, _ := GenerateAccessToken(userID, email, RoleAdmin, testSecret)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, email, claims.Email)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, jwtIssuer, claims.Issuer)
		assert.Contains(t, claims.Audience, jwtAudience)
	})

	t.Run("empty secret", func(t *testing.T) {
		token, _ := GenerateAccessToken(userID, email, RoleMember, testSecret)
		claims, err := ValidateToken(token, "")
		assert.Equal(t, ErrEmptyJWTSecret, err)
		assert.Nil(t, claims)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateAccessToken(userID, email, RoleMember, testSecret)
		claims, err := ValidateToken(token, "wrong-secret")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("garbage", func(t *testing.T) {
		claims, err := ValidateToken("invalid.token.format", testSecret)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		token := signed(t, &JWTClaims{
			UserID:    userID,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(past),
				IssuedAt:  jwt.NewNumericDate(past.Add(-15 * time.Minute)),
			},
		}, testSecret)

		claims, err := ValidateToken(token, testSecret)
		assert.Equal(t, ErrTokenExpired, err)
		assert.Nil(t, claims)
	})

	t.Run("foreign audience", func(t *testing.T) {
		token := signed(t, &JWTClaims{
			UserID:    userID,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{"someone-else"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		_, err := ValidateToken(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		token := signed(t, &JWTClaims{
			UserID:    userID,
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		_, err := ValidateToken(token, testSecret)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})
}
