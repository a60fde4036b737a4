package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyToken_RoundTrip(t *testing.T) {
	token, err := NewLegacyToken("user-1", "a@b.c", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateLegacyToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestLegacyToken_Rejections(t *testing.T) {
	valid, err := NewLegacyToken("user-1", "", "secret", time.Hour)
	require.NoError(t, err)

	expired, err := NewLegacyToken("user-1", "", "secret", -time.Hour)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, LegacyClaims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, LegacyClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"foreign issuer", foreign, "secret"},
		{"missing user id", anonymous, "secret"},
		{"garbage", "not.a.token", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateLegacyToken(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}

	// negative ttl means no expiry claim, not an expired token
	_, err = ValidateLegacyToken(expired, "secret")
	assert.NoError(t, err)
}
