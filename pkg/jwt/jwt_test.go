package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("user-1", "STUDENT")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "STUDENT", claims.Role)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.Generate("user-1", "STUDENT")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Generate("user-1", "STUDENT")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Missing(t *testing.T) {
	_, err := NewJWTManager("secret", time.Hour).Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestExtractBearer(t *testing.T) {
	tok, ok := ExtractBearer("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Token abc", "Bearer a b", "Bearer "} {
		_, ok := ExtractBearer(h)
		assert.False(t, ok, h)
	}
}
