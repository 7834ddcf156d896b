package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, claims bearerClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err, "failed to sign test token")
	return signed
}

func TestVerifyBearerToken_ValidToken(t *testing.T) {
	signed := signTestToken(t, bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		PrincipalID: "principal-1",
		Tier:        "pro",
	}, testSecret)

	principalID, tier, err := verifyBearerToken(signed, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", principalID)
	assert.Equal(t, "pro", tier)
}

func TestVerifyBearerToken_WrongSecretRejected(t *testing.T) {
	signed := signTestToken(t, bearerClaims{PrincipalID: "principal-1"}, testSecret)

	_, _, err := verifyBearerToken(signed, "wrong-secret")
	assert.Error(t, err, "expected verification to fail with the wrong secret")
}

func TestVerifyBearerToken_MissingPrincipalIDRejected(t *testing.T) {
	signed := signTestToken(t, bearerClaims{}, testSecret)

	_, _, err := verifyBearerToken(signed, testSecret)
	assert.Error(t, err, "expected verification to fail without a principal_id claim")
}

func TestVerifyBearerToken_ExpiredTokenRejected(t *testing.T) {
	signed := signTestToken(t, bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		PrincipalID: "principal-1",
	}, testSecret)

	_, _, err := verifyBearerToken(signed, testSecret)
	assert.Error(t, err, "expected verification to fail for an expired token")
}

func TestVerifyBearerToken_MalformedTokenRejected(t *testing.T) {
	_, _, err := verifyBearerToken("not-a-jwt", testSecret)
	assert.Error(t, err, "expected verification to fail for a malformed token")
}
