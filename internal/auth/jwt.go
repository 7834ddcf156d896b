package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// bearerClaims is the JWT claim set a bearer-token credential carries:
// principal_id identifies the Principal, tier names its quota tier.
type bearerClaims struct {
	jwt.RegisteredClaims
	PrincipalID string `json:"principal_id"`
	Tier        string `json:"tier"`
}

// verifyBearerToken validates an HMAC-signed bearer token against secret and
// returns its principal id and tier claims.
func verifyBearerToken(token, secret string) (principalID, tier string, err error) {
	var claims bearerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !parsed.Valid || claims.PrincipalID == "" {
		return "", "", fmt.Errorf("invalid bearer token claims")
	}
	return claims.PrincipalID, claims.Tier, nil
}
