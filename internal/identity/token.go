package identity

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type tokenClaims struct {
	expiresAt time.Time
}

// parseUnverified reads the claims of an access token without checking its
// signature. The client only uses them for display and expiry hints; the
// backend verifies every token it receives.
func parseUnverified(token string) (tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return tokenClaims{}, fmt.Errorf("malformed access token: %w", err)
	}
	var out tokenClaims
	if exp, ok := claims["exp"].(float64); ok {
		out.expiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
