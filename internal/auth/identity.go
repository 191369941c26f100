// Package auth verifies bearer tokens issued by the external identity provider
// and resolves the caller identity from their claims.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity is returned when verified claims carry no usable identity.
var ErrNoIdentity = errors.New("no identity claim")

// ErrInvalidToken is returned when a token fails signature or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// identityClaims lists the claims tried in order by ResolveCallerIdentity.
var identityClaims = []string{"sub", "sid", "email"}

// Identity is the verified caller.
type Identity struct {
	// ID is the stable external identity string.
	ID    string
	Email string
}

// ResolveCallerIdentity returns the first non-empty string claim among
// "sub", "sid" and "email", in that order. Email is taken from the "email"
// claim and may be empty.
func ResolveCallerIdentity(claims jwt.MapClaims) (Identity, error) {
	email := stringClaim(claims, "email")
	for _, name := range identityClaims {
		if v := stringClaim(claims, name); v != "" {
			return Identity{ID: v, Email: email}, nil
		}
	}
	return Identity{}, ErrNoIdentity
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return strings.TrimSpace(v)
}

// Verifier checks HMAC-signed bearer tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates tokenString and resolves the caller identity from it.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return ResolveCallerIdentity(claims)
}
