package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims is the bearer token accepted by the HTTP API. Subject
// names the calling user or service.
type AccessTokenClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}
