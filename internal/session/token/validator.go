// Package token validates session bearer tokens.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	dErrors "garrison/pkg/domain-errors"
	"garrison/pkg/platform/middleware/auth"
)

// Validator checks HMAC-signed session tokens and extracts identity claims.
// It satisfies the auth middleware's JWTValidator interface.
type Validator struct {
	signingKey []byte
	issuer     string
}

// New creates a Validator for tokens signed with the given key.
func New(signingKey []byte, issuer string) (*Validator, error) {
	if len(signingKey) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "jwt signing key is required")
	}
	return &Validator{signingKey: signingKey, issuer: issuer}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// ValidateToken parses and verifies a session token. The subject claim is
// the actor ID and the sid claim the session ID.
func (v *Validator) ValidateToken(tokenString string) (*auth.Claims, error) {
	var claims sessionClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	if claims.Subject == "" || claims.SessionID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing identity claims")
	}

	return &auth.Claims{
		ActorID:   claims.Subject,
		SessionID: claims.SessionID,
	}, nil
}
