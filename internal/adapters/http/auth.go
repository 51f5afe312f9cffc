package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// TokenVerifier validates HS256 bearer tokens and extracts the subject.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// VerifyRequest returns the caller's user id taken from the token's sub
// claim. The sub claim is the only trusted identity source.
func (v *TokenVerifier) VerifyRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("missing authorization header"))
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("authorization header is not a bearer token"))
	}
	if len(v.secret) == 0 {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token secret is not configured"))
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", err)
	}
	if claims.Subject == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token has no subject"))
	}
	return claims.Subject, nil
}
