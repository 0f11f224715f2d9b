package auth

import (
	"errors"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrMissingToken   = errors.New("missing bearer token")
	ErrMissingKID     = errors.New("token header has no kid")
	ErrUnknownKID     = errors.New("unknown kid")
	ErrRefreshLimited = errors.New("jwks refresh limit reached")
	ErrNoKeySet       = errors.New("jwks not loaded")
)

// Identity is the caller attributed by a validated token.
type Identity struct {
	OwnerID string
	Email   string
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
