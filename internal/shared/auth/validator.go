package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningAlgorithm is the only algorithm accepted for inbound tokens.
const SigningAlgorithm = "ES256"

// ValidatorOptions configures optional claim checks.
type ValidatorOptions struct {
	Issuer   string
	Audience string
	Now      func() time.Time
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens against the issuer's key set.
type Validator struct {
	keys   *KeySetCache
	parser *jwt.Parser
}

// NewValidator constructs a Validator. Expiry is mandatory and has no leeway.
func NewValidator(keys *KeySetCache, opts ValidatorOptions) *Validator {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningAlgorithm}),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Now))
	}
	return &Validator{
		keys:   keys,
		parser: jwt.NewParser(parserOpts...),
	}
}

// Validate verifies raw and returns the identity it asserts. Every failure
// wraps ErrUnauthorized.
func (v *Validator) Validate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrMissingToken)
	}
	if v == nil || v.keys == nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrNoKeySet)
	}

	claims := &tokenClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.keys.Lookup(ctx, t)
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, ErrUnauthorized
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: sub claim is empty", ErrUnauthorized)
	}

	return Identity{OwnerID: claims.Subject, Email: claims.Email}, nil
}
