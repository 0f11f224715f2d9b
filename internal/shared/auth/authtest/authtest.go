// Package authtest provides an in-process token issuer for tests.
package authtest

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs ES256 tokens and serves the matching JWKS.
type Issuer struct {
	t       testing.TB
	mu      sync.Mutex
	keys    map[string]*ecdsa.PrivateKey
	order   []string
	fetches atomic.Int64
	failing atomic.Bool
}

// NewIssuer creates an issuer with a single key under kid.
func NewIssuer(t testing.TB, kid string) *Issuer {
	t.Helper()
	iss := &Issuer{t: t, keys: map[string]*ecdsa.PrivateKey{}}
	iss.AddKey(kid)
	return iss
}

// AddKey generates and publishes a new P-256 key under kid.
func (i *Issuer) AddKey(kid string) *ecdsa.PrivateKey {
	i.t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		i.t.Fatalf("generate key: %v", err)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.keys[kid]; !ok {
		i.order = append(i.order, kid)
	}
	i.keys[kid] = priv
	return priv
}

// Key returns the private key published under kid.
func (i *Issuer) Key(kid string) *ecdsa.PrivateKey {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.keys[kid]
}

// SetFailing makes subsequent fetches fail.
func (i *Issuer) SetFailing(v bool) { i.failing.Store(v) }

// Fetches reports how many times the key set was fetched.
func (i *Issuer) Fetches() int { return int(i.fetches.Load()) }

// JWKS renders the public key set.
func (i *Issuer) JWKS() json.RawMessage {
	i.mu.Lock()
	defer i.mu.Unlock()
	type jwk struct {
		Kty string `json:"kty"`
		Crv string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
		Kid string `json:"kid"`
		Alg string `json:"alg"`
		Use string `json:"use"`
	}
	set := struct {
		Keys []jwk `json:"keys"`
	}{}
	for _, kid := range i.order {
		pub := i.keys[kid].PublicKey
		set.Keys = append(set.Keys, jwk{
			Kty: "EC",
			Crv: "P-256",
			X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, 32))),
			Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, 32))),
			Kid: kid,
			Alg: "ES256",
			Use: "sig",
		})
	}
	raw, err := json.Marshal(set)
	if err != nil {
		i.t.Fatalf("marshal jwks: %v", err)
	}
	return raw
}

// Fetch implements auth.Fetcher without a network hop.
func (i *Issuer) Fetch(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.fetches.Add(1)
	if i.failing.Load() {
		return nil, errFetch
	}
	return i.JWKS(), nil
}

// Server serves the key set at /.well-known/jwks.json.
func (i *Issuer) Server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		i.fetches.Add(1)
		if i.failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(i.JWKS())
	})
	srv := httptest.NewServer(mux)
	i.t.Cleanup(srv.Close)
	return srv
}

// Claims is the claim set written into test tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Sign issues an ES256 token for sub under kid, expiring after ttl from now.
func (i *Issuer) Sign(kid, sub string, now time.Time, ttl time.Duration) string {
	i.t.Helper()
	return i.SignClaims(kid, Claims{
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

// SignClaims issues an ES256 token with arbitrary claims under kid.
func (i *Issuer) SignClaims(kid string, claims Claims) string {
	i.t.Helper()
	key := i.Key(kid)
	if key == nil {
		// Sign with a throwaway key so the kid is unknown to the published set.
		var err error
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			i.t.Fatalf("generate key: %v", err)
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		i.t.Fatalf("sign token: %v", err)
	}
	return signed
}

type fetchError string

func (e fetchError) Error() string { return string(e) }

const errFetch = fetchError("jwks endpoint unavailable")
