// Package jwtx wraps github.com/golang-jwt/jwt/v5 with a shared-secret HMAC
// codec. A single secret and algorithm are fixed at construction time;
// rotating the secret invalidates every outstanding token, which is the
// documented operational trade-off.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired reports a structurally valid token past its exp claim.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrMalformed reports a token whose structure or signature does not
	// verify. An unverified signature is never partially trusted.
	ErrMalformed = errors.New("jwtx: token malformed")

	// ErrUnsupportedAlgorithm reports a signing algorithm outside the HMAC
	// family at codec construction.
	ErrUnsupportedAlgorithm = errors.New("jwtx: unsupported signing algorithm")
)

// Claims is the verified payload of a bearer token.
type Claims struct {
	Subject   string
	Role      string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier decodes and validates a raw bearer token.
type Verifier interface {
	Verify(raw string) (Claims, error)
}

// Codec signs and verifies tokens with a single shared secret. Safe for
// concurrent use; all fields are immutable after construction.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
}

// NewCodec builds a codec for the given secret and HMAC algorithm
// (HS256, HS384 or HS512).
func NewCodec(secret, algorithm, issuer string) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrUnsupportedAlgorithm
	}
	if secret == "" {
		return nil, errors.New("jwtx: empty secret")
	}
	return &Codec{
		secret: []byte(secret),
		method: method,
		issuer: issuer,
	}, nil
}

type tokenClaims struct {
	Role   string `json:"role"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Sign encodes the claims with the given TTL. The expires-at claim is always
// present; the verifier enforces it.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(c.method, tokenClaims{
		Role:   claims.Role,
		UserID: claims.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(c.secret)
}

// Verify parses and validates a raw token. It returns ErrExpired for tokens
// past their exp claim and ErrMalformed for everything else that fails to
// verify, never a library error.
func (c *Codec) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	out := Claims{
		Subject: tc.Subject,
		Role:    tc.Role,
		UserID:  tc.UserID,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	return out, nil
}
