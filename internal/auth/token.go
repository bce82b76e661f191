package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access from refresh tokens (spec §3 Session token).
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// claims is the signed bearer token payload (spec §6.2: sub, roles, iat,
// exp, kind).
type claims struct {
	jwt.RegisteredClaims
	Roles []string  `json:"roles"`
	Kind  TokenKind `json:"kind"`
}

// clockSkew is the tolerance applied to exp/iat checks (spec §6.2: ±30s).
const clockSkew = 30 * time.Second

// TokenIssuer signs and verifies bearer tokens with a single configured key
// and algorithm (spec §4.8, §6.2). HMAC-SHA-256 is the only method: the
// signing_algorithm config value accepts "HS256" (or empty), and
// NewTokenIssuer rejects any other value, asymmetric methods included.
type TokenIssuer struct {
	signingKey []byte
	method     jwt.SigningMethod
}

// NewTokenIssuer builds a TokenIssuer for the given key and algorithm name
// ("HS256" is the only algorithm wired in this build; others are rejected
// at construction so a misconfiguration fails at startup, not first use).
func NewTokenIssuer(signingKey string, algorithm string) (*TokenIssuer, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	return &TokenIssuer{signingKey: []byte(signingKey), method: method}, nil
}

// Issue signs a token for subject/roles of the given kind and TTL.
func (t *TokenIssuer) Issue(subject string, roles []string, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
		Kind:  kind,
	}
	token := jwt.NewWithClaims(t.method, c)
	return token.SignedString(t.signingKey)
}

// Verify checks signature, expiry (with clock-skew tolerance), and that the
// token's kind matches wantKind (spec §4.8 Refresh/Authenticate).
func (t *TokenIssuer) Verify(tokenString string, wantKind TokenKind) (subject string, roles []string, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method != t.method {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Method)
		}
		return t.signingKey, nil
	}, jwt.WithLeeway(clockSkew))
	if err != nil {
		return "", nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Kind != wantKind {
		return "", nil, fmt.Errorf("auth: expected token kind %q, got %q", wantKind, c.Kind)
	}
	return c.Subject, c.Roles, nil
}
