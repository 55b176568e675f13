package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// Issuer signs short-lived session tokens handed out on successful login.
// With no signing key configured the issuer is disabled and login responses
// simply omit the token.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	key := strings.TrimSpace(signingKey)
	if key == "" {
		return &Issuer{ttl: ttl}
	}
	return &Issuer{signingKey: []byte(key), ttl: ttl}
}

func (i *Issuer) Enabled() bool { return len(i.signingKey) > 0 }

// Issue creates a signed HS256 token for the username.
func (i *Issuer) Issue(username string) (string, error) {
	if !i.Enabled() {
		return "", nil
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and returns the username it was issued for.
func (i *Issuer) Verify(tokenString string) (string, error) {
	if !i.Enabled() {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
