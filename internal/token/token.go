package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures are distinguished here for logging and metrics.
// The HTTP layer must collapse all of them into one generic 401 so a
// caller cannot tell which check failed.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

const defaultTTL = 1 * time.Hour

// Issuer creates and verifies HS256-signed bearer tokens carrying a single
// subject claim. The signing key is process-wide configuration; tokens are
// never stored server-side.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key []byte) *Issuer {
	return &Issuer{key: key, ttl: defaultTTL, now: time.Now}
}

func (i *Issuer) Issue(subjectID string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": subjectID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the subject claim.
func (i *Issuer) Verify(raw string) (string, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return i.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrBadSignature
		default:
			return "", ErrMalformed
		}
	}
	if !t.Valid {
		return "", ErrBadSignature
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrMalformed
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrMalformed
	}
	return sub, nil
}
