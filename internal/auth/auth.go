// Package auth turns a bearer token into the current user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey struct{}

func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFrom returns the user id stored by WithUser.
func UserFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id > 0
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for userID. Used by tooling and tests; login itself
// lives outside this service.
func (v *Verifier) Issue(userID int64, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// FromHeader parses an Authorization header value ("Bearer <token>").
func (v *Verifier) FromHeader(h string) (int64, error) {
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthenticated)
	}
	return v.Parse(strings.TrimSpace(raw))
}

// Parse validates the token and extracts a numeric user_id or sub claim.
func (v *Verifier) Parse(token string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	id, err := userID(claims)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	return id, nil
}

func userID(c jwt.MapClaims) (int64, error) {
	raw, ok := c["user_id"]
	if !ok {
		raw, ok = c["sub"]
	}
	if !ok {
		return 0, errors.New("no user claim")
	}
	var id int64
	switch t := raw.(type) {
	case float64:
		id = int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("user claim %q is not numeric", t)
		}
		id = n
	default:
		return 0, fmt.Errorf("user claim has type %T", raw)
	}
	if id <= 0 {
		return 0, errors.New("user claim must be positive")
	}
	return id, nil
}
