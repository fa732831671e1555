package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("s3cret")
	tok, err := v.Issue(42, time.Hour)
	require.NoError(t, err)

	id, err := v.FromHeader("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseSubClaim(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"}).SignedString([]byte("k"))
	require.NoError(t, err)

	id, err := NewVerifier("k").Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestParseRejects(t *testing.T) {
	v := NewVerifier("k")
	other, _ := NewVerifier("other").Issue(1, time.Hour)
	expired, _ := v.Issue(1, -time.Minute)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "guest"}).SignedString([]byte("k"))
	guest, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "guest_ab"}).SignedString([]byte("k"))

	cases := map[string]string{
		"wrong secret":   "Bearer " + other,
		"expired":        "Bearer " + expired,
		"no user claim":  "Bearer " + noUser,
		"non numeric":    "Bearer " + guest,
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer abc.def",
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.FromHeader(h)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
		})
	}
}

func TestUserContext(t *testing.T) {
	_, ok := UserFrom(context.Background())
	assert.False(t, ok)

	id, ok := UserFrom(WithUser(context.Background(), 3))
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}
