package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/memory"
	"github.com/ariefcatur/go-marketplace/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateKeepsShippingFields(t *testing.T) {
	store := memory.New().Profiles()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, users.Profile{UserID: 1, City: "Medan", Address: "Jl. Asia 4"}))

	p, err := users.Update(ctx, store, 1, users.ProfileUpdate{FullName: "  Budi  ", Email: "budi@example.com", Phone: "0812"})
	require.NoError(t, err)
	assert.Equal(t, "Budi", p.FullName)
	assert.Equal(t, "Medan", p.City)

	stored, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestUpdateValidates(t *testing.T) {
	store := memory.New().Profiles()
	for _, u := range []users.ProfileUpdate{
		{Email: "a@b.io"},
		{FullName: "A", Email: "not-an-email"},
		{FullName: "A", Email: "a@b.io", Phone: "12345678901234567"},
	} {
		_, err := users.Update(context.Background(), store, 1, u)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "%+v", u)
	}
}
