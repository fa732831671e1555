package users

import (
	"context"
	"net/mail"
	"strings"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

// Profile extends a user account with contact and shipping defaults.
type Profile struct {
	UserID   int64  `json:"-"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Address  string `json:"address"`
}

type Store interface {
	// Get returns an empty profile for users that never saved one.
	Get(ctx context.Context, userID int64) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

// ProfileUpdate carries the editable contact fields.
type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (u ProfileUpdate) Validate() error {
	if strings.TrimSpace(u.FullName) == "" {
		return apperr.Validation("fullName is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return apperr.Validation("email is invalid")
	}
	if len(u.Phone) > 16 {
		return apperr.Validation("phone is too long")
	}
	return nil
}

// Update applies u to the stored profile and returns the result.
func Update(ctx context.Context, s Store, userID int64, u ProfileUpdate) (Profile, error) {
	if err := u.Validate(); err != nil {
		return Profile{}, err
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	p.UserID = userID
	p.FullName = strings.TrimSpace(u.FullName)
	p.Email = u.Email
	p.Phone = u.Phone
	if err := s.Save(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}
