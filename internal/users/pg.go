package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Get(ctx context.Context, userID int64) (Profile, error) {
	p := Profile{UserID: userID}
	err := s.DB.QueryRow(ctx, `SELECT full_name, email, phone, city, address
		FROM profiles WHERE user_id=$1`, userID).Scan(&p.FullName, &p.Email, &p.Phone, &p.City, &p.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	return p, err
}

func (s *PGStore) Save(ctx context.Context, p Profile) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO profiles(user_id, full_name, email, phone, city, address)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			city = EXCLUDED.city, address = EXCLUDED.address`,
		p.UserID, p.FullName, p.Email, p.Phone, p.City, p.Address)
	return err
}
