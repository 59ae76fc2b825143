// Package users reads customer contact details. Authentication happens
// upstream; this repository only mirrors the contact fields notifications
// need, keyed by the user id carried in the JWT subject.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printstudio_backend/platform/apperr"
)

// Contact holds the fields needed to address a notification.
type Contact struct {
	Email    string
	FullName string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetContact returns the email and display name for a user.
func (r *Repository) GetContact(ctx context.Context, userID uuid.UUID) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx,
		`SELECT email, full_name FROM users WHERE id = $1`,
		userID,
	).Scan(&c.Email, &c.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("user not found")
		}
		return Contact{}, fmt.Errorf("get user contact: %w", err)
	}
	return c, nil
}

// Upsert records or refreshes a user's contact details. Called when an
// authenticated request carries contact claims the mirror has not seen.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, email, fullName string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, full_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, updated_at = now()`,
		userID, email, fullName,
	)
	if err != nil {
		return fmt.Errorf("upsert user contact: %w", err)
	}
	return nil
}
