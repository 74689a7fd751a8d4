package profile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the stored profile.
func (r *Repository) Get(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT user_id, full_name, mobile_number, location, updated_at
FROM profiles WHERE user_id=$1`, userID).Scan(&p.UserID, &p.FullName, &p.MobileNumber, &p.Location, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// Merge upserts only the fields present in patch.
func (r *Repository) Merge(ctx context.Context, userID string, patch Patch, now time.Time) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `INSERT INTO profiles (user_id, full_name, mobile_number, location, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
	full_name = COALESCE($2, profiles.full_name),
	mobile_number = COALESCE($3, profiles.mobile_number),
	location = COALESCE($4, profiles.location),
	updated_at = $5
RETURNING user_id, full_name, mobile_number, location, updated_at`,
		userID, patch.FullName, patch.MobileNumber, patch.Location, now,
	).Scan(&p.UserID, &p.FullName, &p.MobileNumber, &p.Location, &p.UpdatedAt)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}
