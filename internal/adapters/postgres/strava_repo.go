package postgres

import (
	"context"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// StravaRepo implements ports.StravaConnectionRepository with pgx.
type StravaRepo struct {
	db *DB
}

// NewStravaRepo creates a new StravaRepo.
func NewStravaRepo(db *DB) *StravaRepo {
	return &StravaRepo{db: db}
}

// Upsert stores the connection, replacing any previous one for the user.
func (r *StravaRepo) Upsert(ctx context.Context, c *domain.StravaConnection) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO strava_connections (user_id, athlete_id, access_token, refresh_token, expires_at, scope)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET athlete_id = EXCLUDED.athlete_id, access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token, expires_at = EXCLUDED.expires_at,
		    scope = EXCLUDED.scope, updated_at = now()
		RETURNING id, created_at, updated_at
	`, c.UserID, c.AthleteID, c.AccessToken, c.RefreshToken, c.ExpiresAt, c.Scope).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err)
}

// GetByUser returns a user's connection.
func (r *StravaRepo) GetByUser(ctx context.Context, userID string) (*domain.StravaConnection, error) {
	var c domain.StravaConnection
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, athlete_id, access_token, refresh_token, expires_at, scope, created_at, updated_at
		FROM strava_connections WHERE user_id = $1
	`, userID).Scan(&c.ID, &c.UserID, &c.AthleteID, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.Scope, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// DeleteByUser removes a user's connection.
func (r *StravaRepo) DeleteByUser(ctx context.Context, userID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM strava_connections WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
