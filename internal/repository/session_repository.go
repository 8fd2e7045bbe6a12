package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
)

// CreateSession creates a new session for a user
func (r *UserRepositoryImpl) CreateSession(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sessions (user_id, token_id, expires_at)
		 VALUES ($1, $2, $3)`,
		userID, tokenID, expiresAt)
	return err
}

// RevokeSession marks a session as revoked
func (r *UserRepositoryImpl) RevokeSession(ctx context.Context, tokenID string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions
		 SET is_revoked = true
		 WHERE token_id = $1`,
		tokenID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeUserSessions revokes every live session of the user.
func (r *UserRepositoryImpl) RevokeUserSessions(ctx context.Context, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions
		 SET is_revoked = true
		 WHERE user_id = $1 AND NOT is_revoked`,
		userID)
	return err
}

// IsSessionValid checks if a session is valid and not expired
func (r *UserRepositoryImpl) IsSessionValid(ctx context.Context, tokenID string) (bool, error) {
	var isRevoked bool
	var expiresAt time.Time

	err := r.db.Pool.QueryRow(ctx,
		`SELECT is_revoked, expires_at
		 FROM sessions
		 WHERE token_id = $1`,
		tokenID).Scan(&isRevoked, &expiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !isRevoked && time.Now().Before(expiresAt), nil
}
