package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/jackc/pgx/v4"
)

func (r *UserRepositoryImpl) SetTwoFactorSecret(ctx context.Context, userID int64, secret string) error {
	return r.execUser(ctx,
		`UPDATE users SET two_factor_secret = $2, updated_at = NOW() WHERE id = $1`,
		userID, secret)
}

// EnableTwoFactor turns on the master switch and the given method. Enabling EMAIL
// turns APP off. The backup codes are replaced with the given hashes.
func (r *UserRepositoryImpl) EnableTwoFactor(ctx context.Context, userID int64, method model.TwoFactorMethod, backupCodeHashes []string) error {
	if backupCodeHashes == nil {
		backupCodeHashes = []string{}
	}

	sql := `UPDATE users
		 SET two_factor_enabled = true,
		     two_factor_app_enabled = true,
		     two_factor_backup_codes = $2,
		     updated_at = NOW()
		 WHERE id = $1`
	if method == model.TwoFactorEmail {
		sql = `UPDATE users
		 SET two_factor_enabled = true,
		     two_factor_email_enabled = true,
		     two_factor_app_enabled = false,
		     two_factor_backup_codes = $2,
		     updated_at = NOW()
		 WHERE id = $1`
	}
	return r.execUser(ctx, sql, userID, backupCodeHashes)
}

// DisableTwoFactor clears every second-factor flag, the secret and the backup codes.
func (r *UserRepositoryImpl) DisableTwoFactor(ctx context.Context, userID int64) error {
	return r.execUser(ctx,
		`UPDATE users
		 SET two_factor_enabled = false,
		     two_factor_app_enabled = false,
		     two_factor_email_enabled = false,
		     two_factor_secret = NULL,
		     two_factor_backup_codes = '{}',
		     updated_at = NOW()
		 WHERE id = $1`,
		userID)
}

func (r *UserRepositoryImpl) SetBackupCodes(ctx context.Context, userID int64, hashes []string) error {
	return r.execUser(ctx,
		`UPDATE users SET two_factor_backup_codes = $2, updated_at = NOW() WHERE id = $1`,
		userID, hashes)
}

// ConsumeBackupCode removes the hash from the user's codes. It reports false when
// the hash was not present, so a code can be used only once even under concurrency.
func (r *UserRepositoryImpl) ConsumeBackupCode(ctx context.Context, userID int64, hash string) (bool, error) {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE users
		 SET two_factor_backup_codes = array_remove(two_factor_backup_codes, $2)
		 WHERE id = $1
		   AND $2 = ANY(two_factor_backup_codes)`,
		userID, hash)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// SaveEmailToken replaces any previous code for the email.
func (r *UserRepositoryImpl) SaveEmailToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO two_factor_tokens (email, token, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE
		 SET token = EXCLUDED.token,
		     expires_at = EXCLUDED.expires_at`,
		email, token, expiresAt)
	return err
}

func (r *UserRepositoryImpl) GetEmailToken(ctx context.Context, email string) (*model.TwoFactorToken, error) {
	var t model.TwoFactorToken
	err := r.db.Pool.QueryRow(ctx,
		`SELECT email, token, expires_at FROM two_factor_tokens WHERE email = $1`,
		email).Scan(&t.Email, &t.Token, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *UserRepositoryImpl) DeleteEmailToken(ctx context.Context, email string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM two_factor_tokens WHERE email = $1`, email)
	return err
}
