package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/jackc/pgx/v4"
)

// UserRepositoryImpl implements the user, session and two-factor repositories
type UserRepositoryImpl struct {
	db *database.DB
}

// Verify that UserRepositoryImpl implements the interfaces
var (
	_ interfaces.UserRepository      = (*UserRepositoryImpl)(nil)
	_ interfaces.SessionRepository   = (*UserRepositoryImpl)(nil)
	_ interfaces.TwoFactorRepository = (*UserRepositoryImpl)(nil)
)

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *database.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, name, email, COALESCE(password_hash, ''), COALESCE(image, ''), role,
	two_factor_enabled, two_factor_app_enabled, two_factor_email_enabled,
	COALESCE(two_factor_secret, ''), two_factor_backup_codes, COALESCE(google_subject, ''),
	last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Image, &user.Role,
		&user.TwoFactorEnabled, &user.TwoFactorAppEnabled, &user.TwoFactorEmailEnabled,
		&user.TwoFactorSecret, &user.BackupCodes, &user.GoogleSubject,
		&user.LastLogin, &user.Created, &user.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user in the database. An empty hash stores a password-less account.
func (r *UserRepositoryImpl) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (*model.User, error) {
	user, err := scanUser(r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 RETURNING `+userColumns,
		name, email, passwordHash, role))
	if err != nil {
		if isPgError(err, codeUniqueViolation) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// UpsertSuperAdmin creates the account or promotes an existing one and resets its password.
func (r *UserRepositoryImpl) UpsertSuperAdmin(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash,
		     role = EXCLUDED.role,
		     updated_at = NOW()
		 RETURNING `+userColumns,
		name, email, passwordHash, model.RoleSuperAdmin))
}

// GetUserByEmail retrieves a user by their email address
func (r *UserRepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepositoryImpl) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// ListUsers returns one page of users matching the search term on name or email.
func (r *UserRepositoryImpl) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	where := ""
	args := []any{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, containsPattern(s))
		where = ` WHERE name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\'`
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)
	rows, err := r.db.Pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			userColumns, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

// UpdateProfile sets the name and, when image is not nil, the image.
func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, userID int64, name string, image *string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`UPDATE users
		 SET name = $2,
		     image = COALESCE($3, image),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, name, image))
}

func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.execUser(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		userID, passwordHash)
}

func (r *UserRepositoryImpl) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	return r.execUser(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		userID, role)
}

// LinkGoogleAccount stores the Google subject and fills the image if the user has none.
func (r *UserRepositoryImpl) LinkGoogleAccount(ctx context.Context, userID int64, subject, image string) error {
	return r.execUser(ctx,
		`UPDATE users
		 SET google_subject = $2,
		     image = COALESCE(image, NULLIF($3, '')),
		     updated_at = NOW()
		 WHERE id = $1`,
		userID, subject, image)
}

// UpdateLastLogin updates the last login time
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, userID int64) error {
	return r.execUser(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = $1`,
		userID)
}

func (r *UserRepositoryImpl) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	return r.execUser(ctx,
		`UPDATE users
		 SET reset_token_hash = $2,
		     reset_token_expires_at = $3
		 WHERE id = $1`,
		userID, tokenHash, expiresAt)
}

// ResetPassword swaps the password of the user holding an unexpired token and clears the token.
func (r *UserRepositoryImpl) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $2,
		     reset_token_hash = NULL,
		     reset_token_expires_at = NULL,
		     updated_at = NOW()
		 WHERE reset_token_hash = $1
		   AND reset_token_expires_at > $3`,
		tokenHash, passwordHash, now)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

func (r *UserRepositoryImpl) execUser(ctx context.Context, sql string, args ...any) error {
	result, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
