package repository

import (
	"errors"

	"github.com/jackc/pgconn"
)

// Common errors that can be returned by the repository
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrSessionNotFound     = errors.New("session not found")
	ErrResetTokenInvalid   = errors.New("reset token is invalid or expired")
	ErrTokenNotFound       = errors.New("two-factor token not found")
	ErrCompanyNotFound     = errors.New("company not found")
	ErrPdvConfigNotFound   = errors.New("pdv integration is not configured")
	ErrIntegrationNotFound = errors.New("integration not found")
	ErrCustomerNotFound    = errors.New("customer not found")
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
