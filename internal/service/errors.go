package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrEmailTaken         = errors.New("email already exists")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")

	ErrTwoFactorNotStarted      = errors.New("two-factor setup was not started")
	ErrTwoFactorAlreadyDisabled = errors.New("two-factor authentication is already disabled")
	ErrTwoFactorNotEnabled      = errors.New("two-factor authentication is not enabled")
	ErrInvalidCode              = errors.New("invalid code")
	ErrCodeExpired              = errors.New("code has expired")
	ErrMethodNotEnabled         = errors.New("two-factor method is not enabled for this account")

	ErrPasswordlessAccount = errors.New("this account signs in with google and has no password")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrInvalidResetToken   = errors.New("reset link is invalid or has expired")

	ErrNotConfigured = errors.New("integration is not configured")
	ErrNotConnected  = errors.New("integration token is not configured")
	ErrReconnect     = errors.New("integration session expired, reconnect the account")
)

// InputError is a client mistake. Its message is safe to return as is.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError is a failure reported by a third-party API.
type UpstreamError struct {
	Service string
	Msg     string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Msg != "" {
		return e.Service + ": " + e.Msg
	}
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
