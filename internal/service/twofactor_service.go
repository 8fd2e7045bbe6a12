package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/mailer"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/twofactor"
)

// BackupCodes are shown to the user once. Codes is empty when the user kept
// the codes issued earlier.
type BackupCodes struct {
	Codes     []string `json:"backupCodes"`
	Remaining int      `json:"remaining"`
}

type TwoFactorService struct {
	log     *slog.Logger
	users   interfaces.UserRepository
	store   interfaces.TwoFactorRepository
	auth    *AuthService
	limiter *ratelimit.Limiter
	mail    mailer.Sender
	metrics *metrics.Metrics
	issuer  string
	now     func() time.Time
}

func NewTwoFactorService(
	log *slog.Logger,
	users interfaces.UserRepository,
	store interfaces.TwoFactorRepository,
	auth *AuthService,
	limiter *ratelimit.Limiter,
	mail mailer.Sender,
	issuer string,
) *TwoFactorService {
	return &TwoFactorService{
		log:     log,
		users:   users,
		store:   store,
		auth:    auth,
		limiter: limiter,
		mail:    mail,
		issuer:  issuer,
		now:     time.Now,
	}
}

func (s *TwoFactorService) WithMetrics(m *metrics.Metrics) *TwoFactorService {
	s.metrics = m
	return s
}

// Generate starts an authenticator-app enrollment. 2FA stays off until VerifySetup.
func (s *TwoFactorService) Generate(ctx context.Context, userID int64) (*twofactor.Enrollment, error) {
	const op = "service.TwoFactorService.Generate"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	enrollment, err := twofactor.NewEnrollment(s.issuer, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetTwoFactorSecret(ctx, user.ID, enrollment.Secret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return enrollment, nil
}

// backupCodesFor keeps the codes a user already has, or issues a new set.
func (s *TwoFactorService) backupCodesFor(user *model.User) (*BackupCodes, []string, error) {
	if len(user.BackupCodes) > 0 {
		return &BackupCodes{Codes: []string{}, Remaining: len(user.BackupCodes)}, user.BackupCodes, nil
	}
	codes, err := twofactor.NewBackupCodes(twofactor.BackupCodeCount)
	if err != nil {
		return nil, nil, err
	}
	return &BackupCodes{Codes: codes, Remaining: len(codes)}, twofactor.HashBackupCodes(user.ID, codes), nil
}

// VerifySetup confirms the app enrollment with a first code and turns 2FA on.
func (s *TwoFactorService) VerifySetup(ctx context.Context, userID int64, code string) (*BackupCodes, error) {
	const op = "service.TwoFactorService.VerifySetup"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotStarted
	}
	if !twofactor.ValidateTOTP(code, user.TwoFactorSecret, s.now()) {
		s.metrics.TwoFactorCheck(string(model.TwoFactorApp), "invalid")
		return nil, ErrInvalidCode
	}

	out, hashes, err := s.backupCodesFor(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.EnableTwoFactor(ctx, user.ID, model.TwoFactorApp, hashes); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("two-factor app enabled")
	return out, nil
}

// Disable turns every second factor off after a valid app code.
func (s *TwoFactorService) Disable(ctx context.Context, userID int64, code string) error {
	const op = "service.TwoFactorService.Disable"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.allow(ctx, ratelimit.TwoFactorKey(user.Email), ratelimit.TwoFactorRule); err != nil {
		return err
	}

	if user.TwoFactorSecret == "" {
		return ErrTwoFactorAlreadyDisabled
	}
	if !twofactor.ValidateTOTP(strings.TrimSpace(code), user.TwoFactorSecret, s.now()) {
		return ErrInvalidCode
	}

	s.clear(ctx, log, ratelimit.TwoFactorKey(user.Email))
	if err := s.store.DisableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("two-factor disabled")
	return nil
}

// SendEmailCode emails a fresh six-digit code, replacing any earlier one.
// During a pending login it is only allowed when email codes are enabled.
func (s *TwoFactorService) SendEmailCode(ctx context.Context, userID int64, pending bool) error {
	const op = "service.TwoFactorService.SendEmailCode"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if pending && !user.HasTwoFactorMethod(model.TwoFactorEmail) {
		return ErrMethodNotEnabled
	}
	if err := s.allow(ctx, ratelimit.EmailSendKey(user.Email), ratelimit.EmailSendRule); err != nil {
		return err
	}

	code, err := twofactor.NewEmailCode()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SaveEmailToken(ctx, user.Email, code, s.now().Add(twofactor.EmailCodeTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg, err := mailer.TwoFactorCode(user.Email, code, int(twofactor.EmailCodeTTL/time.Minute))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// checkEmailCode validates the stored code for email and burns it on success.
// An expired code is burned too.
func (s *TwoFactorService) checkEmailCode(ctx context.Context, email, code string) error {
	token, err := s.store.GetEmailToken(ctx, email)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if !twofactor.EqualCodes(token.Token, strings.TrimSpace(code)) {
		return ErrInvalidCode
	}
	if err := s.store.DeleteEmailToken(ctx, email); err != nil {
		return err
	}
	if token.Expired(s.now()) {
		return ErrCodeExpired
	}
	return nil
}

// VerifyEmailSetup switches the user to emailed codes.
func (s *TwoFactorService) VerifyEmailSetup(ctx context.Context, userID int64, code string) (*BackupCodes, error) {
	const op = "service.TwoFactorService.VerifyEmailSetup"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	if strings.TrimSpace(code) == "" {
		return nil, invalid("code is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkEmailCode(ctx, user.Email, code); err != nil {
		if errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrCodeExpired) {
			s.metrics.TwoFactorCheck(string(model.TwoFactorEmail), "invalid")
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, hashes, err := s.backupCodesFor(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.EnableTwoFactor(ctx, user.ID, model.TwoFactorEmail, hashes); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("two-factor email enabled")
	return out, nil
}

// LoginCheck completes a pending login. The code is tried against the chosen
// method, when the user has it enabled, and then against the backup codes.
func (s *TwoFactorService) LoginCheck(ctx context.Context, claims *Claims, code string, method model.TwoFactorMethod) (*Session, error) {
	const op = "service.TwoFactorService.LoginCheck"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", claims.UserID))

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.allow(ctx, ratelimit.TwoFactorKey(user.Email), ratelimit.TwoFactorRule); err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if method == "" {
		method = user.TwoFactorMethods()[0]
	}

	valid := false
	switch {
	case !user.HasTwoFactorMethod(method):
		log.Info("two-factor method not enabled", slog.String("method", string(method)))
	case method == model.TwoFactorApp:
		valid = user.TwoFactorSecret != "" && twofactor.ValidateTOTP(code, user.TwoFactorSecret, s.now())
	case method == model.TwoFactorEmail:
		err := s.checkEmailCode(ctx, user.Email, code)
		if err != nil && !errors.Is(err, ErrInvalidCode) && !errors.Is(err, ErrCodeExpired) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		valid = err == nil
	}

	result := string(method)
	if !valid {
		consumed, err := s.store.ConsumeBackupCode(ctx, user.ID, twofactor.HashBackupCode(user.ID, code))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		valid = consumed
		result = "BACKUP"
	}

	if !valid {
		s.metrics.TwoFactorCheck(string(method), "invalid")
		log.Info("invalid two-factor code")
		return nil, ErrInvalidCode
	}
	s.metrics.TwoFactorCheck(result, "valid")

	s.clear(ctx, log, ratelimit.TwoFactorKey(user.Email))
	if err := s.auth.RevokeSession(ctx, claims.ID); err != nil && !errors.Is(err, ErrInvalidToken) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.auth.IssueToken(ctx, user, false)
}

// RegenerateBackupCodes replaces every backup code after a valid app code.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID int64, code string) (*BackupCodes, error) {
	const op = "service.TwoFactorService.RegenerateBackupCodes"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.allow(ctx, ratelimit.TwoFactorKey(user.Email), ratelimit.TwoFactorRule); err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotEnabled
	}
	if !twofactor.ValidateTOTP(strings.TrimSpace(code), user.TwoFactorSecret, s.now()) {
		return nil, ErrInvalidCode
	}

	codes, err := twofactor.NewBackupCodes(twofactor.BackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SetBackupCodes(ctx, user.ID, twofactor.HashBackupCodes(user.ID, codes)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.clear(ctx, log, ratelimit.TwoFactorKey(user.Email))
	log.Info("backup codes regenerated")
	return &BackupCodes{Codes: codes, Remaining: len(codes)}, nil
}

func (s *TwoFactorService) allow(ctx context.Context, key string, rule ratelimit.Rule) error {
	allowed, err := s.limiter.Allow(ctx, key, rule)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *TwoFactorService) clear(ctx context.Context, log *slog.Logger, key string) {
	if err := s.limiter.Clear(ctx, key); err != nil {
		log.Warn("failed to clear limiter", slog.String("key", key), sl.Err(err))
	}
}
