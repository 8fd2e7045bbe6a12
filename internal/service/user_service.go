package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/mailer"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenTTL   = time.Hour
	defaultPageSize = 10
	maxPageSize     = 100
)

type UserService struct {
	log      *slog.Logger
	users    interfaces.UserRepository
	sessions interfaces.SessionRepository
	mail     mailer.Sender
	appURL   string
	locale   string
	now      func() time.Time
}

func NewUserService(log *slog.Logger, users interfaces.UserRepository, sessions interfaces.SessionRepository, mail mailer.Sender, appURL, locale string) *UserService {
	return &UserService{
		log:      log,
		users:    users,
		sessions: sessions,
		mail:     mail,
		appURL:   strings.TrimRight(appURL, "/"),
		locale:   locale,
		now:      time.Now,
	}
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Profile: %w", err)
	}
	p := user.Profile()
	return &p, nil
}

// UpdateProfile renames the user. The image changes only when one is given.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name string, image *string) (*model.UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}

	user, err := s.users.UpdateProfile(ctx, userID, name, image)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.UpdateProfile: %w", err)
	}
	p := user.Profile()
	return &p, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next, confirm string) error {
	const op = "service.UserService.ChangePassword"

	if current == "" || next == "" || confirm == "" {
		return invalid("current password, new password and confirmation are required")
	}
	if next != confirm {
		return invalid("new password and confirmation do not match")
	}
	if len(next) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !user.HasPassword() {
		return ErrPasswordlessAccount
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return ErrWrongPassword
	}

	hashed, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("password changed", slog.String("op", op), slog.Int64("user_id", user.ID))
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword emails a single-use reset link. Unknown addresses succeed
// silently so the endpoint cannot be used to enumerate accounts.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	const op = "service.UserService.ForgotPassword"
	log := s.log.With(slog.String("op", op))

	email = normalizeEmail(email)
	if email == "" {
		return invalid("email is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Info("reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !user.HasPassword() {
		return ErrPasswordlessAccount
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	token := hex.EncodeToString(buf)

	if err := s.users.SetResetToken(ctx, user.ID, hashResetToken(token), s.now().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link := fmt.Sprintf("%s/%s/reset-password?token=%s", s.appURL, s.locale, token)
	msg, err := mailer.PasswordReset(user.Email, link)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	const op = "service.UserService.ResetPassword"

	if token == "" || password == "" {
		return invalid("token and password are required")
	}
	if len(password) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.ResetPassword(ctx, hashResetToken(token), hashed, s.now()); err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers returns one page of users matching the search.
func (s *UserService) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.UserProfile, model.PageMeta, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	filter.Limit = min(filter.Limit, maxPageSize)

	users, total, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("service.UserService.ListUsers: %w", err)
	}

	out := make([]model.UserProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	return out, model.NewPageMeta(total, filter.Page, filter.Limit), nil
}

// SetRole changes a user's role. Only admins may change roles and only a
// super admin may grant SUPER_ADMIN or touch a super admin's account. Tokens
// carry the role, so the target's sessions are revoked on change.
func (s *UserService) SetRole(ctx context.Context, actor model.Role, userID int64, role model.Role) error {
	const op = "service.UserService.SetRole"

	if !role.Valid() {
		return invalid("unknown role %q", role)
	}
	if actor.Rank() < model.RoleAdmin.Rank() {
		return ErrForbidden
	}
	if role == model.RoleSuperAdmin && actor != model.RoleSuperAdmin {
		return ErrForbidden
	}

	target, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if target.Role == model.RoleSuperAdmin && actor != model.RoleSuperAdmin {
		return ErrForbidden
	}

	if err := s.changeRole(ctx, target, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("role changed", slog.String("op", op), slog.Int64("user_id", userID), slog.String("role", string(role)))
	return nil
}

func (s *UserService) changeRole(ctx context.Context, user *model.User, role model.Role) error {
	if user.Role == role {
		return nil
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return err
	}
	if err := s.sessions.RevokeUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	user.Role = role
	return nil
}

// CreateAdmin creates a SUPER_ADMIN or promotes and resets an existing account.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	const op = "service.UserService.CreateAdmin"

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.UpsertSuperAdmin(ctx, strings.TrimSpace(name), email, hashed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *UserService) SetRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error) {
	const op = "service.UserService.SetRoleByEmail"

	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.changeRole(ctx, user, role); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
