package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/integration/google"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
)

// Claims are carried by every session token.
type Claims struct {
	UserID           int64                   `json:"uid"`
	Email            string                  `json:"email"`
	Role             model.Role              `json:"role"`
	TwoFactorPending bool                    `json:"two_factor_pending,omitempty"`
	TwoFactorMethods []model.TwoFactorMethod `json:"two_factor_methods,omitempty"`
	jwt.RegisteredClaims
}

// Session is a freshly issued token.
type Session struct {
	Token            string                  `json:"token"`
	ExpiresAt        time.Time               `json:"expiresAt"`
	User             model.UserProfile       `json:"user"`
	TwoFactorPending bool                    `json:"requiresTwoFactor"`
	TwoFactorMethods []model.TwoFactorMethod `json:"twoFactorMethods,omitempty"`
}

// GoogleProvider runs the Google authorization code flow.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.Profile, error)
}

type AuthService struct {
	log      *slog.Logger
	users    interfaces.UserRepository
	sessions interfaces.SessionRepository
	limiter  *ratelimit.Limiter
	google   GoogleProvider
	events   *events.Recorder
	metrics  *metrics.Metrics

	jwtSecret   []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	log *slog.Logger,
	users interfaces.UserRepository,
	sessions interfaces.SessionRepository,
	limiter *ratelimit.Limiter,
	jwtSecret string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		log:         log,
		users:       users,
		sessions:    sessions,
		limiter:     limiter,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenTTL,
		now:         time.Now,
	}
}

func (s *AuthService) WithGoogle(p GoogleProvider) *AuthService {
	s.google = p
	return s
}

func (s *AuthService) WithEvents(r *events.Recorder) *AuthService {
	s.events = r
	return s
}

func (s *AuthService) WithMetrics(m *metrics.Metrics) *AuthService {
	s.metrics = m
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Register creates a new ATENDENTE account with a hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	const op = "service.AuthService.Register"
	log := s.log.With(slog.String("op", op))

	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, invalid("name, email and password are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, name, email, hashed, model.RoleAttendant)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("user_id", user.ID))
	s.events.Record(ctx, model.EventUserRegistered, map[string]any{"id": user.ID, "email": user.Email, "source": "password"})

	return user, nil
}

// Login authenticates a user and issues a session. Accounts with 2FA get a
// pending session that only unlocks the second-factor endpoints.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "service.AuthService.Login"
	log := s.log.With(slog.String("op", op))

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	allowed, err := s.limiter.Allow(ctx, ratelimit.LoginKey(email), ratelimit.LoginRule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !allowed {
		s.metrics.LoginAttempt("throttled")
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.LoginAttempt("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.HasPassword() || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		s.metrics.LoginAttempt("failure")
		log.Info("invalid credentials", slog.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if err := s.limiter.Clear(ctx, ratelimit.LoginKey(email)); err != nil {
		log.Warn("failed to clear login limiter", sl.Err(err))
	}

	return s.completeLogin(ctx, user)
}

func (s *AuthService) completeLogin(ctx context.Context, user *model.User) (*Session, error) {
	const op = "service.AuthService.completeLogin"

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pending := user.TwoFactorEnabled
	if pending {
		s.metrics.LoginAttempt("two_factor_pending")
	} else {
		s.metrics.LoginAttempt("success")
	}
	return s.IssueToken(ctx, user, pending)
}

// IssueToken signs a token for the user and records its session.
func (s *AuthService) IssueToken(ctx context.Context, user *model.User, twoFactorPending bool) (*Session, error) {
	const op = "service.AuthService.IssueToken"

	now := s.now()
	expiresAt := now.Add(s.tokenExpiry)
	claims := Claims{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorPending: twoFactorPending,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if twoFactorPending {
		claims.TwoFactorMethods = user.TwoFactorMethods()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sessions.CreateSession(ctx, user.ID, claims.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Session{
		Token:            signed,
		ExpiresAt:        expiresAt,
		User:             user.Profile(),
		TwoFactorPending: twoFactorPending,
		TwoFactorMethods: claims.TwoFactorMethods,
	}, nil
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken validates a JWT token and returns the user claims
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	valid, err := s.sessions.IsSessionValid(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("service.AuthService.ValidateToken: %w", err)
	}
	if !valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the user's token
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.ValidateToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return ErrInvalidToken
		}
		return err
	}
	return s.RevokeSession(ctx, claims.ID)
}

func (s *AuthService) RevokeSession(ctx context.Context, tokenID string) error {
	if err := s.sessions.RevokeSession(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("service.AuthService.RevokeSession: %w", err)
	}
	return nil
}

// GoogleAuthURL is where the browser goes to pick a Google account.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// LoginWithGoogle finishes Google sign-in. The account is matched by email and
// created without a password when missing.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code string) (*Session, error) {
	const op = "service.AuthService.LoginWithGoogle"
	log := s.log.With(slog.String("op", op))

	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	if code == "" {
		return nil, invalid("missing authorization code")
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		log.Warn("google exchange failed", sl.Err(err))
		return nil, &UpstreamError{Service: "google", Msg: "could not complete google sign-in", Err: err}
	}

	email := normalizeEmail(profile.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = email
		}
		user, err = s.users.CreateUser(ctx, name, email, "", model.RoleAttendant)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("user created from google", slog.Int64("user_id", user.ID))
		s.events.Record(ctx, model.EventUserRegistered, map[string]any{"id": user.ID, "email": user.Email, "source": "google"})
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.GoogleSubject != profile.Subject {
		if err := s.users.LinkGoogleAccount(ctx, user.ID, profile.Subject, profile.Picture); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s.completeLogin(ctx, user)
}
