package test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
)

// MockUserRepository keeps users, sessions and emailed codes in memory.
type MockUserRepository struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*model.User
	sessions map[string]bool
	owners   map[string]int64
	tokens   map[string]model.TwoFactorToken

	resetTokens map[string]resetToken
}

type resetToken struct {
	userID    int64
	expiresAt time.Time
}

var (
	_ interfaces.UserRepository      = (*MockUserRepository)(nil)
	_ interfaces.SessionRepository   = (*MockUserRepository)(nil)
	_ interfaces.TwoFactorRepository = (*MockUserRepository)(nil)
)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:       make(map[int64]*model.User),
		sessions:    make(map[string]bool),
		owners:      make(map[string]int64),
		tokens:      make(map[string]model.TwoFactorToken),
		resetTokens: make(map[string]resetToken),
	}
}

func (r *MockUserRepository) byEmail(email string) *model.User {
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.BackupCodes = append([]string(nil), u.BackupCodes...)
	return &c
}

// CreateUser mocks creating a new user
func (r *MockUserRepository) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byEmail(email) != nil {
		return nil, repository.ErrDuplicateEmail
	}

	r.nextID++
	now := time.Now()
	u := &model.User{
		ID:       r.nextID,
		Name:     name,
		Email:    email,
		Password: passwordHash,
		Role:     role,
		Created:  now,
		Updated:  now,
	}
	r.users[u.ID] = u
	return copyUser(u), nil
}

func (r *MockUserRepository) UpsertSuperAdmin(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	r.mu.Lock()
	u := r.byEmail(email)
	if u != nil {
		u.Name = name
		u.Password = passwordHash
		u.Role = model.RoleSuperAdmin
		out := copyUser(u)
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()
	return r.CreateUser(ctx, name, email, passwordHash, model.RoleSuperAdmin)
}

// GetUserByEmail mocks retrieving a user by email
func (r *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byEmail(email)
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *MockUserRepository) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *MockUserRepository) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []model.User
	for id := int64(1); id <= r.nextID; id++ {
		u, ok := r.users[id]
		if !ok {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, *copyUser(u))
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MockUserRepository) update(userID int64, fn func(u *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	u.Updated = time.Now()
	return nil
}

func (r *MockUserRepository) UpdateProfile(ctx context.Context, userID int64, name string, image *string) (*model.User, error) {
	err := r.update(userID, func(u *model.User) {
		u.Name = name
		if image != nil {
			u.Image = *image
		}
	})
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, userID)
}

func (r *MockUserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.update(userID, func(u *model.User) { u.Password = passwordHash })
}

func (r *MockUserRepository) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	return r.update(userID, func(u *model.User) { u.Role = role })
}

func (r *MockUserRepository) LinkGoogleAccount(ctx context.Context, userID int64, subject, image string) error {
	return r.update(userID, func(u *model.User) {
		u.GoogleSubject = subject
		if u.Image == "" {
			u.Image = image
		}
	})
}

// UpdateLastLogin mocks updating the last login time
func (r *MockUserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	return r.update(userID, func(u *model.User) {
		now := time.Now()
		u.LastLogin = &now
	})
}

func (r *MockUserRepository) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	for hash, t := range r.resetTokens {
		if t.userID == userID {
			delete(r.resetTokens, hash)
		}
	}
	r.resetTokens[tokenHash] = resetToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *MockUserRepository) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.resetTokens[tokenHash]
	if !ok || !t.expiresAt.After(now) {
		return repository.ErrResetTokenInvalid
	}
	delete(r.resetTokens, tokenHash)
	r.users[t.userID].Password = passwordHash
	return nil
}

// ExpireResetTokens moves every pending reset token into the past.
func (r *MockUserRepository) ExpireResetTokens() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, t := range r.resetTokens {
		t.expiresAt = time.Now().Add(-time.Minute)
		r.resetTokens[hash] = t
	}
}

// CreateSession mocks creating a new session
func (r *MockUserRepository) CreateSession(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[tokenID] = true
	r.owners[tokenID] = userID
	return nil
}

// RevokeSession mocks revoking a session
func (r *MockUserRepository) RevokeSession(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[tokenID]; !exists {
		return repository.ErrSessionNotFound
	}
	r.sessions[tokenID] = false
	return nil
}

// RevokeUserSessions mocks revoking every session of a user
func (r *MockUserRepository) RevokeUserSessions(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tokenID, owner := range r.owners {
		if owner == userID {
			r.sessions[tokenID] = false
		}
	}
	return nil
}

// IsSessionValid mocks checking if a session is valid
func (r *MockUserRepository) IsSessionValid(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[tokenID], nil
}

func (r *MockUserRepository) SetTwoFactorSecret(ctx context.Context, userID int64, secret string) error {
	return r.update(userID, func(u *model.User) { u.TwoFactorSecret = secret })
}

func (r *MockUserRepository) EnableTwoFactor(ctx context.Context, userID int64, method model.TwoFactorMethod, backupCodeHashes []string) error {
	return r.update(userID, func(u *model.User) {
		u.TwoFactorEnabled = true
		if method == model.TwoFactorEmail {
			u.TwoFactorEmailEnabled = true
			u.TwoFactorAppEnabled = false
		} else {
			u.TwoFactorAppEnabled = true
		}
		u.BackupCodes = append([]string(nil), backupCodeHashes...)
	})
}

func (r *MockUserRepository) DisableTwoFactor(ctx context.Context, userID int64) error {
	return r.update(userID, func(u *model.User) {
		u.TwoFactorEnabled = false
		u.TwoFactorAppEnabled = false
		u.TwoFactorEmailEnabled = false
		u.TwoFactorSecret = ""
		u.BackupCodes = nil
	})
}

func (r *MockUserRepository) SetBackupCodes(ctx context.Context, userID int64, hashes []string) error {
	return r.update(userID, func(u *model.User) { u.BackupCodes = append([]string(nil), hashes...) })
}

func (r *MockUserRepository) ConsumeBackupCode(ctx context.Context, userID int64, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	for i, h := range u.BackupCodes {
		if h == hash {
			u.BackupCodes = append(u.BackupCodes[:i:i], u.BackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MockUserRepository) SaveEmailToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[email] = model.TwoFactorToken{Email: email, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (r *MockUserRepository) GetEmailToken(ctx context.Context, email string) (*model.TwoFactorToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[email]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return &t, nil
}

func (r *MockUserRepository) DeleteEmailToken(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, email)
	return nil
}
