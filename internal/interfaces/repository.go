package interfaces

import (
	"context"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (*model.User, error)
	UpsertSuperAdmin(ctx context.Context, name, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
	ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	UpdateProfile(ctx context.Context, userID int64, name string, image *string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateRole(ctx context.Context, userID int64, role model.Role) error
	LinkGoogleAccount(ctx context.Context, userID int64, subject, image string) error
	UpdateLastLogin(ctx context.Context, userID int64) error

	SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}

// SessionRepository tracks issued tokens by their jti.
type SessionRepository interface {
	CreateSession(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, tokenID string) error
	RevokeUserSessions(ctx context.Context, userID int64) error
	IsSessionValid(ctx context.Context, tokenID string) (bool, error)
}

// TwoFactorRepository stores second-factor state on users and emailed codes.
type TwoFactorRepository interface {
	SetTwoFactorSecret(ctx context.Context, userID int64, secret string) error
	EnableTwoFactor(ctx context.Context, userID int64, method model.TwoFactorMethod, backupCodeHashes []string) error
	DisableTwoFactor(ctx context.Context, userID int64) error
	SetBackupCodes(ctx context.Context, userID int64, hashes []string) error
	ConsumeBackupCode(ctx context.Context, userID int64, hash string) (bool, error)

	SaveEmailToken(ctx context.Context, email, token string, expiresAt time.Time) error
	GetEmailToken(ctx context.Context, email string) (*model.TwoFactorToken, error)
	DeleteEmailToken(ctx context.Context, email string) error
}

type CompanyRepository interface {
	UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error)
	FirstCompany(ctx context.Context) (*model.Company, error)
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
}

type PdvRepository interface {
	GetPdvConfig(ctx context.Context) (*model.PdvIntegration, error)
	SavePdvConfig(ctx context.Context, cfg model.PdvIntegration) (*model.PdvIntegration, error)
	SetPdvAccessToken(ctx context.Context, id int64, token string) error
}

type LicenseRepository interface {
	UpsertLicenseGroup(ctx context.Context, g model.LicenseGroup) (int64, error)
	UpsertLicenseBranch(ctx context.Context, b model.LicenseBranch) error
	ListHeadOffices(ctx context.Context, filter model.LicenseFilter) ([]model.LicenseBranch, int, error)
	CountActiveBranches(ctx context.Context, excludedProducts []string) (int, error)
	CountInactiveBranches(ctx context.Context) (int, error)
	BranchProducts(ctx context.Context, sistema string) ([]model.BranchProduct, error)
}

type ContaAzulRepository interface {
	GetContaAzulIntegration(ctx context.Context, companyID int64) (*model.ContaAzulIntegration, error)
	SaveContaAzulIntegration(ctx context.Context, in model.ContaAzulIntegration) error
	UpsertCustomer(ctx context.Context, c model.ContaAzulCustomer) error
	AttachContract(ctx context.Context, c model.ContaAzulContract) error
	UpsertReceivable(ctx context.Context, r model.ContaAzulReceivable) error
	ReceivablesDueBetween(ctx context.Context, companyID int64, from, to time.Time) ([]model.ContaAzulReceivable, error)
	Receivables(ctx context.Context, companyID int64) ([]model.ContaAzulReceivable, error)
}

// EventRepository is the outbox of domain events.
type EventRepository interface {
	SaveEvent(ctx context.Context, eventType, payload string) error
	NewEvents(ctx context.Context, limit int) ([]model.Event, error)
	SetEventDone(ctx context.Context, id uuid.UUID) error
}
