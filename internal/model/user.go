package model

import "time"

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleAttendant  Role = "ATENDENTE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleAttendant:
		return true
	}
	return false
}

// Rank orders roles by privilege. Unknown roles rank lowest.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleAttendant:
		return 1
	}
	return 0
}

type TwoFactorMethod string

const (
	TwoFactorApp   TwoFactorMethod = "APP"
	TwoFactorEmail TwoFactorMethod = "EMAIL"
)

type User struct {
	ID       int64
	Name     string
	Email    string
	Password string // hashed, empty for social-only accounts
	Image    string
	Role     Role

	TwoFactorEnabled      bool
	TwoFactorAppEnabled   bool
	TwoFactorEmailEnabled bool
	TwoFactorSecret       string
	BackupCodes           []string // sha256 hashes

	GoogleSubject string
	LastLogin     *time.Time
	Created       time.Time
	Updated       time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// TwoFactorMethods lists the second factors the user must satisfy at login.
// Inconsistent flags (master switch on, no method) fall back to APP.
func (u *User) TwoFactorMethods() []TwoFactorMethod {
	if !u.TwoFactorEnabled {
		return nil
	}
	var methods []TwoFactorMethod
	if u.TwoFactorAppEnabled {
		methods = append(methods, TwoFactorApp)
	}
	if u.TwoFactorEmailEnabled {
		methods = append(methods, TwoFactorEmail)
	}
	if len(methods) == 0 {
		methods = append(methods, TwoFactorApp)
	}
	return methods
}

// HasTwoFactorMethod reports whether m is one of the user's login factors.
func (u *User) HasTwoFactorMethod(m TwoFactorMethod) bool {
	for _, have := range u.TwoFactorMethods() {
		if have == m {
			return true
		}
	}
	return false
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Image            string            `json:"image,omitempty"`
	Role             Role              `json:"role"`
	TwoFactorEnabled bool              `json:"twoFactorEnabled"`
	TwoFactorMethods []TwoFactorMethod `json:"twoFactorMethods,omitempty"`
	HasPassword      bool              `json:"hasPassword"`
	Created          time.Time         `json:"createdAt"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Image:            u.Image,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		TwoFactorMethods: u.TwoFactorMethods(),
		HasPassword:      u.HasPassword(),
		Created:          u.Created,
	}
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

// PageMeta describes a page of a listing.
type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

// NewPageMeta computes the last page, which is never below 1.
func NewPageMeta(total, page, limit int) PageMeta {
	last := 1
	if limit > 0 && total > 0 {
		last = (total + limit - 1) / limit
	}
	return PageMeta{Total: total, Page: page, LastPage: last}
}
