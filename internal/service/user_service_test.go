package service

import (
	"context"
	"net/url"
	"regexp"
	"testing"

	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/test"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserService, *authFixture, *test.MockMailer) {
	t.Helper()
	f := newAuthFixture(t)
	mail := &test.MockMailer{}
	return NewUserService(logger.Discard(), f.users, f.users, mail, "https://admin.example.com/", "pt_BR"), f, mail
}

func TestUserService_Profile(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()
	user := f.register(t, "ana@example.com")

	p, err := svc.UpdateProfile(ctx, user.ID, " Ana Maria ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", p.Name)
	assert.Empty(t, p.Image)

	image := "https://img/ana.png"
	p, err = svc.UpdateProfile(ctx, user.ID, "Ana", &image)
	require.NoError(t, err)
	assert.Equal(t, image, p.Image)

	p, err = svc.UpdateProfile(ctx, user.ID, "Ana", nil)
	require.NoError(t, err)
	assert.Equal(t, image, p.Image, "image is kept when not provided")

	_, err = svc.UpdateProfile(ctx, user.ID, "  ", nil)
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)

	_, err = svc.Profile(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()
	user := f.register(t, "ana@example.com")

	tests := []struct {
		name    string
		current string
		next    string
		confirm string
		wantErr error
		input   bool
	}{
		{name: "missing field", current: "password123", next: "newpassword", input: true},
		{name: "mismatch", current: "password123", next: "newpassword", confirm: "otherpassword", input: true},
		{name: "too short", current: "password123", next: "short", confirm: "short", input: true},
		{name: "wrong current", current: "wrongpass", next: "newpassword", confirm: "newpassword", wantErr: ErrWrongPassword},
		{name: "success", current: "password123", next: "newpassword", confirm: "newpassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, user.ID, tt.current, tt.next, tt.confirm)
			switch {
			case tt.input:
				var inputErr *InputError
				assert.ErrorAs(t, err, &inputErr)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}

	_, err := f.auth.Login(ctx, "ana@example.com", "newpassword")
	assert.NoError(t, err)

	social, err := f.users.CreateUser(ctx, "Social", "social@example.com", "", model.RoleAttendant)
	require.NoError(t, err)
	err = svc.ChangePassword(ctx, social.ID, "whatever1", "newpassword", "newpassword")
	assert.ErrorIs(t, err, ErrPasswordlessAccount)
}

var tokenPattern = regexp.MustCompile(`href="([^"]+)"`)

func TestUserService_PasswordReset(t *testing.T) {
	svc, f, mail := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com")

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, mail.Sent(), "unknown email gets no message")

	require.NoError(t, svc.ForgotPassword(ctx, "ana@example.com"))
	m := tokenPattern.FindStringSubmatch(mail.Last().HTML)
	require.Len(t, m, 2)

	link, err := url.Parse(m[1])
	require.NoError(t, err)
	assert.Equal(t, "admin.example.com", link.Host)
	assert.Equal(t, "/pt_BR/reset-password", link.Path)
	token := link.Query().Get("token")
	assert.Len(t, token, 64)

	err = svc.ResetPassword(ctx, "not-the-token", "brandnewpass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	require.NoError(t, svc.ResetPassword(ctx, token, "brandnewpass"))
	_, err = f.auth.Login(ctx, "ana@example.com", "brandnewpass")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "anotherpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "token is single use")

	require.NoError(t, svc.ForgotPassword(ctx, "ana@example.com"))
	f.users.ExpireResetTokens()
	link, _ = url.Parse(tokenPattern.FindStringSubmatch(mail.Last().HTML)[1])
	err = svc.ResetPassword(ctx, link.Query().Get("token"), "anotherpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = f.users.CreateUser(ctx, "Social", "social@example.com", "", model.RoleAttendant)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ForgotPassword(ctx, "social@example.com"), ErrPasswordlessAccount)
}

func TestUserService_ListUsers(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := f.users.CreateUser(ctx, gofakeit.Name(), gofakeit.Email(), "hash", model.RoleAttendant)
		require.NoError(t, err)
	}
	_, err := f.users.CreateUser(ctx, "Zélia Qwertyuiop", "zq@example.com", "hash", model.RoleAdmin)
	require.NoError(t, err)

	users, meta, err := svc.ListUsers(ctx, model.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 10)
	assert.Equal(t, model.PageMeta{Total: 13, Page: 1, LastPage: 2}, meta)

	users, meta, err = svc.ListUsers(ctx, model.UserFilter{Search: "QWERTYUIOP"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "zq@example.com", users[0].Email)
	assert.Equal(t, 1, meta.LastPage)
}

func TestUserService_SetRole(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()
	target := f.register(t, "ana@example.com")

	tests := []struct {
		name    string
		actor   model.Role
		role    model.Role
		wantErr error
		input   bool
	}{
		{name: "attendant cannot change roles", actor: model.RoleAttendant, role: model.RoleAdmin, wantErr: ErrForbidden},
		{name: "admin cannot grant super admin", actor: model.RoleAdmin, role: model.RoleSuperAdmin, wantErr: ErrForbidden},
		{name: "unknown role", actor: model.RoleSuperAdmin, role: "ROOT", input: true},
		{name: "admin grants admin", actor: model.RoleAdmin, role: model.RoleAdmin},
		{name: "super admin grants super admin", actor: model.RoleSuperAdmin, role: model.RoleSuperAdmin},
		{name: "admin cannot demote super admin", actor: model.RoleAdmin, role: model.RoleAttendant, wantErr: ErrForbidden},
		{name: "super admin demotes super admin", actor: model.RoleSuperAdmin, role: model.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetRole(ctx, tt.actor, target.ID, tt.role)
			switch {
			case tt.input:
				var inputErr *InputError
				assert.ErrorAs(t, err, &inputErr)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				u, _ := f.users.GetUserByID(ctx, target.ID)
				assert.Equal(t, tt.role, u.Role)
			}
		})
	}
}

func TestUserService_SetRoleRevokesSessions(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()
	target := f.register(t, "ana@example.com")
	other := f.register(t, "bia@example.com")

	session, err := f.auth.Login(ctx, target.Email, "password123")
	require.NoError(t, err)
	otherSession, err := f.auth.Login(ctx, other.Email, "password123")
	require.NoError(t, err)

	t.Run("unchanged role keeps sessions", func(t *testing.T) {
		require.NoError(t, svc.SetRole(ctx, model.RoleAdmin, target.ID, target.Role))
		_, err := f.auth.ValidateToken(ctx, session.Token)
		assert.NoError(t, err)
	})

	t.Run("role change revokes only the target", func(t *testing.T) {
		require.NoError(t, svc.SetRole(ctx, model.RoleAdmin, target.ID, model.RoleAdmin))

		_, err := f.auth.ValidateToken(ctx, session.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = f.auth.ValidateToken(ctx, otherSession.Token)
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := svc.SetRole(ctx, model.RoleSuperAdmin, 9999, model.RoleAdmin)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestUserService_AdminCommands(t *testing.T) {
	svc, f, _ := newUserFixture(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "", "Root@Example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, admin.Role)
	assert.Equal(t, "root@example.com", admin.Email)

	again, err := svc.CreateAdmin(ctx, "Root", "root@example.com", "anothersecret")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = f.auth.Login(ctx, "root@example.com", "anothersecret")
	assert.NoError(t, err)

	session, err := f.auth.Login(ctx, "root@example.com", "anothersecret")
	require.NoError(t, err)

	updated, err := svc.SetRoleByEmail(ctx, "root@example.com", model.RoleAttendant)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAttendant, updated.Role)

	_, err = f.auth.ValidateToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SetRoleByEmail(ctx, "ghost@example.com", model.RoleAdmin)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
