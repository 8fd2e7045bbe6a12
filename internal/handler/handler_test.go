package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"input", &service.InputError{Msg: "cnpj and name are required"}, http.StatusBadRequest, "cnpj and name are required"},
		{"upstream", &service.UpstreamError{Service: "pdvlegal", Msg: "invalid_grant"}, http.StatusBadGateway, "pdvlegal: invalid_grant"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, service.ErrInvalidCredentials.Error()},
		{"throttled", service.ErrTooManyAttempts, http.StatusTooManyRequests, service.ErrTooManyAttempts.Error()},
		{"duplicate", fmt.Errorf("op: %w", repository.ErrDuplicateEmail), http.StatusConflict, service.ErrEmailTaken.Error()},
		{"wrapped not found", fmt.Errorf("service.UserService.Profile: %w", repository.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{"not configured", service.ErrNotConfigured, http.StatusNotFound, service.ErrNotConfigured.Error()},
		{"reconnect", service.ErrReconnect, http.StatusUnauthorized, service.ErrReconnect.Error()},
		{"bad code", service.ErrInvalidCode, http.StatusBadRequest, service.ErrInvalidCode.Error()},
		{"method not enabled", service.ErrMethodNotEnabled, http.StatusBadRequest, service.ErrMethodNotEnabled.Error()},
		{"unexpected", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := statusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "backoffice_http_request_duration_seconds")
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/user/profile", "/company", "/licenses", "/integrations/pdvlegal/config", "/integrations/contaazul/status"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "", nil).Code, path)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	w := f.do(t, http.MethodPut, "/user/profile", token, map[string]any{"name": "Ana Maria", "image": "https://img.example.com/a.png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ana Maria", decode[model.UserProfile](t, w).Name)

	w = f.do(t, http.MethodPut, "/user/profile", token, map[string]any{"name": "Ana"})
	profile := decode[model.UserProfile](t, w)
	assert.Equal(t, "https://img.example.com/a.png", profile.Image, "image kept when omitted")

	w = f.do(t, http.MethodPut, "/user/change-password", token, map[string]string{
		"currentPassword": "wrong-password", "newPassword": "password456", "confirmPassword": "password456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/user/change-password", token, map[string]string{
		"currentPassword": "password123", "newPassword": "password456", "confirmPassword": "password456",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUserHandler_ForgotAndReset(t *testing.T) {
	f := newFixture(t)
	f.token(t, "ana@example.com", model.RoleAttendant)

	w := f.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.mail.Sent())

	w = f.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	html := f.mail.Last().HTML
	i := strings.Index(html, "token=")
	require.NotEqual(t, -1, i, html)
	token := html[i+len("token="):]
	token = token[:strings.IndexAny(token, `"&<`)]

	w = f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "password": "password456"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "password": "password789"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "token is single use")

	w = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "password456"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserHandler_AdminRoutes(t *testing.T) {
	f := newFixture(t)
	attendant := f.token(t, "ana@example.com", model.RoleAttendant)
	admin := f.token(t, "admin@example.com", model.RoleAdmin)
	super := f.token(t, "root@example.com", model.RoleSuperAdmin)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/users", attendant, nil).Code)

	w := f.do(t, http.MethodGet, "/users?search=ANA&page=1&limit=10", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[UserListResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "ana@example.com", list.Data[0].Email)
	assert.Equal(t, 1, list.Meta.LastPage)

	id := list.Data[0].ID
	path := fmt.Sprintf("/users/%d/role", id)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, admin, map[string]string{"role": "SUPER_ADMIN"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, path, admin, map[string]string{"role": "OWNER"}).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPut, path, admin, map[string]string{"role": "ADMIN"}).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPut, path, super, map[string]string{"role": "SUPER_ADMIN"}).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, admin, map[string]string{"role": "ATENDENTE"}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/users/999/role", super, map[string]string{"role": "ADMIN"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/users/abc/role", super, map[string]string{"role": "ADMIN"}).Code)
}

func TestCompanyHandler(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	w := f.do(t, http.MethodGet, "/company", token, nil)
	assert.Equal(t, EmptyResponse{Empty: true}, decode[EmptyResponse](t, w))

	w = f.do(t, http.MethodPost, "/company", token, map[string]string{"cnpj": "12.345.678/0001-90"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/company", token, map[string]string{"cnpj": "12.345.678/0001-90", "name": "Loja Ltda"})
	require.Equal(t, http.StatusCreated, w.Code)
	saved := decode[struct {
		Success bool          `json:"success"`
		Data    model.Company `json:"data"`
	}](t, w)
	assert.True(t, saved.Success)
	assert.Equal(t, "12345678000190", saved.Data.CNPJ)

	w = f.do(t, http.MethodGet, "/company", token, nil)
	assert.Equal(t, "Loja Ltda", decode[model.Company](t, w).Name)

	assert.Len(t, decode[[]model.Company](t, f.do(t, http.MethodGet, "/companies", token, nil)), 1)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/companies/%d", saved.Data.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/companies/999", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/companies/abc", token, nil).Code)
}

func TestPdvHandler(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	assert.Equal(t, EmptyResponse{Empty: true}, decode[EmptyResponse](t, f.do(t, http.MethodGet, "/integrations/pdvlegal/config", token, nil)))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/integrations/pdvlegal/auth", token, nil).Code)

	proxy := map[string]string{"integration": "pdvlegal", "endpoint": "licenciamento/minhaslicencas/1"}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/integrations/pdvlegal/proxy", token, proxy).Code)

	cfg := map[string]string{"username": "loja", "password": "wrong", "client_id": "id", "client_secret": "shh"}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/integrations/pdvlegal/config", token, cfg).Code)

	w := f.do(t, http.MethodPost, "/integrations/pdvlegal/auth", token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "invalid_grant")

	cfg["password"] = "secret"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/integrations/pdvlegal/config", token, cfg).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/integrations/pdvlegal/auth", token, nil).Code)

	assert.Equal(t, ConnectionStatus{Connected: true}, decode[ConnectionStatus](t, f.do(t, http.MethodGet, "/integrations/pdvlegal/auth", token, nil)))

	masked := decode[map[string]any](t, f.do(t, http.MethodGet, "/integrations/pdvlegal/config", token, nil))
	assert.Equal(t, "********", masked["password"])
	assert.Equal(t, "********", masked["client_secret"])

	w = f.do(t, http.MethodPost, "/integrations/pdvlegal/proxy", token, proxy)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":200,"data":{"endpoint":"licenciamento/minhaslicencas/1"}}`, w.Body.String())

	proxy["integration"] = "other"
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/integrations/pdvlegal/proxy", token, proxy).Code)
}

func TestLicenseHandler(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/licenses/sync", token, nil).Code)

	f.do(t, http.MethodPost, "/integrations/pdvlegal/config", token, map[string]string{"username": "loja", "password": "secret", "client_id": "id", "client_secret": "shh"})
	f.do(t, http.MethodPost, "/integrations/pdvlegal/auth", token, nil)

	w := f.do(t, http.MethodPost, "/licenses/sync", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[service.LicenseSyncResult](t, w)
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, 1, res.Branches)

	list := decode[LicenseListResponse](t, f.do(t, http.MethodGet, "/licenses?search=matriz", token, nil))
	require.Len(t, list.Data, 1)
	assert.Equal(t, 10, list.Data[0].CodFilial)

	stats := decode[model.LicenseStats](t, f.do(t, http.MethodGet, "/licenses/stats", token, nil))
	assert.Equal(t, 1, stats.Ativas)
}

func TestLicenseHandler_SyncOutlivesWriteTimeout(t *testing.T) {
	f := newFixtureWithPdv(t, fakePdv{delay: 150 * time.Millisecond})
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	f.do(t, http.MethodPost, "/integrations/pdvlegal/config", token, map[string]string{"username": "loja", "password": "secret", "client_id": "id", "client_secret": "shh"})
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/integrations/pdvlegal/auth", token, nil).Code)

	srv := httptest.NewUnstartedServer(f.router)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/licenses/sync", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res service.LicenseSyncResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, 1, res.Branches)
}

func TestContaAzulHandler(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "ana@example.com", model.RoleAttendant)

	w := f.do(t, http.MethodGet, "/integrations/contaazul/connect?empresaId=1", token, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "state=1")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/integrations/contaazul/connect", token, nil).Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/integrations/contaazul/callback?code=abc&state=x", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/integrations/contaazul/callback?code=abc&state=42", "", nil).Code)

	w = f.do(t, http.MethodGet, "/integrations/contaazul/callback?code=abc&state=1", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testAppURL+"/app/empresas/config?success=true", w.Header().Get("Location"))

	status := decode[ConnectionStatus](t, f.do(t, http.MethodGet, "/integrations/contaazul/status?empresaId=1", token, nil))
	assert.True(t, status.Connected)

	w = f.do(t, http.MethodPost, "/integrations/contaazul/sync/customers", token, map[string]int{"empresaId": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.SyncResult{Job: service.JobCustomers, Processed: 1, Saved: 1}, decode[model.SyncResult](t, w))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/integrations/contaazul/sync/invoices", token, map[string]int{"empresaId": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/integrations/contaazul/sync/receivables", token, nil).Code)

	w = f.do(t, http.MethodGet, "/integrations/contaazul/receivables?empresaId=1&date=2025-03", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/integrations/contaazul/sales-summary?empresaId=1&date=march", token, nil).Code)
	w = f.do(t, http.MethodGet, "/integrations/contaazul/sales-summary?empresaId=1", token, nil)
	assert.JSONEq(t, `{"aReceber":0,"atrasado":0,"recebidoMes":0}`, w.Body.String())
}
