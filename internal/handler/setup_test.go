package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/integration/contaazul"
	"github.com/Stewz00/go-backoffice-service/internal/integration/google"
	"github.com/Stewz00/go-backoffice-service/internal/integration/pdvlegal"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/Stewz00/go-backoffice-service/internal/test"
)

const testAppURL = "https://admin.example.com"

type fakeGoogle struct{}

func (fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (fakeGoogle) Exchange(_ context.Context, code string) (*google.Profile, error) {
	if code != "good" {
		return nil, errors.New("invalid_grant")
	}
	return &google.Profile{Subject: "g-1", Email: "google@example.com", EmailVerified: true, Name: "Gui"}, nil
}

type fakePdv struct {
	delay time.Duration
}

func (fakePdv) Authenticate(_ context.Context, cred pdvlegal.Credentials) (string, error) {
	if cred.Password != "secret" {
		return "", &pdvlegal.StatusError{StatusCode: 400, Description: "invalid_grant"}
	}
	return "pdv-token", nil
}

func (p fakePdv) Licenses(_ context.Context, _ string, page int) ([]pdvlegal.Group, error) {
	time.Sleep(p.delay)
	if page > 1 {
		return nil, pdvlegal.ErrNoMorePages
	}
	produto := "PDV LEGAL"
	return []pdvlegal.Group{{CodGrupo: 1, NomeGrupo: "Loja", Ativo: true, Produto: &produto, Filiais: []pdvlegal.Branch{{CodFilial: 10, NomeFilial: "Matriz", Ativo: true, Matriz: true}}}}, nil
}

func (fakePdv) Get(_ context.Context, _, endpoint string) (*pdvlegal.ProxyResponse, error) {
	return &pdvlegal.ProxyResponse{Status: http.StatusOK, Data: map[string]string{"endpoint": endpoint}}, nil
}

type fakeContaAzul struct{}

func (fakeContaAzul) AuthCodeURL(state string) string {
	return "https://auth.contaazul.example.com/login?state=" + state
}

func (fakeContaAzul) Exchange(_ context.Context, code string) (*contaazul.Token, error) {
	return &contaazul.Token{AccessToken: "ca-" + code, RefreshToken: "r", ExpiresIn: 3600}, nil
}

func (fakeContaAzul) Refresh(_ context.Context, rt string) (*contaazul.Token, error) {
	return &contaazul.Token{AccessToken: "ca-refreshed", RefreshToken: rt, ExpiresIn: 3600}, nil
}

func (fakeContaAzul) Customers(_ context.Context, _ string, page, _ int) ([]contaazul.Customer, error) {
	if page > 1 {
		return nil, nil
	}
	return []contaazul.Customer{{ID: "c1", Nome: "Ana"}}, nil
}

func (fakeContaAzul) Contracts(context.Context, string, int, int, string, string) ([]contaazul.Contract, error) {
	return nil, nil
}

func (fakeContaAzul) Receivables(context.Context, string, int, int, string, string) ([]contaazul.Receivable, error) {
	return nil, nil
}

type fixture struct {
	router    http.Handler
	auth      *service.AuthService
	users     *test.MockUserRepository
	mail      *test.MockMailer
	contaAzul *test.MockContaAzulRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPdv(t, fakePdv{})
}

func newFixtureWithPdv(t *testing.T, pdv fakePdv) *fixture {
	t.Helper()

	log := logger.Discard()
	m := metrics.New()
	users := test.NewMockUserRepository()
	limiter := ratelimit.NewLimiter(test.NewMockRateLimitStore(), m)
	mail := &test.MockMailer{}

	auth := service.NewAuthService(log, users, users, limiter, "test-secret", time.Hour).
		WithGoogle(fakeGoogle{}).
		WithMetrics(m)
	userSvc := service.NewUserService(log, users, users, mail, testAppURL, "pt_BR")
	twoFactor := service.NewTwoFactorService(log, users, users, auth, limiter, mail, "Admin Panel")

	pdvRepo := test.NewMockPdvRepository()
	caRepo := test.NewMockContaAzulRepository(1)

	h := Handlers{
		Log:       log,
		Auth:      NewAuthHandler(log, auth, userSvc, testAppURL),
		TwoFactor: NewTwoFactorHandler(log, twoFactor),
		User:      NewUserHandler(log, userSvc),
		Company:   NewCompanyHandler(log, service.NewCompanyService(test.NewMockCompanyRepository())),
		Pdv:       NewPdvHandler(log, service.NewPdvService(log, pdvRepo, pdv)),
		License:   NewLicenseHandler(log, service.NewLicenseService(log, test.NewMockLicenseRepository(), pdvRepo, pdv, 0)),
		ContaAzul: NewContaAzulHandler(log, service.NewContaAzulService(log, caRepo, fakeContaAzul{}, config.SyncConfig{PageSize: 20}), testAppURL),
	}

	return &fixture{
		router:    NewRouter(h, auth, m),
		auth:      auth,
		users:     users,
		mail:      mail,
		contaAzul: caRepo,
	}
}

// token creates a user with the given role and returns a full session token.
func (f *fixture) token(t *testing.T, email string, role model.Role) string {
	t.Helper()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "Test User", email, "password123")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if role != model.RoleAttendant {
		if err := f.users.UpdateRole(ctx, user.ID, role); err != nil {
			t.Fatalf("failed to set role: %v", err)
		}
		user.Role = role
	}

	session, err := f.auth.IssueToken(ctx, user, false)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return session.Token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}
