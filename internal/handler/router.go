package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/middleware"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// syncTimeout bounds the sync routes, which run well past the server WriteTimeout.
const syncTimeout = 5 * time.Minute

// Handlers groups everything the router serves.
type Handlers struct {
	Log       *slog.Logger
	Auth      *AuthHandler
	TwoFactor *TwoFactorHandler
	User      *UserHandler
	Company   *CompanyHandler
	Pdv       *PdvHandler
	License   *LicenseHandler
	ContaAzul *ContaAzulHandler
}

func NewRouter(h Handlers, auth middleware.TokenValidator, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(middleware.RateLimiter(m))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// Auth routes with strict rate limiting
	r.Group(func(r chi.Router) {
		r.Use(middleware.StrictRateLimiter(m))
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/forgot-password", h.User.ForgotPassword)
		r.Post("/auth/reset-password", h.User.ResetPassword)
	})

	// OAuth redirects
	r.Get("/auth/google/login", h.Auth.GoogleLogin)
	r.Get("/auth/google/callback", h.Auth.GoogleCallback)
	r.Get("/integrations/contaazul/callback", h.ContaAzul.Callback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(auth))

		// Reachable while the second factor is pending
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)
		r.Post("/auth/2fa/login-check", h.TwoFactor.LoginCheck)
		r.Post("/auth/2fa/email/send", h.TwoFactor.SendEmail)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTwoFactorComplete)

			r.Get("/auth/2fa/generate", h.TwoFactor.Generate)
			r.Post("/auth/2fa/verify", h.TwoFactor.Verify)
			r.Post("/auth/2fa/disable", h.TwoFactor.Disable)
			r.Post("/auth/2fa/email/verify", h.TwoFactor.VerifyEmail)
			r.Post("/auth/2fa/backup-codes", h.TwoFactor.RegenerateBackupCodes)

			r.Get("/user/profile", h.User.Profile)
			r.Put("/user/profile", h.User.UpdateProfile)
			r.Put("/user/change-password", h.User.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Get("/users", h.User.List)
				r.Put("/users/{id}/role", h.User.SetRole)
			})

			r.Post("/company", h.Company.Upsert)
			r.Get("/company", h.Company.First)
			r.Get("/companies", h.Company.List)
			r.Get("/companies/{id}", h.Company.Get)

			r.Post("/integrations/pdvlegal/config", h.Pdv.SaveConfig)
			r.Get("/integrations/pdvlegal/config", h.Pdv.Config)
			r.Post("/integrations/pdvlegal/auth", h.Pdv.Authenticate)
			r.Get("/integrations/pdvlegal/auth", h.Pdv.Status)
			r.Post("/integrations/pdvlegal/proxy", h.Pdv.Proxy)

			r.Get("/licenses", h.License.List)
			r.Get("/licenses/stats", h.License.Stats)
			r.With(middleware.LongRunning(h.Log, syncTimeout)).Post("/licenses/sync", h.License.Sync)

			r.Get("/integrations/contaazul/connect", h.ContaAzul.Connect)
			r.Get("/integrations/contaazul/status", h.ContaAzul.Status)
			r.Get("/integrations/contaazul/receivables", h.ContaAzul.Receivables)
			r.Get("/integrations/contaazul/sales-summary", h.ContaAzul.SalesSummary)
			r.With(middleware.LongRunning(h.Log, syncTimeout)).Post("/integrations/contaazul/sync/{job}", h.ContaAzul.Sync)
		})
	})

	return r
}
