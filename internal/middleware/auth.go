package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

type contextKey struct{}

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.Claims, error)
}

// BearerToken extracts the JWT from the Authorization header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a valid session and stores the claims
// in the request context.
func Authenticate(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, "No token provided", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateToken(r.Context(), token)
			switch {
			case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrInvalidToken):
				writeError(w, err.Error(), http.StatusUnauthorized)
				return
			case err != nil:
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireTwoFactorComplete blocks sessions still waiting for their second factor.
func RequireTwoFactorComplete(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, "No token provided", http.StatusUnauthorized)
			return
		}
		if claims.TwoFactorPending {
			writeError(w, "Two-factor verification required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through users whose role ranks at least min.
func RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, "No token provided", http.StatusUnauthorized)
				return
			}
			if claims.Role.Rank() < min.Rank() {
				writeError(w, service.ErrForbidden.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *service.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*service.Claims)
	return claims, ok && claims != nil
}
