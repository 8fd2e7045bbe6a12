package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
)

// LongRunning pushes the connection write deadline to d from now and bounds
// the request context by d. Routes that outlive http.Server.WriteTimeout,
// such as the sync jobs, use it to still deliver their response.
func LongRunning(log *slog.Logger, d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline := time.Now().Add(d)
			if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
				log.Warn("failed to extend write deadline", slog.String("path", r.URL.Path), sl.Err(err))
			}

			ctx, cancel := context.WithDeadline(r.Context(), deadline)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
