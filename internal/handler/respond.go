package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Helper function to send JSON error responses
func sendJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps a service or repository error to its HTTP status and the
// message shown to the client.
func statusFor(err error) (int, string) {
	var inputErr *service.InputError
	var upstream *service.UpstreamError

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Msg
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstream.Error()
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrNotConnected),
		errors.Is(err, service.ErrReconnect):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, repository.ErrDuplicateEmail):
		return http.StatusConflict, service.ErrEmailTaken.Error()
	case errors.Is(err, service.ErrNotConfigured),
		errors.Is(err, service.ErrGoogleDisabled),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCompanyNotFound):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, service.ErrTwoFactorNotStarted),
		errors.Is(err, service.ErrTwoFactorAlreadyDisabled),
		errors.Is(err, service.ErrTwoFactorNotEnabled),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrMethodNotEnabled),
		errors.Is(err, service.ErrPasswordlessAccount),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

// rootMessage drops the op prefixes added while wrapping.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// handleError writes the error response. Only unexpected errors are logged.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error("request failed", slog.String("path", r.URL.Path), sl.Err(err))
	}
	sendJSONError(w, msg, code)
}

// queryInt returns the integer query parameter, or def when missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
