package handler

import (
	"log/slog"
	"net/http"

	"github.com/Stewz00/go-backoffice-service/internal/middleware"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

type TwoFactorHandler struct {
	log     *slog.Logger
	service *service.TwoFactorService
}

func NewTwoFactorHandler(log *slog.Logger, s *service.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{log: log, service: s}
}

type CodeRequest struct {
	Code string `json:"code"`
}

type LoginCheckRequest struct {
	Code   string                `json:"code"`
	Method model.TwoFactorMethod `json:"method"`
}

type BackupCodesResponse struct {
	Message string `json:"message"`
	*service.BackupCodes
}

func (h *TwoFactorHandler) userID(r *http.Request) int64 {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	return claims.UserID
}

func (h *TwoFactorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.service.Generate(r.Context(), h.userID(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

// Verify confirms the authenticator app and turns 2FA on.
func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	codes, err := h.service.VerifySetup(r.Context(), h.userID(r), req.Code)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupCodesResponse{Message: "Two-factor authentication enabled", BackupCodes: codes})
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Disable(r.Context(), h.userID(r), req.Code); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Two-factor authentication disabled")
}

func (h *TwoFactorHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.service.SendEmailCode(r.Context(), claims.UserID, claims.TwoFactorPending); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Code sent")
}

func (h *TwoFactorHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	codes, err := h.service.VerifyEmailSetup(r.Context(), h.userID(r), req.Code)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupCodesResponse{Message: "Email linked", BackupCodes: codes})
}

// LoginCheck completes a pending login and returns the full session.
func (h *TwoFactorHandler) LoginCheck(w http.ResponseWriter, r *http.Request) {
	var req LoginCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	session, err := h.service.LoginCheck(r.Context(), claims, req.Code, req.Method)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *TwoFactorHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	codes, err := h.service.RegenerateBackupCodes(r.Context(), h.userID(r), req.Code)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupCodesResponse{Message: "Backup codes regenerated", BackupCodes: codes})
}
