package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Stewz00/go-backoffice-service/internal/middleware"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	log     *slog.Logger
	service *service.UserService
}

func NewUserHandler(log *slog.Logger, s *service.UserService) *UserHandler {
	return &UserHandler{log: log, service: s}
}

type UpdateProfileRequest struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type SetRoleRequest struct {
	Role model.Role `json:"role"`
}

type UserListResponse struct {
	Data []model.UserProfile `json:"data"`
	Meta model.PageMeta      `json:"meta"`
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	profile, err := h.service.Profile(r.Context(), claims.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())

	profile, err := h.service.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Image)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())

	err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Password changed")
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "If the email exists, we sent the instructions")
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Password changed")
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.service.ListUsers(r.Context(), model.UserFilter{
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Data: users, Meta: meta})
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	var req SetRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := h.service.SetRole(r.Context(), claims.Role, id, req.Role); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Role updated")
}
