package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type CompanyHandler struct {
	log     *slog.Logger
	service *service.CompanyService
}

func NewCompanyHandler(log *slog.Logger, s *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{log: log, service: s}
}

type EmptyResponse struct {
	Empty bool `json:"empty"`
}

type SavedResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (h *CompanyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req model.Company
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	company, err := h.service.Upsert(r.Context(), req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, SavedResponse{Success: true, Data: company})
}

// First returns the main company, or {"empty": true} before one is registered.
func (h *CompanyHandler) First(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.First(r.Context())
	if errors.Is(err, repository.ErrCompanyNotFound) {
		writeJSON(w, http.StatusOK, EmptyResponse{Empty: true})
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid company id", http.StatusBadRequest)
		return
	}

	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}
