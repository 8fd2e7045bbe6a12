package handler

import (
	"log/slog"
	"net/http"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

type LicenseHandler struct {
	log     *slog.Logger
	service *service.LicenseService
}

func NewLicenseHandler(log *slog.Logger, s *service.LicenseService) *LicenseHandler {
	return &LicenseHandler{log: log, service: s}
}

type LicenseListResponse struct {
	Data []model.LicenseBranch `json:"data"`
	Meta model.PageMeta        `json:"meta"`
}

func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, meta, err := h.service.List(r.Context(), model.LicenseFilter{
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, LicenseListResponse{Data: branches, Meta: meta})
}

func (h *LicenseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LicenseHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Sync(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
