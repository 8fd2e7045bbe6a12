package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type ContaAzulHandler struct {
	log     *slog.Logger
	service *service.ContaAzulService
	appURL  string
}

func NewContaAzulHandler(log *slog.Logger, s *service.ContaAzulService, appURL string) *ContaAzulHandler {
	return &ContaAzulHandler{log: log, service: s, appURL: appURL}
}

type SyncRequest struct {
	CompanyID int64 `json:"empresaId"`
}

// companyID reads empresaId from the query string. Zero means missing.
func companyID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get("empresaId"), 10, 64)
	return id
}

// reportDate parses the date filter. Both 2006-01 and 2006-01-02 are accepted;
// an empty value means today.
func reportDate(r *http.Request) (time.Time, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return time.Now(), true
	}
	for _, layout := range []string{"2006-01-02", "2006-01", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *ContaAzulHandler) Connect(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.ConnectURL(companyID(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *ContaAzulHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.service.Callback(r.Context(), q.Get("code"), q.Get("state")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, h.appURL+"/app/empresas/config?success=true", http.StatusFound)
}

func (h *ContaAzulHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := companyID(r)
	if id <= 0 {
		sendJSONError(w, "empresaId is required", http.StatusBadRequest)
		return
	}

	connected, err := h.service.Connected(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectionStatus{Connected: connected})
}

func (h *ContaAzulHandler) Receivables(w http.ResponseWriter, r *http.Request) {
	date, ok := reportDate(r)
	if !ok {
		sendJSONError(w, "Invalid date", http.StatusBadRequest)
		return
	}

	out, err := h.service.ReceivablesReport(r.Context(), companyID(r), date)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ContaAzulHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	date, ok := reportDate(r)
	if !ok {
		sendJSONError(w, "Invalid date", http.StatusBadRequest)
		return
	}

	sum, err := h.service.SalesSummary(r.Context(), companyID(r), date)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Sync runs one of the sync jobs. The company comes from the JSON body or,
// failing that, from the query string.
func (h *ContaAzulHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CompanyID == 0 {
		req.CompanyID = companyID(r)
	}

	var (
		res any
		err error
	)
	switch chi.URLParam(r, "job") {
	case "customers":
		res, err = h.service.SyncCustomers(r.Context(), req.CompanyID)
	case "contracts":
		res, err = h.service.SyncContracts(r.Context(), req.CompanyID)
	case "receivables":
		res, err = h.service.SyncReceivables(r.Context(), req.CompanyID)
	default:
		sendJSONError(w, "Unknown sync job", http.StatusNotFound)
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
