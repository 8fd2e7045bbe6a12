package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

type PdvHandler struct {
	log     *slog.Logger
	service *service.PdvService
}

func NewPdvHandler(log *slog.Logger, s *service.PdvService) *PdvHandler {
	return &PdvHandler{log: log, service: s}
}

type PdvConfigRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type ProxyRequest struct {
	Endpoint    string `json:"endpoint"`
	Integration string `json:"integration"`
}

type ConnectionStatus struct {
	Connected bool `json:"isConnected"`
}

type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *PdvHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var req PdvConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := h.service.SaveConfig(r.Context(), model.PdvIntegration{
		Username:     req.Username,
		Password:     req.Password,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, SavedResponse{Success: true, Data: cfg})
}

func (h *PdvHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if errors.Is(err, repository.ErrPdvConfigNotFound) {
		writeJSON(w, http.StatusOK, EmptyResponse{Empty: true})
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *PdvHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Authenticate(r.Context()); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResult{Success: true, Message: "Authenticated"})
}

func (h *PdvHandler) Status(w http.ResponseWriter, r *http.Request) {
	connected, err := h.service.Connected(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectionStatus{Connected: connected})
}

// Proxy relays the upstream answer as {status, data} with a 200, whatever the
// upstream status was.
func (h *PdvHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	var req ProxyRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Proxy(r.Context(), req.Integration, req.Endpoint)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
