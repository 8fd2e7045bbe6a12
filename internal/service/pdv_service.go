package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/integration/pdvlegal"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
)

const (
	IntegrationPdvLegal = "pdvlegal"
	maskedSecret        = "********"
)

// PdvClient is the point-of-sale licensing API.
type PdvClient interface {
	Authenticate(ctx context.Context, cred pdvlegal.Credentials) (string, error)
	Licenses(ctx context.Context, token string, page int) ([]pdvlegal.Group, error)
	Get(ctx context.Context, token, endpoint string) (*pdvlegal.ProxyResponse, error)
}

// PdvConfig is the stored configuration as shown to admins.
type PdvConfig struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Connected    bool      `json:"isConnected"`
	Updated      time.Time `json:"updatedAt"`
}

func maskPdvConfig(cfg *model.PdvIntegration) *PdvConfig {
	out := &PdvConfig{
		Username:  cfg.Username,
		ClientID:  cfg.ClientID,
		Connected: cfg.AccessToken != "",
		Updated:   cfg.Updated,
	}
	if cfg.Password != "" {
		out.Password = maskedSecret
	}
	if cfg.ClientSecret != "" {
		out.ClientSecret = maskedSecret
	}
	return out
}

type PdvService struct {
	log    *slog.Logger
	repo   interfaces.PdvRepository
	client PdvClient
}

func NewPdvService(log *slog.Logger, repo interfaces.PdvRepository, client PdvClient) *PdvService {
	return &PdvService{log: log, repo: repo, client: client}
}

// SaveConfig replaces the credentials. The stored access token is dropped
// because it belongs to the old credentials.
func (s *PdvService) SaveConfig(ctx context.Context, cfg model.PdvIntegration) (*PdvConfig, error) {
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.Username == "" || cfg.Password == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, invalid("username, password, client_id and client_secret are required")
	}

	saved, err := s.repo.SavePdvConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("service.PdvService.SaveConfig: %w", err)
	}
	return maskPdvConfig(saved), nil
}

// Config returns the masked configuration, or repository.ErrPdvConfigNotFound.
func (s *PdvService) Config(ctx context.Context) (*PdvConfig, error) {
	cfg, err := s.repo.GetPdvConfig(ctx)
	if err != nil {
		return nil, err
	}
	return maskPdvConfig(cfg), nil
}

// Authenticate trades the stored credentials for an access token and keeps it.
func (s *PdvService) Authenticate(ctx context.Context) (string, error) {
	const op = "service.PdvService.Authenticate"
	log := s.log.With(slog.String("op", op))

	cfg, err := s.repo.GetPdvConfig(ctx)
	if errors.Is(err, repository.ErrPdvConfigNotFound) {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.client.Authenticate(ctx, pdvlegal.Credentials{
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		log.Warn("pdv authentication failed", sl.Err(err))
		var se *pdvlegal.StatusError
		if errors.As(err, &se) {
			msg := se.Description
			if msg == "" {
				msg = "authentication failed"
			}
			return "", &UpstreamError{Service: IntegrationPdvLegal, Msg: msg, Err: err}
		}
		return "", &UpstreamError{Service: IntegrationPdvLegal, Err: err}
	}

	if err := s.repo.SetPdvAccessToken(ctx, cfg.ID, token); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("pdv token stored")
	return token, nil
}

// Connected reports whether an access token is stored.
func (s *PdvService) Connected(ctx context.Context) (bool, error) {
	cfg, err := s.repo.GetPdvConfig(ctx)
	if errors.Is(err, repository.ErrPdvConfigNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("service.PdvService.Connected: %w", err)
	}
	return cfg.AccessToken != "", nil
}

func (s *PdvService) token(ctx context.Context) (string, error) {
	cfg, err := s.repo.GetPdvConfig(ctx)
	if errors.Is(err, repository.ErrPdvConfigNotFound) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", err
	}
	if cfg.AccessToken == "" {
		return "", ErrNotConnected
	}
	return cfg.AccessToken, nil
}

// Proxy performs an authenticated GET on the licensing API on behalf of the UI.
func (s *PdvService) Proxy(ctx context.Context, integration, endpoint string) (*pdvlegal.ProxyResponse, error) {
	const op = "service.PdvService.Proxy"

	if integration != IntegrationPdvLegal {
		return nil, invalid("unsupported integration %q", integration)
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, invalid("endpoint is required")
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, token, endpoint)
	if err != nil {
		return nil, &UpstreamError{Service: IntegrationPdvLegal, Err: fmt.Errorf("%s: %w", op, err)}
	}
	return resp, nil
}
