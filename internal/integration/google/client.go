// Package google implements the Google sign-in authorization code flow.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// ErrEmailNotVerified is returned when Google does not vouch for the address.
var ErrEmailNotVerified = errors.New("google: email not verified")

// Profile is the subset of the OpenID userinfo the service needs.
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type Option func(*Client)

// WithEndpoints points the client at another provider, mostly for tests.
func WithEndpoints(authURL, tokenURL, userInfoURL string) Option {
	return func(c *Client) {
		c.oauth.Endpoint.AuthURL = authURL
		c.oauth.Endpoint.TokenURL = tokenURL
		c.userInfoURL = userInfoURL
	}
}

type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	http        *http.Client
	tracer      trace.Tracer
}

func New(cfg config.GoogleConfig, redirectURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthURL,
				TokenURL:  defaultTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: redirectURL,
			Scopes:      []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
		http:        httpClient,
		tracer:      telemetry.Tracer("google"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback code for a token and reads the user's profile with it.
func (c *Client) Exchange(ctx context.Context, code string) (*Profile, error) {
	ctx, span := c.tracer.Start(ctx, "google.Exchange")
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("google: exchange code: %w", err)
	}

	resp, err := c.oauth.Client(ctx, tok).Get(c.userInfoURL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("google: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: userinfo: status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("google: decode userinfo: %w", err)
	}
	if p.Subject == "" || p.Email == "" {
		return nil, errors.New("google: userinfo without subject or email")
	}
	if !p.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return &p, nil
}
