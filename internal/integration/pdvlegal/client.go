// Package pdvlegal talks to the point-of-sale licensing API.
package pdvlegal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/integration/flexjson"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

// maxProxyBody caps how much of an upstream answer the proxy relays.
const maxProxyBody = 1 << 20

// ErrNoMorePages is returned by Licenses when the API answers 404 for a page.
var ErrNoMorePages = errors.New("pdvlegal: no more pages")

// StatusError is a non-success answer from the API.
type StatusError struct {
	StatusCode  int
	Description string
}

func (e *StatusError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("pdvlegal: status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("pdvlegal: status %d", e.StatusCode)
}

type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

type Group struct {
	CodGrupo            int             `json:"codgrupo"`
	NomeGrupo           string          `json:"nomegrupo"`
	Ativo               bool            `json:"ativo"`
	CpfCnpj             flexjson.String `json:"cpf_cnpj"`
	Produto             *string         `json:"produto"`
	QtdLojasAtivas      int             `json:"qtdLojasAtivas"`
	QtdLojasDesativadas int             `json:"qtdLojasDesativadas"`
	DataCadastro        flexjson.Time   `json:"datacadastro"`
	Filiais             []Branch        `json:"filiais"`
}

type Branch struct {
	CodFilial    int             `json:"codfilial"`
	NomeFilial   string          `json:"nomefilial"`
	Ativo        bool            `json:"ativo"`
	Matriz       bool            `json:"matriz"`
	CpfCnpj      flexjson.String `json:"cpf_cnpj"`
	Email        string          `json:"email"`
	DataCadastro flexjson.Time   `json:"datacadastro"`
}

// ProxyResponse carries an upstream answer back to the caller untouched.
type ProxyResponse struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tracer:  telemetry.Tracer("pdvlegal"),
	}
}

// Authenticate runs the password grant and returns the access token.
func (c *Client) Authenticate(ctx context.Context, cred Credentials) (string, error) {
	ctx, span := c.tracer.Start(ctx, "pdvlegal.Authenticate")
	defer span.End()

	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tok, err := conf.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, c.http), cred.Username, cred.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			desc := re.ErrorDescription
			if desc == "" {
				desc = re.ErrorCode
			}
			se := &StatusError{StatusCode: re.Response.StatusCode, Description: desc}
			span.SetStatus(codes.Error, se.Error())
			return "", se
		}
		span.RecordError(err)
		return "", fmt.Errorf("pdvlegal: token request: %w", err)
	}
	return tok.AccessToken, nil
}

// Licenses fetches one page of license groups. Pages start at 1.
func (c *Client) Licenses(ctx context.Context, token string, page int) ([]Group, error) {
	ctx, span := c.tracer.Start(ctx, "pdvlegal.Licenses", trace.WithAttributes(attribute.Int("page", page)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/licenciamento/minhaslicencas/"+strconv.Itoa(page), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pdvlegal: licenses page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoMorePages
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{StatusCode: resp.StatusCode}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var body struct {
		Data []Group `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pdvlegal: decode licenses page %d: %w", page, err)
	}
	return body.Data, nil
}

// Get calls an arbitrary API path with the token. JSON bodies are decoded,
// anything else is returned as text. Upstream error statuses are not errors.
func (c *Client) Get(ctx context.Context, token, endpoint string) (*ProxyResponse, error) {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	ctx, span := c.tracer.Start(ctx, "pdvlegal.Get", trace.WithAttributes(attribute.String("endpoint", endpoint)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pdvlegal: proxy %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return nil, fmt.Errorf("pdvlegal: read proxy body: %w", err)
	}

	out := &ProxyResponse{Status: resp.StatusCode, Data: string(raw)}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			out.Data = data
		}
	}
	return out, nil
}
