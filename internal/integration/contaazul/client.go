// Package contaazul talks to the Conta Azul accounting API.
package contaazul

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

// DefaultExpiresIn is assumed when the token response has no expiry.
const DefaultExpiresIn = 3600

// StatusError is a non-success answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("contaazul: status %d: %s", e.StatusCode, e.Body)
}

// Token is the part of an OAuth token the service stores.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type Client struct {
	oauth  *oauth2.Config
	apiURL string
	http   *http.Client
	tracer trace.Tracer
}

func New(cfg config.ContaAzulConfig, redirectURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			RedirectURL: redirectURL,
			Scopes:      cfg.Scopes,
		},
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   httpClient,
		tracer: telemetry.Tracer("contaazul"),
	}
}

// AuthCodeURL is where the user authorizes access. state travels back to the callback.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, span := c.tracer.Start(ctx, "contaazul.Exchange")
	defer span.End()

	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("contaazul: exchange code: %w", err)
	}
	return fromOAuth(tok, ""), nil
}

// Refresh obtains a new access token. The old refresh token is kept when the
// response does not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, span := c.tracer.Start(ctx, "contaazul.Refresh")
	defer span.End()

	tok, err := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("contaazul: refresh token: %w", err)
	}
	return fromOAuth(tok, refreshToken), nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func fromOAuth(tok *oauth2.Token, previousRefresh string) *Token {
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    DefaultExpiresIn,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = previousRefresh
	}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		out.ExpiresIn = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			out.ExpiresIn = n
		}
	default:
		if !tok.Expiry.IsZero() {
			out.ExpiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
		}
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = DefaultExpiresIn
	}
	return out
}

// page decodes a list that comes back under either "items" or "itens".
type page[T any] struct {
	Items []T `json:"items"`
	Itens []T `json:"itens"`
}

func (p page[T]) list() []T {
	if len(p.Items) > 0 {
		return p.Items
	}
	return p.Itens
}

func getPage[T any](ctx context.Context, c *Client, token, path string, query url.Values) ([]T, error) {
	ctx, span := c.tracer.Start(ctx, "contaazul.GET "+path,
		trace.WithAttributes(attribute.String("query", query.Encode())))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("contaazul: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var p page[T]
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("contaazul: decode %s: %w", path, err)
	}
	return p.list(), nil
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("pagina", strconv.Itoa(page))
	q.Set("tamanho_pagina", strconv.Itoa(size))
	return q
}

// Customers lists one page of people registered in the account.
func (c *Client) Customers(ctx context.Context, token string, page, size int) ([]Customer, error) {
	return getPage[Customer](ctx, c, token, "/v1/pessoas", pageQuery(page, size))
}

// Contracts lists one page of contracts that started between from and to (YYYY-MM-DD).
func (c *Client) Contracts(ctx context.Context, token string, page, size int, from, to string) ([]Contract, error) {
	q := pageQuery(page, size)
	q.Set("data_inicio", from)
	q.Set("data_fim", to)
	return getPage[Contract](ctx, c, token, "/v1/contratos", q)
}

// Receivables lists one page of receivables due between from and to (YYYY-MM-DD).
func (c *Client) Receivables(ctx context.Context, token string, page, size int, from, to string) ([]Receivable, error) {
	q := pageQuery(page, size)
	q.Set("data_vencimento_de", from)
	q.Set("data_vencimento_ate", to)
	return getPage[Receivable](ctx, c, token, "/v1/financeiro/eventos-financeiros/contas-a-receber/buscar", q)
}
