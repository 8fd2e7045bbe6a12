package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/integration/contaazul"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	IntegrationContaAzul = "contaazul"

	JobCustomers   = "contaazul.customers"
	JobContracts   = "contaazul.contracts"
	JobReceivables = "contaazul.receivables"

	tokenRefreshMargin = 10 * time.Minute
	upsertConcurrency  = 4

	contractsFrom    = "2015-01-01"
	contractsTo      = "2030-12-31"
	receivableWindow = 30 // days on either side of today
	dateLayout       = "2006-01-02"
)

var (
	overdueStatuses  = []string{"OVERDUE", "ATRASADO"}
	receivedStatuses = []string{"ACQUITTED", "RECEBIDO", "PARTIAL", "RECEBIDO_PARCIAL"}
	pendingStatuses  = []string{"PENDING", "EM_ABERTO"}
)

// ContaAzulClient is the accounting API.
type ContaAzulClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*contaazul.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*contaazul.Token, error)
	Customers(ctx context.Context, token string, page, size int) ([]contaazul.Customer, error)
	Contracts(ctx context.Context, token string, page, size int, from, to string) ([]contaazul.Contract, error)
	Receivables(ctx context.Context, token string, page, size int, from, to string) ([]contaazul.Receivable, error)
}

type ContractSyncResult struct {
	Total   int `json:"total"`
	Updated int `json:"atualizados"`
}

type ContaAzulService struct {
	log     *slog.Logger
	repo    interfaces.ContaAzulRepository
	client  ContaAzulClient
	cfg     config.SyncConfig
	events  *events.Recorder
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewContaAzulService(log *slog.Logger, repo interfaces.ContaAzulRepository, client ContaAzulClient, cfg config.SyncConfig) *ContaAzulService {
	return &ContaAzulService{
		log:    log,
		repo:   repo,
		client: client,
		cfg:    cfg,
		tracer: telemetry.Tracer("service.contaazul"),
		now:    time.Now,
	}
}

func (s *ContaAzulService) WithEvents(r *events.Recorder) *ContaAzulService {
	s.events = r
	return s
}

func (s *ContaAzulService) WithMetrics(m *metrics.Metrics) *ContaAzulService {
	s.metrics = m
	return s
}

// ConnectURL is the authorization page. The company id travels as the OAuth state.
func (s *ContaAzulService) ConnectURL(companyID int64) (string, error) {
	if companyID <= 0 {
		return "", invalid("empresaId is required")
	}
	return s.client.AuthCodeURL(strconv.FormatInt(companyID, 10)), nil
}

// Callback exchanges the authorization code and stores the tokens of the company in state.
func (s *ContaAzulService) Callback(ctx context.Context, code, state string) error {
	const op = "service.ContaAzulService.Callback"
	log := s.log.With(slog.String("op", op))

	companyID, err := strconv.ParseInt(strings.TrimSpace(state), 10, 64)
	if code == "" || err != nil || companyID <= 0 {
		return invalid("code and a numeric state are required")
	}

	tok, err := s.client.Exchange(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", sl.Err(err))
		return &UpstreamError{Service: IntegrationContaAzul, Msg: "could not exchange the authorization code", Err: err}
	}

	err = s.repo.SaveContaAzulIntegration(ctx, model.ContaAzulIntegration{
		CompanyID:    companyID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	})
	if errors.Is(err, repository.ErrCompanyNotFound) {
		return invalid("company %d does not exist", companyID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("conta azul connected", slog.Int64("company_id", companyID))
	return nil
}

func (s *ContaAzulService) Connected(ctx context.Context, companyID int64) (bool, error) {
	in, err := s.repo.GetContaAzulIntegration(ctx, companyID)
	if errors.Is(err, repository.ErrIntegrationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("service.ContaAzulService.Connected: %w", err)
	}
	return in.AccessToken != "", nil
}

// ValidToken returns an access token that is good for at least ten more
// minutes, refreshing it first when needed or when force is set.
func (s *ContaAzulService) ValidToken(ctx context.Context, companyID int64, force bool) (string, error) {
	const op = "service.ContaAzulService.ValidToken"
	log := s.log.With(slog.String("op", op), slog.Int64("company_id", companyID))

	in, err := s.repo.GetContaAzulIntegration(ctx, companyID)
	if errors.Is(err, repository.ErrIntegrationNotFound) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	expiresIn := in.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = contaazul.DefaultExpiresIn
	}
	refreshAt := in.Updated.Add(time.Duration(expiresIn)*time.Second - tokenRefreshMargin)
	if !force && in.AccessToken != "" && s.now().Before(refreshAt) {
		return in.AccessToken, nil
	}

	tok, err := s.client.Refresh(ctx, in.RefreshToken)
	if err != nil {
		log.Warn("token refresh failed", sl.Err(err))
		return "", ErrReconnect
	}

	err = s.repo.SaveContaAzulIntegration(ctx, model.ContaAzulIntegration{
		CompanyID:    companyID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("token refreshed")
	return tok.AccessToken, nil
}

type pageFetcher[T any] func(ctx context.Context, token string, page int) ([]T, error)

// fetchPage reads one page, waiting before every call. A 429 waits and retries
// the same page; a 401 forces one token refresh.
func fetchPage[T any](ctx context.Context, s *ContaAzulService, companyID int64, token *string, page int, fetch pageFetcher[T]) ([]T, error) {
	refreshed := false
	for attempt := 0; ; attempt++ {
		if err := sleep(ctx, s.cfg.PageDelay); err != nil {
			return nil, err
		}

		items, err := fetch(ctx, *token, page)
		if err == nil {
			return items, nil
		}

		var se *contaazul.StatusError
		if !errors.As(err, &se) {
			return nil, &UpstreamError{Service: IntegrationContaAzul, Err: err}
		}

		switch {
		case se.StatusCode == 429 && attempt < s.cfg.MaxRetries:
			s.log.Warn("rate limited by conta azul, waiting", slog.Int("page", page), slog.Int("attempt", attempt+1))
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				return nil, err
			}
		case se.StatusCode == 401 && !refreshed:
			refreshed = true
			t, err := s.ValidToken(ctx, companyID, true)
			if err != nil {
				return nil, err
			}
			*token = t
		default:
			return nil, &UpstreamError{Service: IntegrationContaAzul, Msg: fmt.Sprintf("page %d failed with status %d", page, se.StatusCode), Err: err}
		}
	}
}

// syncPages walks pages from 1 until an empty or short page and hands each to handle.
func syncPages[T any](ctx context.Context, s *ContaAzulService, companyID int64, fetch pageFetcher[T], handle func(ctx context.Context, items []T) error) error {
	token, err := s.ValidToken(ctx, companyID, false)
	if err != nil {
		return err
	}

	for page := 1; ; page++ {
		items, err := fetchPage(ctx, s, companyID, &token, page, fetch)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		if err := handle(ctx, items); err != nil {
			return err
		}
		if len(items) < s.cfg.PageSize {
			return nil
		}
	}
}

func (s *ContaAzulService) startJob(ctx context.Context, job string, companyID int64) (context.Context, trace.Span, *slog.Logger) {
	ctx, span := s.tracer.Start(ctx, job, trace.WithAttributes(attribute.Int64("company_id", companyID)))
	return ctx, span, s.log.With(slog.String("op", job), slog.Int64("company_id", companyID))
}

func (s *ContaAzulService) finishJob(ctx context.Context, span trace.Span, companyID int64, res *model.SyncResult) {
	span.SetAttributes(attribute.Int("total", res.Processed), attribute.Int("saved", res.Saved), attribute.Int("errors", res.Errors))
	s.metrics.SyncRecords(res.Job, "saved", res.Saved)
	s.metrics.SyncRecords(res.Job, "error", res.Errors)
	s.events.Record(ctx, model.EventSyncCompleted, map[string]any{
		"job":       res.Job,
		"companyId": companyID,
		"total":     res.Processed,
		"saved":     res.Saved,
		"errors":    res.Errors,
	})
}

func requireCompany(companyID int64) error {
	if companyID <= 0 {
		return invalid("empresaId is required")
	}
	return nil
}

// SyncCustomers copies every person registered in the account.
func (s *ContaAzulService) SyncCustomers(ctx context.Context, companyID int64) (*model.SyncResult, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	ctx, span, log := s.startJob(ctx, JobCustomers, companyID)
	defer span.End()

	res := &model.SyncResult{Job: JobCustomers}
	var saved, failed atomic.Int64

	fetch := func(ctx context.Context, token string, page int) ([]contaazul.Customer, error) {
		return s.client.Customers(ctx, token, page, s.cfg.PageSize)
	}
	handle := func(ctx context.Context, items []contaazul.Customer) error {
		res.Processed += len(items)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(upsertConcurrency)
		for _, item := range items {
			if item.ID == "" {
				failed.Add(1)
				continue
			}
			g.Go(func() error {
				if err := s.repo.UpsertCustomer(gctx, customerFromAPI(item, companyID)); err != nil {
					return fmt.Errorf("customer %s: %w", item.ID, err)
				}
				saved.Add(1)
				return nil
			})
		}
		return g.Wait()
	}

	err := syncPages(ctx, s, companyID, fetch, handle)
	res.Saved, res.Errors = int(saved.Load()), int(failed.Load())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("customer sync failed", slog.Int("saved", res.Saved), sl.Err(err))
		return nil, err
	}

	s.finishJob(ctx, span, companyID, res)
	log.Info("customers synced", slog.Int("total", res.Processed), slog.Int("saved", res.Saved))
	return res, nil
}

func customerFromAPI(c contaazul.Customer, companyID int64) model.ContaAzulCustomer {
	perfis := c.Perfis
	if perfis == nil {
		perfis = []string{}
	}
	return model.ContaAzulCustomer{
		CaID:            c.ID,
		CompanyID:       companyID,
		IDLegado:        string(c.IDLegado),
		UUIDLegado:      string(c.UUIDLegado),
		Nome:            c.Nome,
		Documento:       c.Documento,
		Email:           c.Email,
		Telefone:        c.Telefone,
		Ativo:           c.Ativo,
		TipoPessoa:      c.TipoPessoa,
		Perfis:          perfis,
		Observacoes:     c.Observacoes,
		DataCriacaoCA:   c.DataCriacao.Ptr(),
		DataAlteracaoCA: c.DataAlteracao.Ptr(),
	}
}

// SyncContracts stores the contract details on the customers they belong to.
// Contracts of unknown customers are left out of the updated count.
func (s *ContaAzulService) SyncContracts(ctx context.Context, companyID int64) (*ContractSyncResult, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	ctx, span, log := s.startJob(ctx, JobContracts, companyID)
	defer span.End()

	res := &ContractSyncResult{}
	var updated, skipped atomic.Int64

	fetch := func(ctx context.Context, token string, page int) ([]contaazul.Contract, error) {
		return s.client.Contracts(ctx, token, page, s.cfg.PageSize, contractsFrom, contractsTo)
	}
	handle := func(ctx context.Context, items []contaazul.Contract) error {
		res.Total += len(items)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(upsertConcurrency)
		for _, item := range items {
			if item.Cliente == nil || item.Cliente.ID == "" {
				skipped.Add(1)
				continue
			}
			g.Go(func() error {
				err := s.repo.AttachContract(gctx, model.ContaAzulContract{
					ID:         item.ID,
					CustomerID: item.Cliente.ID,
					Status:     item.Status,
					Numero:     string(item.Numero),
					Inicio:     item.DataInicio.Ptr(),
					Vencimento: item.ProximoVencimento.Ptr(),
				})
				if errors.Is(err, repository.ErrCustomerNotFound) {
					skipped.Add(1)
					return nil
				}
				if err != nil {
					return fmt.Errorf("contract %s: %w", item.ID, err)
				}
				updated.Add(1)
				return nil
			})
		}
		return g.Wait()
	}

	err := syncPages(ctx, s, companyID, fetch, handle)
	res.Updated = int(updated.Load())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("contract sync failed", slog.Int("updated", res.Updated), sl.Err(err))
		return nil, err
	}

	s.finishJob(ctx, span, companyID, &model.SyncResult{Job: JobContracts, Processed: res.Total, Saved: res.Updated})
	s.metrics.SyncRecords(JobContracts, "skipped", int(skipped.Load()))
	log.Info("contracts synced", slog.Int("total", res.Total), slog.Int("updated", res.Updated))
	return res, nil
}

// SyncReceivables copies receivables due within thirty days of today.
// Items whose customer is unknown are counted as errors.
func (s *ContaAzulService) SyncReceivables(ctx context.Context, companyID int64) (*model.SyncResult, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	ctx, span, log := s.startJob(ctx, JobReceivables, companyID)
	defer span.End()

	now := s.now()
	from := now.AddDate(0, 0, -receivableWindow).Format(dateLayout)
	to := now.AddDate(0, 0, receivableWindow).Format(dateLayout)

	res := &model.SyncResult{Job: JobReceivables}
	var saved, failed atomic.Int64

	fetch := func(ctx context.Context, token string, page int) ([]contaazul.Receivable, error) {
		return s.client.Receivables(ctx, token, page, s.cfg.PageSize, from, to)
	}
	handle := func(ctx context.Context, items []contaazul.Receivable) error {
		res.Processed += len(items)
		var g errgroup.Group
		g.SetLimit(upsertConcurrency)
		for _, item := range items {
			if item.Cliente == nil || item.Cliente.ID == "" {
				continue
			}
			g.Go(func() error {
				if err := s.repo.UpsertReceivable(ctx, receivableFromAPI(item, companyID, now)); err != nil {
					failed.Add(1)
					log.Warn("receivable not saved", slog.String("ca_id", item.ID), sl.Err(err))
					return nil
				}
				saved.Add(1)
				return nil
			})
		}
		return g.Wait()
	}

	err := syncPages(ctx, s, companyID, fetch, handle)
	res.Saved, res.Errors = int(saved.Load()), int(failed.Load())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("receivable sync failed", slog.Int("saved", res.Saved), sl.Err(err))
		return nil, err
	}

	s.finishJob(ctx, span, companyID, res)
	log.Info("receivables synced", slog.Int("total", res.Processed), slog.Int("saved", res.Saved), slog.Int("errors", res.Errors))
	return res, nil
}

func receivableFromAPI(r contaazul.Receivable, companyID int64, now time.Time) model.ContaAzulReceivable {
	return model.ContaAzulReceivable{
		CaID:         r.ID,
		CompanyID:    companyID,
		CustomerCaID: r.Cliente.ID,
		CustomerName: r.Cliente.Nome,
		Status:       r.Status,
		StatusLabel:  r.StatusTraduzido,
		Description:  r.Descricao,
		Total:        float64(r.Total),
		Unpaid:       float64(r.NaoPago),
		Paid:         float64(r.Pago),
		DueDate:      r.DataVencimento.OrNow(now),
		CreatedCA:    r.DataCriacao.OrNow(now),
		UpdatedCA:    r.DataAlteracao.OrNow(now),
	}
}

// monthBounds returns the first instant and the last millisecond of date's month.
func monthBounds(date time.Time) (time.Time, time.Time) {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return first, first.AddDate(0, 1, 0).Add(-time.Millisecond)
}

// ReceivablesReport lists the receivables due in date's month, earliest first.
func (s *ContaAzulService) ReceivablesReport(ctx context.Context, companyID int64, date time.Time) ([]model.ContaAzulReceivable, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	from, to := monthBounds(date)
	out, err := s.repo.ReceivablesDueBetween(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.ContaAzulService.ReceivablesReport: %w", err)
	}
	return out, nil
}

func hasStatus(status string, set []string) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}

// SalesSummary totals the overdue amount over all history and the received
// and pending amounts due in date's month.
func (s *ContaAzulService) SalesSummary(ctx context.Context, companyID int64, date time.Time) (*model.SalesSummary, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	all, err := s.repo.Receivables(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("service.ContaAzulService.SalesSummary: %w", err)
	}

	from, to := monthBounds(date)
	var sum model.SalesSummary
	for _, r := range all {
		if hasStatus(r.Status, overdueStatuses) {
			sum.Overdue += r.Unpaid
		}
		if r.DueDate.Before(from) || r.DueDate.After(to) {
			continue
		}
		switch {
		case hasStatus(r.Status, receivedStatuses):
			sum.Received += r.Paid
		case hasStatus(r.Status, pendingStatuses):
			sum.Receivable += r.Unpaid
		}
	}
	return &sum, nil
}
