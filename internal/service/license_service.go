package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/integration/pdvlegal"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const JobLicenses = "licenses"

// Products that are not counted as active point-of-sale licenses.
var nonLicenseProducts = []string{"DELIVERY LEGAL", "CERTIFICADO DIGITAL"}

var productLabels = map[string]string{
	"GESTAO LEGAL":        "Gestão",
	"DELIVERY LEGAL":      "Delivery",
	"CERTIFICADO DIGITAL": "Cert. Digital",
}

const otherProduct = "OUTROS"

type LicenseSyncResult struct {
	Message  string `json:"message"`
	Groups   int    `json:"grupos"`
	Branches int    `json:"lojas"`
}

type LicenseService struct {
	log       *slog.Logger
	repo      interfaces.LicenseRepository
	pdv       interfaces.PdvRepository
	client    PdvClient
	events    *events.Recorder
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	pageDelay time.Duration
	now       func() time.Time
}

func NewLicenseService(
	log *slog.Logger,
	repo interfaces.LicenseRepository,
	pdv interfaces.PdvRepository,
	client PdvClient,
	pageDelay time.Duration,
) *LicenseService {
	return &LicenseService{
		log:       log,
		repo:      repo,
		pdv:       pdv,
		client:    client,
		tracer:    telemetry.Tracer("service.licenses"),
		pageDelay: pageDelay,
		now:       time.Now,
	}
}

func (s *LicenseService) WithEvents(r *events.Recorder) *LicenseService {
	s.events = r
	return s
}

func (s *LicenseService) WithMetrics(m *metrics.Metrics) *LicenseService {
	s.metrics = m
	return s
}

// Sync copies every licensed group and its branches from the licensing API.
// Pages are read until the API answers 404 or returns an empty page.
func (s *LicenseService) Sync(ctx context.Context) (*LicenseSyncResult, error) {
	const op = "service.LicenseService.Sync"
	log := s.log.With(slog.String("op", op))

	ctx, span := s.tracer.Start(ctx, "licenses.Sync")
	defer span.End()

	cfg, err := s.pdv.GetPdvConfig(ctx)
	if err != nil || cfg.AccessToken == "" {
		return nil, ErrNotConnected
	}

	res := &LicenseSyncResult{}
	for page := 1; ; page++ {
		if page > 1 {
			if err := sleep(ctx, s.pageDelay); err != nil {
				return nil, err
			}
		}

		groups, err := s.client.Licenses(ctx, cfg.AccessToken, page)
		if errors.Is(err, pdvlegal.ErrNoMorePages) {
			break
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			log.Error("license page failed", slog.Int("page", page), sl.Err(err))
			return nil, &UpstreamError{Service: IntegrationPdvLegal, Err: err}
		}
		if len(groups) == 0 {
			break
		}

		for _, g := range groups {
			branches, err := s.saveGroup(ctx, g)
			if err != nil {
				s.metrics.SyncRecords(JobLicenses, "error", 1)
				return nil, fmt.Errorf("%s: group %d: %w", op, g.CodGrupo, err)
			}
			res.Groups++
			res.Branches += branches
		}
		log.Debug("license page synced", slog.Int("page", page), slog.Int("groups", len(groups)))
	}

	res.Message = fmt.Sprintf("Foram sincronizados %d Grupos e %d Lojas", res.Groups, res.Branches)
	span.SetAttributes(attribute.Int("groups", res.Groups), attribute.Int("branches", res.Branches))
	s.metrics.SyncRecords(JobLicenses, "saved", res.Groups+res.Branches)
	s.events.Record(ctx, model.EventSyncCompleted, map[string]any{"job": JobLicenses, "groups": res.Groups, "branches": res.Branches})

	log.Info("licenses synced", slog.Int("groups", res.Groups), slog.Int("branches", res.Branches))
	return res, nil
}

func (s *LicenseService) saveGroup(ctx context.Context, g pdvlegal.Group) (int, error) {
	now := s.now()
	groupID, err := s.repo.UpsertLicenseGroup(ctx, model.LicenseGroup{
		CodGrupo:            g.CodGrupo,
		Nome:                g.NomeGrupo,
		Ativo:               g.Ativo,
		Documento:           string(g.CpfCnpj),
		Produto:             g.Produto,
		QtdLojasAtivas:      g.QtdLojasAtivas,
		QtdLojasDesativadas: g.QtdLojasDesativadas,
		DataCadastroAPI:     g.DataCadastro.OrNow(now),
	})
	if err != nil {
		return 0, err
	}

	for _, b := range g.Filiais {
		err := s.repo.UpsertLicenseBranch(ctx, model.LicenseBranch{
			CodFilial:       b.CodFilial,
			GroupID:         groupID,
			CodGrupo:        g.CodGrupo,
			Nome:            b.NomeFilial,
			Ativo:           b.Ativo,
			Matriz:          b.Matriz,
			Documento:       string(b.CpfCnpj),
			Email:           b.Email,
			Sistema:         model.SistemaPdvLegal,
			DataCadastroAPI: b.DataCadastro.OrNow(now),
		})
		if err != nil {
			return 0, fmt.Errorf("branch %d: %w", b.CodFilial, err)
		}
	}
	return len(g.Filiais), nil
}

// List returns one page of head offices, each with its group and branches.
func (s *LicenseService) List(ctx context.Context, filter model.LicenseFilter) ([]model.LicenseBranch, model.PageMeta, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	filter.Limit = min(filter.Limit, maxPageSize)

	items, total, err := s.repo.ListHeadOffices(ctx, filter)
	if err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("service.LicenseService.List: %w", err)
	}
	if items == nil {
		items = []model.LicenseBranch{}
	}
	return items, model.NewPageMeta(total, filter.Page, filter.Limit), nil
}

func productLabel(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return otherProduct
	}
	if label, ok := productLabels[*p]; ok {
		return label
	}
	return *p
}

func (s *LicenseService) Stats(ctx context.Context) (*model.LicenseStats, error) {
	const op = "service.LicenseService.Stats"

	var stats model.LicenseStats
	var err error
	if stats.Ativas, err = s.repo.CountActiveBranches(ctx, nonLicenseProducts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.Inativas, err = s.repo.CountInactiveBranches(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products, err := s.repo.BranchProducts(ctx, model.SistemaPdvLegal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byName := make(map[string]*model.ProductStat)
	details := []model.ProductStat{}
	var order []string
	for _, p := range products {
		name := productLabel(p.Produto)
		stat, ok := byName[name]
		if !ok {
			stat = &model.ProductStat{Name: name}
			byName[name] = stat
			order = append(order, name)
		}
		if p.Ativo {
			stat.Active++
		} else {
			stat.Inactive++
		}
	}
	for _, name := range order {
		details = append(details, *byName[name])
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Active > details[j].Active })

	stats.PdvLegal.Total = len(products)
	stats.PdvLegal.Details = details
	return &stats, nil
}
