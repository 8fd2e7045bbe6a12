package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/handler"
	"github.com/Stewz00/go-backoffice-service/internal/integration/contaazul"
	"github.com/Stewz00/go-backoffice-service/internal/integration/google"
	"github.com/Stewz00/go-backoffice-service/internal/integration/pdvlegal"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/mailer"
	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/service"
	"github.com/Stewz00/go-backoffice-service/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

const (
	eventsLimit       = 100
	producingInterval = time.Second
	httpTimeout       = 30 * time.Second
)

// App owns every long-lived dependency of the service.
type App struct {
	log *slog.Logger
	cfg *config.Config

	DB      *database.DB
	Metrics *metrics.Metrics
	Mailer  mailer.Sender

	Auth      *service.AuthService
	Users     *service.UserService
	TwoFactor *service.TwoFactorService
	Companies *service.CompanyService
	Pdv       *service.PdvService
	Licenses  *service.LicenseService
	ContaAzul *service.ContaAzulService

	Router http.Handler

	redis           *redis.Client
	producer        *events.Producer
	eventSender     *events.Sender
	shutdownTracing func(context.Context) error
}

// New connects to the database (migrating it first when AutoMigrate is set)
// and wires repositories, integrations, services and the HTTP router.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	a := &App{log: log, cfg: cfg}

	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.shutdownTracing = shutdown

	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DbURL); err != nil {
			a.Stop(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := database.New(ctx, cfg.DbURL)
	if err != nil {
		a.Stop(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.DB = db
	a.Metrics = metrics.New()

	store, err := a.rateLimitStore(ctx)
	if err != nil {
		a.Stop(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limiter := ratelimit.NewLimiter(store, a.Metrics)

	users := repository.NewUserRepository(db)
	pdvRepo := repository.NewPdvRepository(db)
	eventRepo := repository.NewEventRepository(db)
	recorder := events.NewRecorder(eventRepo, log)

	if cfg.Kafka.Enabled() {
		a.producer = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.eventSender = events.NewSender(log, a.producer, eventRepo)
	}

	a.Mailer = mailer.New(cfg.SMTP, log)
	httpClient := &http.Client{Timeout: httpTimeout}
	pdvClient := pdvlegal.New(cfg.PdvLegal.BaseURL, httpClient)
	caClient := contaazul.New(cfg.ContaAzul, cfg.PublicURL+"/integrations/contaazul/callback", httpClient)

	a.Auth = service.NewAuthService(log, users, users, limiter, cfg.JwtSecret, cfg.TokenTTL).
		WithEvents(recorder).
		WithMetrics(a.Metrics)
	if cfg.Google.Enabled() {
		a.Auth.WithGoogle(google.New(cfg.Google, cfg.PublicURL+"/auth/google/callback", httpClient))
	}

	a.Users = service.NewUserService(log, users, users, a.Mailer, cfg.AppURL, cfg.Locale)
	a.TwoFactor = service.NewTwoFactorService(log, users, users, a.Auth, limiter, a.Mailer, cfg.TwoFactor.Issuer).
		WithMetrics(a.Metrics)
	a.Companies = service.NewCompanyService(repository.NewCompanyRepository(db))
	a.Pdv = service.NewPdvService(log, pdvRepo, pdvClient)
	a.Licenses = service.NewLicenseService(log, repository.NewLicenseRepository(db), pdvRepo, pdvClient, cfg.Sync.PageDelay).
		WithEvents(recorder).
		WithMetrics(a.Metrics)
	a.ContaAzul = service.NewContaAzulService(log, repository.NewContaAzulRepository(db), caClient, cfg.Sync).
		WithEvents(recorder).
		WithMetrics(a.Metrics)

	a.Router = handler.NewRouter(handler.Handlers{
		Log:       log,
		Auth:      handler.NewAuthHandler(log, a.Auth, a.Users, cfg.AppURL),
		TwoFactor: handler.NewTwoFactorHandler(log, a.TwoFactor),
		User:      handler.NewUserHandler(log, a.Users),
		Company:   handler.NewCompanyHandler(log, a.Companies),
		Pdv:       handler.NewPdvHandler(log, a.Pdv),
		License:   handler.NewLicenseHandler(log, a.Licenses),
		ContaAzul: handler.NewContaAzulHandler(log, a.ContaAzul, cfg.AppURL),
	}, a.Auth, a.Metrics)

	return a, nil
}

func (a *App) rateLimitStore(ctx context.Context) (ratelimit.Store, error) {
	if a.cfg.RateLimit.Backend != "redis" {
		return repository.NewRateLimitRepository(a.DB), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.RateLimit.RedisAddr,
		Password: a.cfg.RateLimit.RedisPassword,
		DB:       a.cfg.RateLimit.RedisDB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return ratelimit.NewRedisStore(a.redis), nil
}

// StartEvents begins forwarding outbox events to Kafka. It is a no-op when no
// brokers are configured.
func (a *App) StartEvents(ctx context.Context) {
	if a.eventSender == nil {
		a.log.Info("kafka brokers not configured, events stay in the outbox")
		return
	}
	a.eventSender.Start(ctx, eventsLimit, producingInterval)
}

// Stop releases everything New acquired. It is safe on a partially built App.
func (a *App) Stop(ctx context.Context) {
	if a.eventSender != nil {
		a.eventSender.Stop()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Error("failed to close kafka producer", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.log.Error("failed to close redis client", sl.Err(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Error("failed to shut down tracing", sl.Err(err))
		}
	}
}
