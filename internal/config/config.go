package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "development"
	EnvProd  = "production"
)

type Config struct {
	Env         string        `env:"APP_ENV" envDefault:"local"`
	Port        string        `env:"PORT"`
	JwtSecret   string        `env:"JWT_SECRET"`
	DbURL       string        `env:"DATABASE_URL"`
	AppURL      string        `env:"APP_URL" envDefault:"http://localhost:3000"`
	PublicURL   string        `env:"PUBLIC_URL"`
	Locale      string        `env:"APP_LOCALE" envDefault:"pt_BR"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AutoMigrate bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	RateLimit RateLimitConfig
	SMTP      SMTPConfig
	TwoFactor TwoFactorConfig
	PdvLegal  PdvLegalConfig  `envPrefix:"PDV_LEGAL_"`
	ContaAzul ContaAzulConfig `envPrefix:"CONTA_AZUL_"`
	Google    GoogleConfig    `envPrefix:"GOOGLE_"`
	Sync      SyncConfig      `envPrefix:"SYNC_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`

	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// RateLimitConfig selects where rate limit records live.
type RateLimitConfig struct {
	Backend       string `env:"RATE_LIMIT_BACKEND" envDefault:"postgres"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"EMAIL_FROM" envDefault:"Admin <noreply@example.com>"`
}

type TwoFactorConfig struct {
	Issuer string `env:"TWO_FACTOR_ISSUER" envDefault:"Admin Panel"`
}

type PdvLegalConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://api.tabletcloud.com.br"`
}

type ContaAzulConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL" envDefault:"https://auth.contaazul.com/login"`
	TokenURL     string   `env:"TOKEN_URL" envDefault:"https://auth.contaazul.com/oauth2/token"`
	APIURL       string   `env:"API_URL" envDefault:"https://api-v2.contaazul.com"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,profile,aws.cognito.signin.user.admin"`
}

type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type SyncConfig struct {
	PageDelay  time.Duration `env:"PAGE_DELAY" envDefault:"300ms"`
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"2s"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"5"`
	PageSize   int           `env:"PAGE_SIZE" envDefault:"20"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"backoffice.events"`
}

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// Load reads the configuration from a .env file or environment variables and returns a Config struct.
// It returns an error if any required variable is missing.
func Load() (*Config, error) {
	// Try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	// OAuth providers redirect here; defaults to the app URL when both share a host.
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.AppURL
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" || c.JwtSecret == "" || c.DbURL == "" {
		return fmt.Errorf("missing required environment variables: PORT=%q, JWT_SECRET set=%t, DATABASE_URL set=%t",
			c.Port, c.JwtSecret != "", c.DbURL != "")
	}

	switch c.RateLimit.Backend {
	case "postgres", "redis":
	default:
		return errors.New("RATE_LIMIT_BACKEND must be postgres or redis")
	}

	if c.Sync.PageSize <= 0 {
		return errors.New("SYNC_PAGE_SIZE must be positive")
	}

	return nil
}
