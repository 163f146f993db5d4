package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" validate:"required"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"required"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// GatewayCredentials is one client id/secret pair. The gateway issues
// separate pairs for its sandbox and production environments. Only the
// pair selected by Environment has to be filled in.
type GatewayCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type GatewayConfig struct {
	BaseURL       string             `yaml:"base_url"`
	Environment   string             `yaml:"environment" validate:"oneof=test prod"` // test | prod
	Test          GatewayCredentials `yaml:"test"`
	Prod          GatewayCredentials `yaml:"prod"`
	WebhookSecret string             `yaml:"webhook_secret"` // empty disables signature checks
}

// Credentials returns the pair matching the configured environment.
func (g GatewayConfig) Credentials() GatewayCredentials {
	if g.Environment == "prod" {
		return g.Prod
	}
	return g.Test
}

// CheckoutConfig holds the browser return URLs handed to the gateway
// when a preference is created.
type CheckoutConfig struct {
	SuccessURL string `yaml:"success_url" validate:"required,url"`
	FailureURL string `yaml:"failure_url" validate:"required,url"`
	PendingURL string `yaml:"pending_url" validate:"required,url"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Username  string        `yaml:"username" validate:"required"`
	Password  string        `yaml:"password" validate:"required"`
}

type ReconcilerConfig struct {
	Interval time.Duration `yaml:"interval"`
	StaleAge time.Duration `yaml:"stale_age"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Admin      AdminConfig      `yaml:"admin"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(configPath string, dev bool) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if creds := cfg.Gateway.Credentials(); creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("validate config: gateway credentials for environment %q are incomplete", cfg.Gateway.Environment)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.mercadopago.com"
	}
	if cfg.Gateway.Environment == "" {
		cfg.Gateway.Environment = "test"
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = 30 * time.Minute
	}
	if cfg.Reconciler.StaleAge <= 0 {
		cfg.Reconciler.StaleAge = time.Hour
	}
}
