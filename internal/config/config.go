package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

const envPrefix = "GATEWAY_"

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	BankClient BankConfig       `koanf:"bank_client"`
	ThreeDS    ThreeDSConfig    `koanf:"threeds"`
	Retry      RetryConfig      `koanf:"retry"`
	Validation ValidationConfig `koanf:"validation"`
	Logger     LoggerConfig     `koanf:"logger"`
	Worker     WorkerConfig     `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development staging production"`
}

func (p Primary) IsProduction() bool {
	return p.Env == "production"
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

// DatabaseConfig is needed when Enabled is set, which turns on the
// transaction journal, or when sessions are kept in postgres.
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// BankConfig holds the terminal credentials. EncKey is the terminal secret used
// for MACs; it is never logged.
type BankConfig struct {
	XMLURL     string        `koanf:"xml_url" validate:"required,url"`
	OOSURL     string        `koanf:"oos_url" validate:"required,url"`
	MerchantID string        `koanf:"merchant_id" validate:"required,len=10,digits"`
	TerminalID string        `koanf:"terminal_id" validate:"required,len=8,alphanum"`
	PosnetID   string        `koanf:"posnet_id" validate:"required"`
	EncKey     string        `koanf:"enc_key" validate:"required"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
}

type ThreeDSConfig struct {
	ReturnURL     string        `koanf:"return_url" validate:"required,url"`
	SessionStore  string        `koanf:"session_store" validate:"oneof=memory redis postgres"`
	SessionTTL    time.Duration `koanf:"session_ttl" validate:"required"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
	Lang          string        `koanf:"lang" validate:"omitempty,oneof=tr en"`
}

// RetryConfig applies to read-only inquiries only.
type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries" validate:"min=0,max=10"`
}

type ValidationConfig struct {
	EnforceLuhn bool `koanf:"enforce_luhn"`
}

// WorkerConfig drives the pending transaction reconciler. It only runs with
// the journal enabled.
type WorkerConfig struct {
	Interval    time.Duration `koanf:"interval" validate:"required"`
	BatchSize   int           `koanf:"batch_size" validate:"min=1,max=1000"`
	PendingAge  time.Duration `koanf:"pending_age" validate:"required"`
	GiveUpAfter time.Duration `koanf:"give_up_after" validate:"required,gtfield=PendingAge"`
}

type LoggerConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// UsesDatabase reports whether a postgres connection is needed.
func (c *Config) UsesDatabase() bool {
	return c.Database.Enabled || c.ThreeDS.SessionStore == "postgres"
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                 "development",
		"server.port":                 "8080",
		"server.read_timeout":         "10s",
		"server.write_timeout":        "30s",
		"server.idle_timeout":         "60s",
		"server.request_timeout":      "45s",
		"database.port":               5432,
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"bank_client.timeout":         "30s",
		"threeds.session_store":       "memory",
		"threeds.session_ttl":         "15m",
		"threeds.sweep_interval":      "1m",
		"threeds.lang":                "tr",
		"retry.base_delay":            "500ms",
		"retry.max_retries":           3,
		"logger.level":                "info",
		"logger.format":               "json",
		"worker.interval":             "1m",
		"worker.batch_size":           50,
		"worker.pending_age":          "2m",
		"worker.give_up_after":        "24h",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	// Luhn checking is always on in production.
	if mainConfig.Primary.IsProduction() {
		mainConfig.Validation.EnforceLuhn = true
	}

	validate := validator.New()
	_ = validate.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return domain.IsDigits(fl.Field().String())
	})

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.UsesDatabase() && mainConfig.Database.Host == "" {
		err = errors.New("database.host is required when the journal or postgres session store is enabled")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}
	if mainConfig.ThreeDS.SessionStore == "redis" && mainConfig.Redis.Addr == "" {
		err = errors.New("redis.addr is required for the redis session store")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
