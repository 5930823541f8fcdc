// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package config loads and validates the Keystone configuration.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/ratelimit"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mail drivers.
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

// MinSecretLength is the shortest accepted JWT signing secret, in bytes.
const MinSecretLength = 32

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server" json:"server,omitempty"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability,omitempty"`
	Log           LogConfig           `koanf:"log" json:"log,omitempty"`
	Store         string              `koanf:"store" json:"store,omitempty" jsonschema:"enum=postgres,enum=memory"`
	Database      DatabaseConfig      `koanf:"database" json:"database,omitempty"`
	Auth          AuthConfig          `koanf:"auth" json:"auth,omitempty"`
	Mail          MailConfig          `koanf:"mail" json:"mail,omitempty"`
	Cleanup       CleanupConfig       `koanf:"cleanup" json:"cleanup,omitempty"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit" json:"ratelimit,omitempty"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr" json:"addr,omitempty"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout,omitempty"`
	RequestTimeout    time.Duration `koanf:"request_timeout" json:"request_timeout,omitempty"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty"`
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool `koanf:"trust_proxy" json:"trust_proxy,omitempty"`
}

// ObservabilityConfig configures the metrics and health listener. An empty
// Addr disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL             string `koanf:"url" json:"url,omitempty"`
	MaxConns        int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts,omitempty"`
	AutoMigrate     bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
}

// AuthConfig configures hashing and tokens.
type AuthConfig struct {
	JWTSecret             string        `koanf:"jwt_secret" json:"jwt_secret,omitempty"`
	JWTIssuer             string        `koanf:"jwt_issuer" json:"jwt_issuer,omitempty"`
	LoginTokenTTL         time.Duration `koanf:"login_token_ttl" json:"login_token_ttl,omitempty"`
	ResetTokenTTL         time.Duration `koanf:"reset_token_ttl" json:"reset_token_ttl,omitempty"`
	AuthorizationTokenTTL time.Duration `koanf:"authorization_token_ttl" json:"authorization_token_ttl,omitempty"`
	Hasher                string        `koanf:"hasher" json:"hasher,omitempty" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost            int           `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31"`
	HashWorkers           int           `koanf:"hash_workers" json:"hash_workers,omitempty" jsonschema:"minimum=1"`
}

// MailConfig configures verification code delivery.
type MailConfig struct {
	Driver             string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=log,enum=smtp"`
	Host               string `koanf:"host" json:"host,omitempty"`
	Port               int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username           string `koanf:"username" json:"username,omitempty"`
	Password           string `koanf:"password" json:"password,omitempty"`
	From               string `koanf:"from" json:"from,omitempty"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify" json:"insecure_skip_verify,omitempty"`
	MaxRetries         uint64 `koanf:"max_retries" json:"max_retries,omitempty"`
}

// CleanupConfig configures the purge worker.
type CleanupConfig struct {
	Interval      time.Duration `koanf:"interval" json:"interval,omitempty"`
	CodeRetention time.Duration `koanf:"code_retention" json:"code_retention,omitempty"`
}

// RateLimitConfig configures the request limiter. Policies override the
// built-in route windows; their Route may be a glob such as "auth.*".
type RateLimitConfig struct {
	CleanupInterval time.Duration      `koanf:"cleanup_interval" json:"cleanup_interval,omitempty"`
	Policies        []ratelimit.Policy `koanf:"policies" json:"policies,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Observability: ObservabilityConfig{Addr: "127.0.0.1:9100"},
		Log:           LogConfig{Format: "json", Level: "info"},
		Store:         StorePostgres,
		Database: DatabaseConfig{
			MaxConns:        10,
			ConnectAttempts: 5,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			JWTIssuer:             "keystone",
			LoginTokenTTL:         auth.DefaultLoginTTL,
			ResetTokenTTL:         auth.DefaultResetTTL,
			AuthorizationTokenTTL: auth.DefaultAuthorizationTTL,
			Hasher:                auth.HasherBcrypt,
			BcryptCost:            auth.DefaultBcryptCost,
			HashWorkers:           4,
		},
		Mail: MailConfig{
			Driver:     MailDriverLog,
			Port:       587,
			MaxRetries: 3,
		},
		Cleanup: CleanupConfig{
			Interval:      time.Hour,
			CodeRetention: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{CleanupInterval: time.Minute},
	}
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}

// Validate checks the configuration for values the service cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "listen address is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "log format must be json or text, got %q", c.Log.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}

	switch c.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database url is required for the postgres store")
		}
	case StoreMemory:
	default:
		return invalid("store", "store must be postgres or memory, got %q", c.Store)
	}

	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.Mail.validate(); err != nil {
		return err
	}

	for i, p := range c.RateLimit.Policies {
		if p.Route == "" {
			return oops.Code("CONFIG_INVALID").With("field", "ratelimit.policies").With("index", i).
				Errorf("policy route is required")
		}
		if p.Limit < 0 || p.Window < 0 {
			return oops.Code("CONFIG_INVALID").With("field", "ratelimit.policies").With("index", i).
				Errorf("policy %q has a negative limit or window", p.Route)
		}
	}
	return nil
}

func (a *AuthConfig) validate() error {
	if len(a.JWTSecret) < MinSecretLength {
		return invalid("auth.jwt_secret", "jwt secret must be at least %d bytes", MinSecretLength)
	}
	for field, ttl := range map[string]time.Duration{
		"auth.login_token_ttl":         a.LoginTokenTTL,
		"auth.reset_token_ttl":         a.ResetTokenTTL,
		"auth.authorization_token_ttl": a.AuthorizationTokenTTL,
	} {
		if ttl <= 0 {
			return invalid(field, "token ttl must be positive")
		}
	}
	switch a.Hasher {
	case auth.HasherBcrypt:
		if a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost {
			return invalid("auth.bcrypt_cost", "bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case auth.HasherArgon2id:
	default:
		return invalid("auth.hasher", "unknown hasher %q", a.Hasher)
	}
	if a.HashWorkers < 1 {
		return invalid("auth.hash_workers", "hash workers must be at least 1")
	}
	return nil
}

func (m *MailConfig) validate() error {
	switch m.Driver {
	case MailDriverLog:
		return nil
	case MailDriverSMTP:
		if m.Host == "" {
			return invalid("mail.host", "smtp host is required")
		}
		if m.From == "" {
			return invalid("mail.from", "sender address is required")
		}
		return nil
	default:
		return invalid("mail.driver", "mail driver must be log or smtp, got %q", m.Driver)
	}
}
