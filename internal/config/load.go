// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/keystone-crm/keystone/internal/xdg"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: KEYSTONE_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "KEYSTONE_"

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "observability.addr",
	"store":        "store",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP API listen address")
	fs.String("metrics-addr", d.Observability.Addr, "metrics and health listen address (empty disables)")
	fs.String("store", d.Store, "credential store: postgres or memory")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
}

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// Path is an explicit config file. When empty the XDG default is used
	// if it exists.
	Path string
	// Flags holds overrides registered with RegisterFlags. Only flags set
	// on the command line take effect.
	Flags *pflag.FlagSet
}

// Load layers defaults, the YAML file, DATABASE_URL, KEYSTONE_ environment
// variables and command-line flags, lowest precedence first. The result is
// not validated; call Validate.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path := opts.Path
	if path == "" {
		found, err := xdg.DefaultConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "DATABASE_URL").Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps KEYSTONE_AUTH__JWT_SECRET to auth.jwt_secret.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// defaultValues flattens Default into koanf keys.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"server.addr":                  d.Server.Addr,
		"server.read_header_timeout":   d.Server.ReadHeaderTimeout,
		"server.request_timeout":       d.Server.RequestTimeout,
		"server.shutdown_timeout":      d.Server.ShutdownTimeout,
		"server.trust_proxy":           d.Server.TrustProxy,
		"observability.addr":           d.Observability.Addr,
		"log.format":                   d.Log.Format,
		"log.level":                    d.Log.Level,
		"store":                        d.Store,
		"database.url":                 d.Database.URL,
		"database.max_conns":           d.Database.MaxConns,
		"database.connect_attempts":    d.Database.ConnectAttempts,
		"database.auto_migrate":        d.Database.AutoMigrate,
		"auth.jwt_secret":              d.Auth.JWTSecret,
		"auth.jwt_issuer":              d.Auth.JWTIssuer,
		"auth.login_token_ttl":         d.Auth.LoginTokenTTL,
		"auth.reset_token_ttl":         d.Auth.ResetTokenTTL,
		"auth.authorization_token_ttl": d.Auth.AuthorizationTokenTTL,
		"auth.hasher":                  d.Auth.Hasher,
		"auth.bcrypt_cost":             d.Auth.BcryptCost,
		"auth.hash_workers":            d.Auth.HashWorkers,
		"mail.driver":                  d.Mail.Driver,
		"mail.port":                    d.Mail.Port,
		"mail.max_retries":             d.Mail.MaxRetries,
		"cleanup.interval":             d.Cleanup.Interval,
		"cleanup.code_retention":       d.Cleanup.CodeRetention,
		"ratelimit.cleanup_interval":   d.RateLimit.CleanupInterval,
	}
}
