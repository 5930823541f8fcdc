// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/cleanup"
	"github.com/keystone-crm/keystone/internal/config"
	"github.com/keystone-crm/keystone/internal/httpapi"
	"github.com/keystone-crm/keystone/internal/mail"
	"github.com/keystone-crm/keystone/internal/observability"
	"github.com/keystone-crm/keystone/internal/ratelimit"
)

const defaultShutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API",
		Long: `Start the HTTP API under /api/auth, the metrics and health listener
and the worker that purges expired codes and revoked tokens.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd.OutOrStdout(), nil)
		},
	}
}

// runServeWithDeps runs the service until ctx is done or a server fails,
// then shuts everything down within the configured timeout.
func runServeWithDeps(ctx context.Context, cfg *config.Config, out io.Writer, deps *ServeDeps) error {
	deps = deps.withDefaults()
	logger := newLogger(cfg)

	be, err := openBackend(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer be.close()

	var obs ObservabilityServer
	var reg *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		obs = deps.NewObservabilityServer(cfg.Observability.Addr, be.ping, logger)
		reg, metrics = obs.Registry(), obs.Metrics()
	} else {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
	}

	mailer, err := deps.NewMailer(cfg.Mail, logger)
	if err != nil {
		return err
	}
	svc, err := newAuthService(cfg, be, mailer, metrics, logger)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.NewWithRegistry(ratelimit.Config{
		Overrides:       cfg.RateLimit.Policies,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}, reg)
	if err != nil {
		return err
	}
	defer limiter.Close()

	api, err := httpapi.New(httpapi.Config{
		Service:        svc,
		Limiter:        limiter,
		Metrics:        metrics,
		Logger:         logger,
		TrustProxy:     cfg.Server.TrustProxy,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}

	purger, err := cleanup.New(cleanup.Config{
		Codes:         be.codes,
		Revoked:       be.revoked,
		Interval:      cfg.Cleanup.Interval,
		CodeRetention: cfg.Cleanup.CodeRetention,
		Logger:        logger,
		Observe:       metrics.ObservePurge,
	})
	if err != nil {
		return err
	}

	ln, err := deps.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("SERVE_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	var obsErrs <-chan error
	if obs != nil {
		obsErrs, err = obs.Start()
		if err != nil {
			_ = ln.Close()
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVE_FAILED").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		return purger.Run(gctx)
	})
	if obsErrs != nil {
		g.Go(func() error {
			select {
			case err, ok := <-obsErrs:
				if ok && err != nil {
					return oops.Code("OBSERVABILITY_FAILED").Wrap(err)
				}
			case <-gctx.Done():
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout, srv, obs, logger)
	})

	addr := ln.Addr().String()
	logger.InfoContext(ctx, "keystone started",
		"addr", addr,
		"store", cfg.Store,
		"metrics_addr", cfg.Observability.Addr)
	_, _ = fmt.Fprintf(out, "Keystone listening on %s\n", addr)
	if deps.Ready != nil {
		deps.Ready(addr)
	}

	err = g.Wait()
	logger.InfoContext(context.WithoutCancel(ctx), "keystone stopped")
	return err
}

func shutdown(ctx context.Context, timeout time.Duration, srv *http.Server, obs ObservabilityServer, logger *slog.Logger) error {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.InfoContext(ctx, "shutting down", "timeout", timeout)
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, oops.Code("SHUTDOWN_FAILED").With("component", "api").Wrap(err))
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil {
			errs = append(errs, oops.Code("SHUTDOWN_FAILED").With("component", "observability").Wrap(err))
		}
	}
	return errors.Join(errs...)
}

func newAuthService(cfg *config.Config, be *backend, mailer auth.Mailer, metrics *observability.Metrics, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	return auth.NewService(auth.Config{
		Accounts: be.accounts,
		Codes:    be.codes,
		Revoked:  be.revoked,
		Hashes:   auth.NewHashPool(hasher, cfg.Auth.HashWorkers, metrics.ObserveHash),
		Tokens: auth.NewTokenIssuer(auth.TokenConfig{
			Secret:           []byte(cfg.Auth.JWTSecret),
			Issuer:           cfg.Auth.JWTIssuer,
			LoginTTL:         cfg.Auth.LoginTokenTTL,
			ResetTTL:         cfg.Auth.ResetTokenTTL,
			AuthorizationTTL: cfg.Auth.AuthorizationTokenTTL,
		}),
		Mailer:  mailer,
		Logger:  logger,
		Observe: metrics.ObserveOutcome,
	})
}

func newMailer(cfg config.MailConfig, logger *slog.Logger) (auth.Mailer, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:               cfg.Host,
			Port:               cfg.Port,
			Username:           cfg.Username,
			Password:           cfg.Password,
			From:               cfg.From,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			MaxRetries:         cfg.MaxRetries,
		})
	case config.MailDriverLog, "":
		return mail.NewLogMailer(logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("field", "mail.driver").Errorf("unknown mail driver %q", cfg.Driver)
	}
}
