// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/auth/postgres"
	"github.com/keystone-crm/keystone/internal/config"
	"github.com/keystone-crm/keystone/internal/observability"
	"github.com/keystone-crm/keystone/internal/store"
)

// DBPool is the pool surface the commands use. *pgxpool.Pool and pgxmock's
// pool both satisfy it.
type DBPool interface {
	postgres.Pool
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer abstracts the metrics and health server for testing.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registry() *prometheus.Registry
}

// PoolOpener opens the database pool.
type PoolOpener func(ctx context.Context, opts store.Options) (DBPool, error)

// MigrateFunc applies every pending migration.
type MigrateFunc func(databaseURL string, logger *slog.Logger) error

// ObservabilityServerFactory creates the observability server.
type ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

// MailerFactory builds the mailer that delivers verification codes.
type MailerFactory func(cfg config.MailConfig, logger *slog.Logger) (auth.Mailer, error)

// ListenFunc opens the API listener.
type ListenFunc func(network, address string) (net.Listener, error)

// ServeDeps holds the dependencies of the serve and purge commands. Nil
// fields use the production implementations.
type ServeDeps struct {
	OpenPool               PoolOpener
	MigrateUp              MigrateFunc
	NewObservabilityServer ObservabilityServerFactory
	Listen                 ListenFunc
	NewMailer              MailerFactory

	// Ready is called with the API address once it accepts connections.
	Ready func(addr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.OpenPool == nil {
		out.OpenPool = openPool
	}
	if out.MigrateUp == nil {
		out.MigrateUp = store.MigrateUp
	}
	if out.NewObservabilityServer == nil {
		out.NewObservabilityServer = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	if out.NewMailer == nil {
		out.NewMailer = newMailer
	}
	return &out
}

func openPool(ctx context.Context, opts store.Options) (DBPool, error) {
	pool, err := store.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
