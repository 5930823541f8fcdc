// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/auth/memory"
	"github.com/keystone-crm/keystone/internal/auth/postgres"
	"github.com/keystone-crm/keystone/internal/config"
	"github.com/keystone-crm/keystone/internal/observability"
	"github.com/keystone-crm/keystone/internal/store"
)

// backend is the credential store selected by config.
type backend struct {
	accounts auth.AccountRepository
	codes    auth.VerificationCodeRepository
	revoked  auth.RevokedTokenRepository
	ping     observability.ReadinessChecker
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.WarnContext(ctx, "using the in-memory store, accounts are lost on restart")
		ms := memory.NewStore()
		return &backend{
			accounts: ms.Accounts,
			codes:    ms.Codes,
			revoked:  ms.Revoked,
			ping:     ms.Ping,
			close:    func() {},
		}, nil
	case config.StorePostgres:
	default:
		return nil, oops.Code("CONFIG_INVALID").With("field", "store").Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Database.AutoMigrate {
		if err := deps.MigrateUp(cfg.Database.URL, logger); err != nil {
			return nil, oops.Code("AUTO_MIGRATE_FAILED").With("operation", "auto-migrate").Wrap(err)
		}
	}
	pool, err := deps.OpenPool(ctx, store.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		Logger:          logger,
	})
	if err != nil {
		return nil, oops.With("operation", "open database").Wrap(err)
	}
	return &backend{
		accounts: postgres.NewAccountRepository(pool),
		codes:    postgres.NewCodeRepository(pool),
		revoked:  postgres.NewRevokedTokenRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}
