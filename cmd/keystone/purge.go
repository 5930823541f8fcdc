// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/keystone-crm/keystone/internal/cleanup"
	"github.com/keystone-crm/keystone/internal/config"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired verification codes and revoked tokens once",
		Long: `Purge runs one cleanup pass against the PostgreSQL store and exits.
It is meant for cron jobs when the serve worker is not running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}
			return runPurgeWithDeps(cmd.Context(), cfg, cmd.OutOrStdout(), nil)
		},
	}
}

func runPurgeWithDeps(ctx context.Context, cfg *config.Config, out io.Writer, deps *ServeDeps) error {
	deps = deps.withDefaults()
	logger := newLogger(cfg)

	be, err := openBackend(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer be.close()

	purger, err := cleanup.New(cleanup.Config{
		Codes:         be.codes,
		Revoked:       be.revoked,
		CodeRetention: cfg.Cleanup.CodeRetention,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	res, err := purger.PurgeOnce(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Purged %d verification codes and %d revoked tokens\n", res.Codes, res.Tokens)
	return nil
}
