// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keystone-crm/keystone/internal/config"
	"github.com/keystone-crm/keystone/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Keystone CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystone",
		Short: "Keystone - CRM authentication service",
		Long: `Keystone serves account registration, email verification, login,
password reset and logout for the Keystone CRM.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newPurgeCmd())

	return cmd
}

// loadConfig layers the config sources for cmd. The result is not
// validated; each command checks what it needs.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{Path: configFile, Flags: cmd.Flags()})
}

// requirePostgres rejects configurations that cannot reach the database.
func requirePostgres(cfg *config.Config) error {
	if cfg.Store != config.StorePostgres {
		return oops.Code("CONFIG_INVALID").With("field", "store").
			Errorf("this command needs the postgres store, got %q", cfg.Store)
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "database.url").
			Errorf("database url is required (set DATABASE_URL or --database-url)")
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(logging.Options{
		Service: "keystone",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   logging.ParseLevel(cfg.Log.Level),
	})
}
