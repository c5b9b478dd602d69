// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package main

import (
	"github.com/spf13/cobra"

	authpg "github.com/removahq/portal/internal/auth/postgres"
	"github.com/removahq/portal/internal/store"
)

// NewSweepCmd creates the sweep subcommand: a one-shot removal of expired
// sign-in tokens, for operators who run maintenance from cron instead of
// the serve loop.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sign-in tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireDatabaseURL()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			deleted, err := authpg.NewLoginTokenRepository(pool).DeleteExpired(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("deleted %d expired tokens\n", deleted)
			return nil
		},
	}
}
