/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtoledo1974/atcapp/internal/cache"
	"github.com/jtoledo1974/atcapp/internal/db"
	"github.com/jtoledo1974/atcapp/internal/eventbus"
	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/fixture"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/jtoledo1974/atcapp/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a YAML roster into the database",
	RunE:  runImport,
}

var (
	importFile        string
	importSkipInvalid bool
	importDryRun      bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "YAML roster file (required)")
	importCmd.Flags().BoolVar(&importSkipInvalid, "skip-invalid", false, "Skip periods with malformed activity labels")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and validate without saving")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	snap, err := fixture.LoadFile(importFile, fixture.Options{
		SkipInvalid: importSkipInvalid,
		DefaultUnit: cfg.DefaultUnit,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := roster.Validate(snap.Periods); err != nil {
		return err
	}
	if importDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d periods valid\n", snap.Unit, snap.Date.Format("2006-01-02"), len(snap.Periods))
		return nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	id, err := store.New(database, nil, logger).SaveSnapshot(cmd.Context(), snap)
	if err != nil {
		return err
	}

	notifyImported(cmd.Context(), id, snap)

	fmt.Fprintf(cmd.OutOrStdout(), "imported roster %s (%d periods)\n", id, len(snap.Periods))
	return nil
}

// notifyImported drops any cached copy of the roster and tells running
// servers about the import. Both steps are best effort.
func notifyImported(ctx context.Context, rosterID string, snap *store.Snapshot) {
	if cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = cfg.RedisAddr
		cacheCfg.RedisPassword = cfg.RedisPassword
		cacheCfg.RedisDB = cfg.RedisDB
		if c, err := cache.New(cacheCfg, logger); err == nil {
			if err := c.InvalidateRoster(ctx, rosterID); err != nil {
				logger.Warn().Err(err).Str("roster_id", rosterID).Msg("invalidate cached roster")
			}
			_ = c.Close()
		}
	}

	if cfg.EventRelayEnabled {
		relayCfg := eventbus.DefaultRedisConfig()
		relayCfg.Addr = cfg.RedisAddr
		relayCfg.Password = cfg.RedisPassword
		relayCfg.DB = cfg.RedisDB
		relay, err := eventbus.NewRelay(relayCfg, nil, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("event relay unavailable")
			return
		}
		defer relay.Close()
		err = relay.Publish(ctx, events.EventRosterImported, events.Payload{
			"roster_id": rosterID,
			"unit":      snap.Unit,
			"periods":   len(snap.Periods),
		})
		if err != nil {
			logger.Warn().Err(err).Str("roster_id", rosterID).Msg("announce imported roster")
		}
	}
}
