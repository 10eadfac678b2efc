/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jtoledo1974/atcapp/internal/board"
	"github.com/jtoledo1974/atcapp/internal/db"
	"github.com/jtoledo1974/atcapp/internal/fixture"
	"github.com/jtoledo1974/atcapp/internal/palette"
	"github.com/jtoledo1974/atcapp/internal/store"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print a roster board as JSON",
	Long:  "Present a roster from a YAML fixture (--file) or from the database (--roster) and print the board as JSON.",
	RunE:  runBoard,
}

var (
	boardFile        string
	boardRosterID    string
	boardViewer      string
	boardNow         string
	boardSkipInvalid bool
)

func init() {
	rootCmd.AddCommand(boardCmd)

	boardCmd.Flags().StringVar(&boardFile, "file", "", "YAML roster fixture to present")
	boardCmd.Flags().StringVar(&boardRosterID, "roster", "", "Stored roster id to present")
	boardCmd.Flags().StringVar(&boardViewer, "viewer", "", "Controller id or name of the viewer")
	boardCmd.Flags().StringVar(&boardNow, "now", "", "Reference instant (RFC3339), defaults to the current time")
	boardCmd.Flags().BoolVar(&boardSkipInvalid, "skip-invalid", false, "Skip periods with malformed activity labels")
	boardCmd.MarkFlagsMutuallyExclusive("file", "roster")
	boardCmd.MarkFlagsOneRequired("file", "roster")
}

func runBoard(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	now, err := parseNowFlag(boardNow)
	if err != nil {
		return err
	}

	colors := palette.DefaultPalette
	if cfg.PaletteFile != "" {
		if colors, err = palette.LoadFile(cfg.PaletteFile); err != nil {
			return err
		}
	}

	opts := board.Options{DefaultUnit: cfg.DefaultUnit, Palette: colors}
	if boardFile != "" {
		res, err := presentFixture(cmd.Context(), boardFile, opts, boardViewer, now, boardSkipInvalid, logger)
		if err != nil {
			return err
		}
		return writeBoard(cmd.OutOrStdout(), res)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	st := store.New(database, nil, logger)
	svc := board.NewService(st, nil, opts, logger)
	res, err := svc.Board(cmd.Context(), boardRosterID, viewerID(boardViewer), now)
	if err != nil {
		return err
	}
	return writeBoard(cmd.OutOrStdout(), res)
}

// presentFixture renders the board of a fixture file without touching storage.
func presentFixture(ctx context.Context, path string, opts board.Options, viewer string, now time.Time, skipInvalid bool, logger zerolog.Logger) (*board.Result, error) {
	snap, err := fixture.LoadFile(path, fixture.Options{
		SkipInvalid: skipInvalid,
		DefaultUnit: opts.DefaultUnit,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	svc := board.NewService(nil, nil, opts, logger)
	return svc.Present(ctx, snap, viewerID(viewer), now)
}

// viewerID accepts either a controller uuid or a display name.
func viewerID(viewer string) string {
	if viewer == "" {
		return ""
	}
	if _, err := uuid.Parse(viewer); err == nil {
		return viewer
	}
	return store.ControllerID(viewer)
}

func parseNowFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	now, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: %w", value, err)
	}
	return now.UTC(), nil
}

func writeBoard(w io.Writer, res *board.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
