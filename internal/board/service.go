/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package board serves presented roster boards: it loads a snapshot from the
// cache or the store, resolves the unit's display zone and runs the presenter.
package board

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/jtoledo1974/atcapp/internal/store"
	"github.com/jtoledo1974/atcapp/internal/telemetry"
	"github.com/jtoledo1974/atcapp/internal/timeutil"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Source loads roster snapshots.
type Source interface {
	LoadRoster(ctx context.Context, rosterID string) (*store.Snapshot, error)
	LatestRosterFor(ctx context.Context, controllerID string) (*store.Snapshot, error)
}

// SnapshotCache is the optional read-through cache in front of Source.
type SnapshotCache interface {
	GetRoster(ctx context.Context, rosterID string) (*store.Snapshot, bool)
	SetRoster(ctx context.Context, snap *store.Snapshot) error
	GetLatestRosterID(ctx context.Context, controllerID string) (string, bool)
	SetLatestRosterID(ctx context.Context, controllerID, rosterID string) error
}

// Options configures a Service.
type Options struct {
	DefaultUnit string
	Palette     []string
	Bus         *events.Bus
}

// Result is a presented board together with the roster it came from.
type Result struct {
	RosterID string `json:"roster_id"`
	Unit     string `json:"unit"`
	Date     string `json:"date"`
	*roster.Board
}

// Service renders boards. It is safe for concurrent use.
type Service struct {
	source      Source
	cache       SnapshotCache
	bus         *events.Bus
	defaultUnit string
	presenter   atomic.Pointer[roster.Presenter]
	base        zerolog.Logger
	logger      zerolog.Logger
}

// NewService creates a board service. cache may be nil.
func NewService(source Source, cache SnapshotCache, opts Options, logger zerolog.Logger) *Service {
	s := &Service{
		source:      source,
		cache:       cache,
		bus:         opts.Bus,
		defaultUnit: opts.DefaultUnit,
		base:        logger,
		logger:      logger.With().Str("component", "board").Logger(),
	}
	s.presenter.Store(roster.NewPresenter(opts.Palette, logger))
	return s
}

// SetPalette swaps the colors used by subsequent boards.
func (s *Service) SetPalette(colors []string) {
	s.presenter.Store(roster.NewPresenter(colors, s.base))
}

// Board presents rosterID for viewerID at now. A zero now means the current time.
func (s *Service) Board(ctx context.Context, rosterID, viewerID string, now time.Time) (*Result, error) {
	snap, err := s.snapshot(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	return s.Present(ctx, snap, viewerID, now)
}

// ControllerBoard presents the latest roster listing controllerID, with the
// controller as viewer.
func (s *Service) ControllerBoard(ctx context.Context, controllerID string, now time.Time) (*Result, error) {
	if s.cache != nil {
		if id, ok := s.cache.GetLatestRosterID(ctx, controllerID); ok {
			return s.Board(ctx, id, controllerID, now)
		}
	}

	snap, err := s.source.LatestRosterFor(ctx, controllerID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetRoster(ctx, snap)
		_ = s.cache.SetLatestRosterID(ctx, controllerID, snap.RosterID)
	}
	return s.Present(ctx, snap, controllerID, now)
}

// Personal returns the viewer's personal view on rosterID, or a
// *roster.NotFoundError when the viewer has no periods there.
func (s *Service) Personal(ctx context.Context, rosterID, controllerID string, now time.Time) (*roster.PersonalView, error) {
	res, err := s.Board(ctx, rosterID, controllerID, now)
	if err != nil {
		return nil, err
	}
	if res.Personal == nil {
		return nil, &roster.NotFoundError{ControllerID: controllerID}
	}
	return res.Personal, nil
}

// Present renders an already loaded snapshot.
func (s *Service) Present(ctx context.Context, snap *store.Snapshot, viewerID string, now time.Time) (*Result, error) {
	_, span := telemetry.StartSpan(ctx, "board.present",
		attribute.String("roster.id", snap.RosterID),
		attribute.String("roster.unit", snap.Unit),
		attribute.Int("roster.periods", len(snap.Periods)),
	)
	defer span.End()

	unit := snap.Unit
	if unit == "" {
		unit = s.defaultUnit
	}
	loc, known := timeutil.LocationForUnit(unit)
	if !known {
		s.logger.Warn().Str("unit", unit).Str("zone", loc.String()).Msg("unknown control unit, using default zone")
	}

	start := time.Now()
	board, err := s.presenter.Load().Present(snap.Periods, roster.Options{
		ViewerID: viewerID,
		Now:      now,
		Location: loc,
	})
	telemetry.BoardPresentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, activity.ErrFormat) {
			outcome = "format_error"
		}
		telemetry.BoardsPresentedTotal.WithLabelValues(outcome).Inc()
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.BoardsPresentedTotal.WithLabelValues("ok").Inc()
	telemetry.BoardGroups.Observe(float64(len(board.Groups)))
	for _, w := range board.Warnings {
		telemetry.DurationWarningsTotal.Inc()
		s.bus.Publish(events.EventDurationWarning, events.Payload{
			"roster_id":     snap.RosterID,
			"controller_id": w.ControllerID,
			"expected":      w.Expected,
			"actual":        w.Actual,
		})
	}
	if n := len(board.Warnings); n > 0 {
		s.logger.Warn().Str("roster_id", snap.RosterID).Int("warnings", n).Msg("board has duration warnings")
	}
	span.SetAttributes(attribute.Int("board.groups", len(board.Groups)))

	res := &Result{RosterID: snap.RosterID, Unit: unit, Board: board}
	if !snap.Date.IsZero() {
		res.Date = snap.Date.Format(time.DateOnly)
	}
	s.logger.Debug().
		Str("roster_id", snap.RosterID).
		Str("viewer_id", viewerID).
		Int("groups", len(board.Groups)).
		Msg("board presented")
	return res, nil
}

func (s *Service) snapshot(ctx context.Context, rosterID string) (*store.Snapshot, error) {
	if s.cache != nil {
		if snap, ok := s.cache.GetRoster(ctx, rosterID); ok {
			return snap, nil
		}
	}
	snap, err := s.source.LoadRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRoster(ctx, snap); err != nil {
			s.logger.Debug().Err(err).Str("roster_id", rosterID).Msg("cache roster snapshot")
		}
	}
	return snap, nil
}
