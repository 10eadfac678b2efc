/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/board"
	"github.com/jtoledo1974/atcapp/internal/fixture"
	"github.com/jtoledo1974/atcapp/internal/logbuffer"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/jtoledo1974/atcapp/internal/store"
)

// maxImportBytes bounds the size of an uploaded roster fixture.
const maxImportBytes = 1 << 20

// Boards renders presented boards.
type Boards interface {
	Board(ctx context.Context, rosterID, viewerID string, now time.Time) (*board.Result, error)
	ControllerBoard(ctx context.Context, controllerID string, now time.Time) (*board.Result, error)
	Personal(ctx context.Context, rosterID, controllerID string, now time.Time) (*roster.PersonalView, error)
}

// Importer persists decoded rosters.
type Importer interface {
	SaveSnapshot(ctx context.Context, snap *store.Snapshot) (string, error)
}

// API exposes the roster board over HTTP.
type API struct {
	boards      Boards
	importer    Importer
	defaultUnit string
	logBuffer   *logbuffer.Buffer
	logger      zerolog.Logger
}

// New creates the API router wrapper. importer may be nil, which disables
// roster uploads.
func New(boards Boards, importer Importer, defaultUnit string, logger zerolog.Logger) *API {
	return &API{
		boards:      boards,
		importer:    importer,
		defaultUnit: defaultUnit,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// SetLogBuffer enables the recent log endpoint.
func (a *API) SetLogBuffer(buf *logbuffer.Buffer) {
	a.logBuffer = buf
}

// Routes mounts the API under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/rosters", func(r chi.Router) {
			r.Post("/", a.handleRosterImport)
			r.Route("/{rosterID}", func(r chi.Router) {
				r.Get("/board", a.handleRosterBoard)
				r.Get("/personal/{controllerID}", a.handlePersonal)
			})
		})
		r.Get("/controllers/{controllerID}/board", a.handleControllerBoard)
		r.Get("/logs", a.handleLogs)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleRosterBoard(w http.ResponseWriter, r *http.Request) {
	rosterID := chi.URLParam(r, "rosterID")
	now, ok := parseNow(w, r)
	if !ok {
		return
	}

	res, err := a.boards.Board(r.Context(), rosterID, r.URL.Query().Get("viewer"), now)
	if err != nil {
		a.writeBoardError(w, err, rosterID)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handlePersonal(w http.ResponseWriter, r *http.Request) {
	rosterID := chi.URLParam(r, "rosterID")
	controllerID := chi.URLParam(r, "controllerID")
	now, ok := parseNow(w, r)
	if !ok {
		return
	}

	view, err := a.boards.Personal(r.Context(), rosterID, controllerID, now)
	if err != nil {
		a.writeBoardError(w, err, rosterID)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleControllerBoard(w http.ResponseWriter, r *http.Request) {
	controllerID := chi.URLParam(r, "controllerID")
	now, ok := parseNow(w, r)
	if !ok {
		return
	}

	res, err := a.boards.ControllerBoard(r.Context(), controllerID, now)
	if err != nil {
		a.writeBoardError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleRosterImport(w http.ResponseWriter, r *http.Request) {
	if a.importer == nil {
		writeError(w, http.StatusNotImplemented, "import_disabled")
		return
	}

	snap, err := fixture.Load(http.MaxBytesReader(w, r.Body, maxImportBytes), fixture.Options{
		SkipInvalid: r.URL.Query().Get("skip_invalid") == "true",
		DefaultUnit: a.defaultUnit,
		Logger:      a.logger,
	})
	switch {
	case errors.Is(err, activity.ErrFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed_activity", "detail": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_roster", "detail": err.Error()})
		return
	}

	id, err := a.importer.SaveSnapshot(r.Context(), snap)
	if err != nil {
		a.logger.Error().Err(err).Msg("save imported roster failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"roster_id": id, "periods": len(snap.Periods)})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusNotImplemented, "log_buffer_disabled")
		return
	}

	q := r.URL.Query()
	query := logbuffer.Query{
		Level:     q.Get("level"),
		Component: q.Get("component"),
		RosterID:  q.Get("roster_id"),
		Limit:     100,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		query.Limit = n
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		query.Since = since
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": a.logBuffer.Find(query)})
}

// writeBoardError maps service errors onto HTTP statuses.
func (a *API) writeBoardError(w http.ResponseWriter, err error, rosterID string) {
	switch {
	case errors.Is(err, store.ErrRosterNotFound):
		writeError(w, http.StatusNotFound, "roster_not_found")
	case errors.Is(err, roster.ErrNotFound):
		writeError(w, http.StatusNotFound, "controller_not_on_roster")
	case errors.Is(err, activity.ErrFormat):
		// Stored data that cannot be presented.
		a.logger.Error().Err(err).Str("roster_id", rosterID).Msg("roster holds a malformed period")
		writeError(w, http.StatusUnprocessableEntity, "malformed_activity")
	default:
		a.logger.Error().Err(err).Str("roster_id", rosterID).Msg("present board failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// parseNow reads the optional RFC 3339 "now" query parameter.
func parseNow(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Time{}, true
	}
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_now")
		return time.Time{}, false
	}
	return now.UTC(), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
