/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/palette"
	"github.com/jtoledo1974/atcapp/internal/timeutil"
)

// PeriodView is a period ready for the rendering layer.
type PeriodView struct {
	Start      string        `json:"start"`
	End        string        `json:"end"`
	StartsAt   time.Time     `json:"starts_at"`
	EndsAt     time.Time     `json:"ends_at"`
	Label      string        `json:"label"`
	Code       activity.Code `json:"code"`
	WorkArea   string        `json:"work_area,omitempty"`
	Color      string        `json:"color"`
	Duration   int           `json:"duration"`
	Percentage float64       `json:"percentage"`
	Status     Status        `json:"status"`
	Anchor     bool          `json:"anchor"`
}

// Row is one controller line of a group.
type Row struct {
	ControllerID string       `json:"controller_id"`
	Name         string       `json:"name"`
	IsViewer     bool         `json:"is_viewer"`
	Periods      []PeriodView `json:"periods"`
}

// HeaderSlot is a rendered TimelineEntry.
type HeaderSlot struct {
	Start      string    `json:"start"`
	StartsAt   time.Time `json:"starts_at"`
	Duration   int       `json:"duration"`
	Percentage float64   `json:"percentage"`
}

// GroupView is the render record of one group.
type GroupView struct {
	WorkAreas []string     `json:"work_areas"`
	Duration  int          `json:"duration"`
	Rows      []Row        `json:"rows"`
	Header    []HeaderSlot `json:"header"`
	Marker    float64      `json:"marker"`
}

// DurationWarning reports a member whose periods do not cover the group span.
type DurationWarning struct {
	ControllerID string   `json:"controller_id"`
	Name         string   `json:"name"`
	WorkAreas    []string `json:"work_areas"`
	Expected     int      `json:"expected"`
	Actual       int      `json:"actual"`
}

func (w DurationWarning) String() string {
	return fmt.Sprintf("controller %s covers %d of %d minutes", w.ControllerID, w.Actual, w.Expected)
}

// Board is the full presentation of one roster.
type Board struct {
	Now      time.Time                 `json:"now"`
	Zone     string                    `json:"zone"`
	Groups   []GroupView               `json:"groups"`
	Personal *PersonalView             `json:"personal,omitempty"`
	Colors   map[string]palette.Shades `json:"colors"`
	Warnings []DurationWarning         `json:"warnings,omitempty"`
}

// Options configures one presentation.
type Options struct {
	ViewerID string
	Now      time.Time
	Location *time.Location
}

// Presenter assembles boards from duty periods.
type Presenter struct {
	palette []string
	logger  zerolog.Logger
}

// NewPresenter returns a presenter using colors (DefaultPalette when empty).
func NewPresenter(colors []string, logger zerolog.Logger) *Presenter {
	return &Presenter{
		palette: colors,
		logger:  logger.With().Str("component", "roster_presenter").Logger(),
	}
}

// Present builds the board for periods. A malformed period aborts with a
// *activity.FormatError. A viewer without periods yields a board without a
// personal view.
func (p *Presenter) Present(periods []Period, opts Options) (*Board, error) {
	if err := Validate(periods); err != nil {
		return nil, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	groups := FindGroups(periods)
	SelectAnchor(groups, opts.ViewerID, now)

	// One allocator per call keeps colors stable across all groups of the board.
	colors := palette.NewAllocator(p.palette)
	board := &Board{
		Now:    now,
		Zone:   loc.String(),
		Groups: make([]GroupView, 0, len(groups)),
	}
	for _, g := range groups {
		board.Groups = append(board.Groups, renderGroup(g, colors, loc, opts.ViewerID, now))
		for _, w := range CheckDurations(g) {
			p.logger.Warn().
				Str("controller_id", w.ControllerID).
				Int("expected", w.Expected).
				Int("actual", w.Actual).
				Strs("work_areas", w.WorkAreas).
				Msg("member periods do not cover the group span")
			board.Warnings = append(board.Warnings, w)
		}
	}
	board.Colors = colors.Assignments()

	if opts.ViewerID != "" {
		view, err := ComposePersonalView(opts.ViewerID, board.Groups)
		switch {
		case errors.Is(err, ErrNotFound):
			p.logger.Debug().Str("viewer_id", opts.ViewerID).Msg("viewer has no periods in roster")
		case err != nil:
			return nil, err
		default:
			board.Personal = view
		}
	}
	return board, nil
}

// Validate checks that every working period names a work-area.
func Validate(periods []Period) error {
	for _, per := range periods {
		if per.Code == activity.Rest {
			continue
		}
		if per.Code == "" || per.WorkArea == "" {
			return &activity.FormatError{Label: activity.Label(per.Code, per.WorkArea)}
		}
	}
	return nil
}

// CheckDurations compares each member's covered minutes with the group span.
func CheckDurations(g Group) []DurationWarning {
	var warnings []DurationWarning
	for _, m := range g.Members {
		total := 0
		for _, per := range m.Periods {
			total += per.Minutes()
		}
		if total != g.Duration {
			warnings = append(warnings, DurationWarning{
				ControllerID: m.Controller.ID,
				Name:         m.Controller.Name,
				WorkAreas:    g.WorkAreas,
				Expected:     g.Duration,
				Actual:       total,
			})
		}
	}
	return warnings
}

func renderGroup(g Group, colors *palette.Allocator, loc *time.Location, viewerID string, now time.Time) GroupView {
	view := GroupView{
		WorkAreas: append([]string(nil), g.WorkAreas...),
		Duration:  g.Duration,
		Rows:      make([]Row, 0, len(g.Members)),
		Marker:    MarkerPosition(g.Start, g.End, now),
	}

	for _, m := range g.Members {
		row := Row{
			ControllerID: m.Controller.ID,
			Name:         m.Controller.Name,
			IsViewer:     viewerID != "" && m.Controller.ID == viewerID,
			Periods:      make([]PeriodView, 0, len(m.Periods)),
		}
		for _, per := range m.Periods {
			minutes := per.Minutes()
			row.Periods = append(row.Periods, PeriodView{
				Start:      timeutil.Clock(per.Start, loc),
				End:        timeutil.Clock(per.End, loc),
				StartsAt:   per.Start,
				EndsAt:     per.End,
				Label:      activity.Label(per.Code, per.WorkArea),
				Code:       per.Code,
				WorkArea:   workAreaOf(per),
				Color:      colors.ColorForPeriod(per.Code, per.WorkArea),
				Duration:   minutes,
				Percentage: percentOf(minutes, g.Duration),
				Status:     Classify(per, g.Start, g.End, now),
				Anchor:     g.Anchor != nil && g.Anchor.same(per),
			})
		}
		view.Rows = append(view.Rows, row)
	}

	for _, e := range BuildHeader(g) {
		view.Header = append(view.Header, HeaderSlot{
			Start:      timeutil.Clock(e.Start, loc),
			StartsAt:   e.Start,
			Duration:   e.Duration,
			Percentage: e.Percentage,
		})
	}
	return view
}

func workAreaOf(p Period) string {
	if p.IsRest() {
		return ""
	}
	return p.WorkArea
}
