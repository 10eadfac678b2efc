/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeutil holds the instant helpers shared by the roster engine.
//
// Every instant is stored and compared as UTC. Local wall-clock time only
// exists at the display edge, through Local and Clock.
package timeutil

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// ClockLayout is the wall-clock format used for period boundaries.
const ClockLayout = "15:04"

// Default closing times for the morning and evening shifts, in local time.
const (
	MorningClose = "15:00"
	EveningClose = "22:30"
)

// DefaultZone is used when a unit has no known timezone.
const DefaultZone = "Europe/Madrid"

var unitZones = map[string]string{
	"LECM": "Europe/Madrid",
	"LECS": "Europe/Madrid",
	"LECB": "Europe/Madrid",
	"GCCC": "Atlantic/Canary",
}

// Local converts t to the display location. A nil location means UTC.
func Local(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}

// Clock renders t as HH:MM in the display location.
func Clock(t time.Time, loc *time.Location) string {
	return Local(t, loc).Format(ClockLayout)
}

// Minutes returns the whole minutes between start and end.
func Minutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// LocationForUnit returns the display timezone of a control unit. The second
// return value is false when the unit is unknown and the default zone was used.
func LocationForUnit(unit string) (*time.Location, bool) {
	name, known := unitZones[strings.ToUpper(strings.TrimSpace(unit))]
	if !known {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, known
}

// AtClock combines a calendar date with an HH:MM wall-clock value in loc and
// returns the resulting instant in UTC.
func AtClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.Parse(ClockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	local := time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// Span is a half-open instant window.
type Span struct {
	Start time.Time
	End   time.Time
}

// InferEnds derives period windows from an ordered list of start instants.
// Each period ends where the next one starts; the last one ends at
// morningClose when it starts before it, otherwise at eveningClose.
func InferEnds(starts []time.Time, morningClose, eveningClose time.Time) []Span {
	spans := make([]Span, 0, len(starts))
	for i, start := range starts {
		var end time.Time
		switch {
		case i+1 < len(starts):
			end = starts[i+1]
		case start.Before(morningClose):
			end = morningClose
		default:
			end = eveningClose
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}
