/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import "time"

// Status is the position of a period relative to the reference instant.
type Status string

const (
	StatusPast   Status = "PAST"
	StatusActive Status = "ACTIVE"
	StatusFuture Status = "FUTURE"
)

// Classify labels a period relative to now. When now falls outside the
// group's [groupStart, groupEnd] span every period is FUTURE, including
// after the group has closed.
func Classify(p Period, groupStart, groupEnd, now time.Time) Status {
	if now.Before(groupStart) || now.After(groupEnd) {
		return StatusFuture
	}
	if p.End.Before(now) {
		return StatusPast
	}
	if p.Start.After(now) {
		return StatusFuture
	}
	return StatusActive
}

// MarkerPosition places now on the [start, end] ruler as a percentage,
// clamped to 0 before the span and 100 after it.
func MarkerPosition(start, end, now time.Time) float64 {
	if now.Before(start) {
		return 0
	}
	if now.After(end) || !end.After(start) {
		return 100
	}
	return float64(now.Sub(start)) / float64(end.Sub(start)) * 100
}
