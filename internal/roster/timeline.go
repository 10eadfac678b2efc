/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import (
	"sort"
	"time"
)

// BuildHeader merges every member's periods into one ruler of distinct start
// instants. Each slot lasts until the next distinct start; the last slot lasts
// until the group's closing time, so the slot durations add up to g.Duration.
func BuildHeader(g Group) []TimelineEntry {
	pool := g.Periods()
	if len(pool) == 0 {
		return nil
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Start.Before(pool[j].Start) })

	closing := g.End
	entries := make([]TimelineEntry, 0, len(pool))
	for i := 0; i < len(pool); {
		start := pool[i].Start
		runEnd := pool[i].End
		j := i
		for j < len(pool) && pool[j].Start.Equal(start) {
			if pool[j].End.After(runEnd) {
				runEnd = pool[j].End
			}
			j++
		}

		var until time.Time
		switch {
		case j < len(pool):
			until = pool[j].Start
		case !closing.IsZero():
			until = closing
		default:
			until = runEnd
		}

		duration := int(until.Sub(start) / time.Minute)
		entries = append(entries, TimelineEntry{
			Start:      start,
			Duration:   duration,
			Percentage: percentOf(duration, g.Duration),
		})
		i = j
	}
	return entries
}

func percentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
