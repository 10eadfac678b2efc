/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import "time"

// SelectAnchor flags the period the board should scroll to by default. The
// viewer's own active period wins; otherwise the first active period of the
// largest group that has one. Nothing is flagged when no period is active.
func SelectAnchor(groups []Group, viewerID string, now time.Time) {
	type hit struct {
		group  int
		period Period
	}
	var active []hit
	for gi := range groups {
		g := &groups[gi]
		g.Anchor = nil
		for _, m := range g.Members {
			for _, p := range m.Periods {
				if Classify(p, g.Start, g.End, now) == StatusActive {
					active = append(active, hit{group: gi, period: p})
				}
			}
		}
	}
	if len(active) == 0 {
		return
	}

	if viewerID != "" {
		for _, h := range active {
			if h.period.Controller.ID == viewerID {
				p := h.period
				groups[h.group].Anchor = &p
				return
			}
		}
	}

	best := -1
	for _, h := range active {
		if best < 0 || len(groups[h.group].Members) > len(groups[best].Members) {
			best = h.group
		}
	}
	for _, h := range active {
		if h.group == best {
			p := h.period
			groups[best].Anchor = &p
			return
		}
	}
}
