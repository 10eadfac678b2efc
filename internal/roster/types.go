/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package roster turns the flat duty periods of one roster into the group
// board: who works together, on which shared timeline, in which colors, and
// which period is live right now.
package roster

import (
	"time"

	"github.com/jtoledo1974/atcapp/internal/activity"
)

// Controller is a rostered person. Only the id is used for identity.
type Controller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Period is one duty window of one controller. Start and End are UTC.
type Period struct {
	ID         string        `json:"id,omitempty"`
	Controller Controller    `json:"controller"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Code       activity.Code `json:"code"`
	WorkArea   string        `json:"work_area,omitempty"` // empty means rest
}

// Minutes returns the length of the period.
func (p Period) Minutes() int {
	return int(p.End.Sub(p.Start) / time.Minute)
}

// IsRest reports whether the period carries no work-area.
func (p Period) IsRest() bool {
	return p.WorkArea == "" || p.Code == activity.Rest
}

// same identifies a period by id when present, otherwise by owner and start.
func (p Period) same(other Period) bool {
	if p.ID != "" || other.ID != "" {
		return p.ID == other.ID
	}
	return p.Controller.ID == other.Controller.ID && p.Start.Equal(other.Start)
}

// Member is a controller of a group together with their own periods.
type Member struct {
	Controller Controller
	Periods    []Period
}

// Group is a set of controllers jointly covering a set of work-areas.
type Group struct {
	Members   []Member
	WorkAreas []string // sorted
	Start     time.Time
	End       time.Time
	Duration  int // minutes from Start to End
	Anchor    *Period
}

// Has reports whether the controller is a member of the group.
func (g *Group) Has(controllerID string) bool {
	for _, m := range g.Members {
		if m.Controller.ID == controllerID {
			return true
		}
	}
	return false
}

// Periods returns every member period, in member order.
func (g *Group) Periods() []Period {
	var out []Period
	for _, m := range g.Members {
		out = append(out, m.Periods...)
	}
	return out
}

// TimelineEntry is one slot of a group's shared header ruler.
type TimelineEntry struct {
	Start      time.Time
	Duration   int
	Percentage float64
}
