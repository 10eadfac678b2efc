/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import (
	"errors"
	"fmt"

	"github.com/jtoledo1974/atcapp/internal/activity"
)

// ErrNotFound is matched by NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a viewer with no periods on the board.
type NotFoundError struct {
	ControllerID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("controller %q has no periods in this roster", e.ControllerID)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Colleague is someone working the same window and work-area as the viewer.
type Colleague struct {
	ControllerID string `json:"controller_id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

// ContextPeriod is a viewer period with the people around it.
type ContextPeriod struct {
	PeriodView
	Colleagues  []Colleague `json:"colleagues"`
	RelayBefore *Colleague  `json:"relay_before,omitempty"`
	RelayAfter  *Colleague  `json:"relay_after,omitempty"`
}

// PersonalView is the viewer's own schedule in context.
type PersonalView struct {
	Row     Row             `json:"row"`
	Periods []ContextPeriod `json:"periods"`
}

// ComposePersonalView cross-references the viewer's rendered periods against
// every other row of the board. Colleagues match on identical start, end and
// work-area; relays are the same-role people handing the position over to
// the viewer and taking it back.
func ComposePersonalView(viewerID string, groups []GroupView) (*PersonalView, error) {
	mine, ok := findRow(viewerID, groups)
	if !ok {
		return nil, &NotFoundError{ControllerID: viewerID}
	}

	view := &PersonalView{Row: mine, Periods: make([]ContextPeriod, 0, len(mine.Periods))}
	for _, per := range mine.Periods {
		cp := ContextPeriod{PeriodView: per, Colleagues: []Colleague{}}
		if per.WorkArea != "" {
			for _, g := range groups {
				for _, other := range g.Rows {
					if other.ControllerID == viewerID {
						continue
					}
					scanRow(&cp, other)
				}
			}
		}
		view.Periods = append(view.Periods, cp)
	}
	return view, nil
}

func scanRow(cp *ContextPeriod, other Row) {
	for _, op := range other.Periods {
		if op.WorkArea != cp.WorkArea {
			continue
		}
		c := Colleague{ControllerID: other.ControllerID, Name: other.Name, Role: activity.RoleOf(op.Label)}
		switch {
		case op.StartsAt.Equal(cp.StartsAt) && op.EndsAt.Equal(cp.EndsAt):
			cp.Colleagues = append(cp.Colleagues, c)
		case op.Code == cp.Code && op.EndsAt.Equal(cp.StartsAt) && cp.RelayBefore == nil:
			cp.RelayBefore = &c
		case op.Code == cp.Code && op.StartsAt.Equal(cp.EndsAt) && cp.RelayAfter == nil:
			cp.RelayAfter = &c
		}
	}
}

func findRow(controllerID string, groups []GroupView) (Row, bool) {
	for _, g := range groups {
		for _, r := range g.Rows {
			if r.ControllerID == controllerID {
				return r, true
			}
		}
	}
	return Row{}, false
}
