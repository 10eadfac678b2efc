/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/palette"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ctl(id string) Controller {
	return Controller{ID: id, Name: "Controller " + id}
}

func per(c Controller, from, to time.Time, label string) Period {
	a, err := activity.Parse(label)
	if err != nil {
		panic(err)
	}
	return Period{Controller: c, Start: from, End: to, Code: a.Code, WorkArea: a.WorkArea}
}

// threeControllers is the A/B sharing ASV then CEN, C alone on MAR scenario.
func threeControllers() []Period {
	a, b, c := ctl("A"), ctl("B"), ctl("C")
	return []Period{
		per(a, at(7, 30), at(8, 45), "E-ASV"),
		per(b, at(7, 30), at(8, 45), "P-ASV"),
		per(c, at(7, 30), at(10, 0), "E-MAR"),
		per(a, at(8, 45), at(10, 0), "P-CEN"),
		per(b, at(8, 45), at(10, 0), "E-CEN"),
	}
}

func memberIDs(g Group) []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.Controller.ID)
	}
	return ids
}

func TestFindGroupsScenario(t *testing.T) {
	groups := FindGroups(threeControllers())
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if diff := cmp.Diff([]string{"A", "B"}, memberIDs(groups[0])); diff != "" {
		t.Fatalf("group 0 members (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ASV", "CEN"}, groups[0].WorkAreas); diff != "" {
		t.Fatalf("group 0 work-areas (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"C"}, memberIDs(groups[1])); diff != "" {
		t.Fatalf("group 1 members (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"MAR"}, groups[1].WorkAreas); diff != "" {
		t.Fatalf("group 1 work-areas (-want +got):\n%s", diff)
	}
	if groups[0].Duration != 150 {
		t.Fatalf("group 0 duration = %d, want 150", groups[0].Duration)
	}
	if !groups[0].Start.Equal(at(7, 30)) || !groups[0].End.Equal(at(10, 0)) {
		t.Fatalf("group 0 span = %v..%v", groups[0].Start, groups[0].End)
	}
}

func TestFindGroupsIsTransitive(t *testing.T) {
	a, b, c := ctl("A"), ctl("B"), ctl("C")
	periods := []Period{
		per(a, at(7, 30), at(10, 0), "E-ASV"),
		per(c, at(7, 30), at(10, 0), "E-CEN"),
		per(b, at(7, 30), at(8, 45), "P-ASV"),
		per(b, at(8, 45), at(10, 0), "P-CEN"),
	}
	groups := FindGroups(periods)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if diff := cmp.Diff([]string{"A", "C", "B"}, memberIDs(groups[0])); diff != "" {
		t.Fatalf("members in discovery order (-want +got):\n%s", diff)
	}
}

func TestFindGroupsCompleteness(t *testing.T) {
	rest := ctl("R")
	periods := append(threeControllers(),
		per(rest, at(7, 30), at(10, 0), "DESCANSO"),
	)
	groups := FindGroups(periods)

	seen := make(map[string]int)
	for _, g := range groups {
		for _, id := range memberIDs(g) {
			seen[id]++
		}
	}
	for _, id := range []string{"A", "B", "C"} {
		if seen[id] != 1 {
			t.Fatalf("controller %s appears in %d groups, want 1", id, seen[id])
		}
	}
	if seen["R"] != 0 {
		t.Fatal("rest-only controller must not be grouped")
	}
}

func TestFindGroupsKeepsRestPeriodsOfMembers(t *testing.T) {
	a, b := ctl("A"), ctl("B")
	periods := []Period{
		per(a, at(8, 45), at(10, 0), "DESCANSO"),
		per(a, at(7, 30), at(8, 45), "E-ASV"),
		per(b, at(7, 30), at(8, 45), "DESCANSO"),
		per(b, at(8, 45), at(10, 0), "E-ASV"),
	}
	groups := FindGroups(periods)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	first := groups[0].Members[0]
	if len(first.Periods) != 2 {
		t.Fatalf("member periods = %d, want 2", len(first.Periods))
	}
	if !first.Periods[0].Start.Equal(at(7, 30)) {
		t.Fatal("member periods are not sorted by start")
	}
}

func TestFindGroupsEmpty(t *testing.T) {
	if groups := FindGroups(nil); len(groups) != 0 {
		t.Fatalf("FindGroups(nil) = %v, want empty", groups)
	}
}

func TestBuildHeaderScenario(t *testing.T) {
	groups := FindGroups(threeControllers())
	header := BuildHeader(groups[0])

	want := []TimelineEntry{
		{Start: at(7, 30), Duration: 75, Percentage: 50},
		{Start: at(8, 45), Duration: 75, Percentage: 50},
	}
	if diff := cmp.Diff(want, header); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
}

func TestBuildHeaderConservesDuration(t *testing.T) {
	a, b, c := ctl("A"), ctl("B"), ctl("C")
	periods := []Period{
		per(a, at(7, 30), at(8, 0), "E-ASV"),
		per(a, at(8, 0), at(9, 10), "P-CEN"),
		per(a, at(9, 10), at(15, 0), "DESCANSO"),
		per(b, at(7, 30), at(8, 20), "P-ASV"),
		per(b, at(8, 20), at(15, 0), "E-CEN"),
		per(c, at(7, 30), at(12, 5), "E-CEN"),
		per(c, at(12, 5), at(15, 0), "P-ASV"),
	}
	for _, g := range FindGroups(periods) {
		sum := 0
		pct := 0.0
		for _, e := range BuildHeader(g) {
			sum += e.Duration
			pct += e.Percentage
		}
		if sum != g.Duration {
			t.Fatalf("header minutes = %d, want %d", sum, g.Duration)
		}
		if pct < 99.999 || pct > 100.001 {
			t.Fatalf("header percentage = %f, want 100", pct)
		}
	}
}

func TestMemberDurationsMatchGroup(t *testing.T) {
	for _, g := range FindGroups(threeControllers()) {
		if w := CheckDurations(g); len(w) != 0 {
			t.Fatalf("unexpected duration warnings: %v", w)
		}
	}
}

func TestCheckDurationsFlagsGaps(t *testing.T) {
	a, b := ctl("A"), ctl("B")
	periods := []Period{
		per(a, at(7, 30), at(10, 0), "E-ASV"),
		per(b, at(7, 30), at(8, 0), "P-ASV"),
		per(b, at(9, 0), at(10, 0), "P-ASV"),
	}
	warnings := CheckDurations(FindGroups(periods)[0])
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", warnings)
	}
	if warnings[0].ControllerID != "B" || warnings[0].Expected != 150 || warnings[0].Actual != 90 {
		t.Fatalf("warning = %+v", warnings[0])
	}
}

func TestClassify(t *testing.T) {
	p := per(ctl("A"), at(9, 0), at(10, 0), "E-ASV")
	start, end := at(7, 30), at(15, 0)

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{name: "inside period", now: at(9, 30), want: StatusActive},
		{name: "period start inclusive", now: at(9, 0), want: StatusActive},
		{name: "period end inclusive", now: at(10, 0), want: StatusActive},
		{name: "after period", now: at(11, 0), want: StatusPast},
		{name: "before period", now: at(8, 0), want: StatusFuture},
		{name: "before group span", now: at(6, 0), want: StatusFuture},
		{name: "after group span", now: at(15, 30), want: StatusFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(p, start, end, tt.now); got != tt.want {
				t.Fatalf("Classify(now=%s) = %s, want %s", tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestMarkerPosition(t *testing.T) {
	start, end := at(7, 30), at(9, 30)
	if got := MarkerPosition(start, end, at(6, 0)); got != 0 {
		t.Fatalf("before = %f, want 0", got)
	}
	if got := MarkerPosition(start, end, at(10, 0)); got != 100 {
		t.Fatalf("after = %f, want 100", got)
	}
	if got := MarkerPosition(start, end, at(8, 30)); got != 50 {
		t.Fatalf("middle = %f, want 50", got)
	}
}

func TestSelectAnchorPrefersViewer(t *testing.T) {
	groups := FindGroups(threeControllers())
	SelectAnchor(groups, "C", at(8, 0))

	if groups[0].Anchor != nil {
		t.Fatal("larger group must not be anchored when the viewer is active elsewhere")
	}
	if groups[1].Anchor == nil || groups[1].Anchor.Controller.ID != "C" {
		t.Fatalf("viewer group anchor = %+v, want C's period", groups[1].Anchor)
	}
}

func TestSelectAnchorFallsBackToLargestGroup(t *testing.T) {
	groups := FindGroups(threeControllers())
	SelectAnchor(groups, "", at(8, 0))

	if groups[0].Anchor == nil {
		t.Fatal("largest group should be anchored")
	}
	if groups[0].Anchor.Controller.ID != "A" || !groups[0].Anchor.Start.Equal(at(7, 30)) {
		t.Fatalf("anchor = %+v, want A's first period", groups[0].Anchor)
	}
	if groups[1].Anchor != nil {
		t.Fatal("smaller group must not be anchored")
	}
}

func TestSelectAnchorNoActivePeriod(t *testing.T) {
	groups := FindGroups(threeControllers())
	SelectAnchor(groups, "A", at(18, 0))
	for i, g := range groups {
		if g.Anchor != nil {
			t.Fatalf("group %d anchored with nothing active", i)
		}
	}
}

func TestPresentScenario(t *testing.T) {
	p := NewPresenter(nil, zerolog.Nop())
	board, err := p.Present(threeControllers(), Options{ViewerID: "A", Now: at(8, 0), Location: time.UTC})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if len(board.Groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(board.Groups))
	}

	g := board.Groups[0]
	if diff := cmp.Diff([]string{"ASV", "CEN"}, g.WorkAreas); diff != "" {
		t.Fatalf("work-areas (-want +got):\n%s", diff)
	}
	wantHeader := []HeaderSlot{
		{Start: "07:30", StartsAt: at(7, 30), Duration: 75, Percentage: 50},
		{Start: "08:45", StartsAt: at(8, 45), Duration: 75, Percentage: 50},
	}
	if diff := cmp.Diff(wantHeader, g.Header); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}

	rowA := g.Rows[0]
	if !rowA.IsViewer || g.Rows[1].IsViewer {
		t.Fatal("only A should be flagged as viewer")
	}
	first := rowA.Periods[0]
	if first.Start != "07:30" || first.End != "08:45" || first.Label != "E-ASV" {
		t.Fatalf("first period = %+v", first)
	}
	if first.Status != StatusActive || !first.Anchor {
		t.Fatalf("first period status=%s anchor=%v, want ACTIVE anchored", first.Status, first.Anchor)
	}
	if rowA.Periods[1].Status != StatusFuture || rowA.Periods[1].Anchor {
		t.Fatalf("second period = %+v", rowA.Periods[1])
	}

	execASV := first.Color
	planASV := g.Rows[1].Periods[0].Color
	if execASV == planASV {
		t.Fatal("executive and planner shades must differ")
	}
	if board.Colors["ASV"].Executive != execASV || board.Colors["ASV"].Planner != planASV {
		t.Fatalf("color table = %+v", board.Colors["ASV"])
	}
	le, _ := palette.Lightness(execASV)
	lp, _ := palette.Lightness(planASV)
	if lp >= le {
		t.Fatalf("planner lightness %.3f not below executive %.3f", lp, le)
	}

	if len(board.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", board.Warnings)
	}
	if board.Personal == nil {
		t.Fatal("expected personal view for viewer A")
	}
}

func TestPresentColorsStableAcrossGroups(t *testing.T) {
	a, b := ctl("A"), ctl("B")
	periods := []Period{
		per(a, at(7, 30), at(10, 0), "E-ASV"),
		per(b, at(7, 30), at(10, 0), "E-CEN"),
	}
	board, err := NewPresenter(nil, zerolog.Nop()).Present(periods, Options{Now: at(8, 0)})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if board.Groups[0].Rows[0].Periods[0].Color == board.Groups[1].Rows[0].Periods[0].Color {
		t.Fatal("distinct work-areas in different groups received the same color")
	}
}

func TestPresentRestPeriodsAreNeutral(t *testing.T) {
	a := ctl("A")
	periods := []Period{
		per(a, at(7, 30), at(8, 45), "E-ASV"),
		per(a, at(8, 45), at(10, 0), "DESCANSO"),
	}
	board, err := NewPresenter(nil, zerolog.Nop()).Present(periods, Options{Now: at(6, 0)})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	rest := board.Groups[0].Rows[0].Periods[1]
	if rest.Color != palette.Neutral || rest.Label != "" || rest.WorkArea != "" {
		t.Fatalf("rest period = %+v", rest)
	}
}

func TestPresentEmpty(t *testing.T) {
	board, err := NewPresenter(nil, zerolog.Nop()).Present(nil, Options{ViewerID: "A", Now: at(8, 0)})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if len(board.Groups) != 0 || board.Personal != nil || len(board.Warnings) != 0 {
		t.Fatalf("board = %+v, want empty", board)
	}
}

func TestPresentRejectsMalformedPeriod(t *testing.T) {
	bad := Period{Controller: ctl("A"), Start: at(7, 30), End: at(8, 0), Code: activity.Executive}
	_, err := NewPresenter(nil, zerolog.Nop()).Present([]Period{bad}, Options{Now: at(8, 0)})
	var fe *activity.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *activity.FormatError", err)
	}
}

func TestPresentReportsDurationWarnings(t *testing.T) {
	a, b := ctl("A"), ctl("B")
	periods := []Period{
		per(a, at(7, 30), at(10, 0), "E-ASV"),
		per(b, at(7, 30), at(8, 0), "P-ASV"),
	}
	board, err := NewPresenter(nil, zerolog.Nop()).Present(periods, Options{Now: at(8, 0)})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if len(board.Warnings) != 1 || board.Warnings[0].ControllerID != "B" {
		t.Fatalf("warnings = %v", board.Warnings)
	}
	if len(board.Groups) != 1 {
		t.Fatal("board should still render with warnings")
	}
}
