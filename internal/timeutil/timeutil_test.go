/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeutil

import (
	"testing"
	"time"
)

func TestMinutes(t *testing.T) {
	start := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	if got := Minutes(start, start.Add(75*time.Minute)); got != 75 {
		t.Fatalf("Minutes = %d, want 75", got)
	}
	if got := Minutes(start, start); got != 0 {
		t.Fatalf("Minutes(same) = %d, want 0", got)
	}
}

func TestLocationForUnit(t *testing.T) {
	tests := []struct {
		unit  string
		zone  string
		known bool
	}{
		{unit: "LECM", zone: "Europe/Madrid", known: true},
		{unit: "lecb", zone: "Europe/Madrid", known: true},
		{unit: "GCCC", zone: "Atlantic/Canary", known: true},
		{unit: "XXXX", zone: DefaultZone, known: false},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			loc, known := LocationForUnit(tt.unit)
			if known != tt.known {
				t.Fatalf("known = %v, want %v", known, tt.known)
			}
			if loc.String() != tt.zone {
				t.Fatalf("zone = %q, want %q", loc.String(), tt.zone)
			}
		})
	}
}

func TestClockRendersInDisplayZone(t *testing.T) {
	madrid, _ := LocationForUnit("LECM")
	// 06:30 UTC in March is 07:30 in Madrid (CET).
	instant := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	if got := Clock(instant, madrid); got != "07:30" {
		t.Fatalf("Clock = %q, want 07:30", got)
	}
	if got := Clock(instant, nil); got != "06:30" {
		t.Fatalf("Clock(nil) = %q, want 06:30", got)
	}
}

func TestAtClockReturnsUTC(t *testing.T) {
	madrid, _ := LocationForUnit("LECM")
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	got, err := AtClock(date, "15:00", madrid)
	if err != nil {
		t.Fatalf("AtClock: %v", err)
	}
	want := time.Date(2026, 7, 1, 13, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("AtClock = %v, want %v", got, want)
	}

	if _, err := AtClock(date, "25h", madrid); err == nil {
		t.Fatal("expected error for malformed clock value")
	}
}

func TestInferEnds(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	morning := at(15, 0)
	evening := at(22, 30)

	spans := InferEnds([]time.Time{at(7, 30), at(8, 45), at(10, 0)}, morning, evening)
	if len(spans) != 3 {
		t.Fatalf("len(spans) = %d, want 3", len(spans))
	}
	if !spans[0].End.Equal(at(8, 45)) || !spans[1].End.Equal(at(10, 0)) {
		t.Fatalf("intermediate ends not chained: %+v", spans)
	}
	if !spans[2].End.Equal(morning) {
		t.Fatalf("last end = %v, want morning close", spans[2].End)
	}

	afternoon := InferEnds([]time.Time{at(15, 0), at(18, 0)}, morning, evening)
	if !afternoon[1].End.Equal(evening) {
		t.Fatalf("afternoon last end = %v, want evening close", afternoon[1].End)
	}

	if got := InferEnds(nil, morning, evening); len(got) != 0 {
		t.Fatalf("InferEnds(nil) = %v, want empty", got)
	}
}
