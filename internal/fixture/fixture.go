/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package fixture reads daily rosters written as YAML, the way they are
// transcribed from the unit's paper roster: each controller lists the wall
// clock times at which their activity changes.
//
//	unit: LECM
//	date: 2026-03-02
//	shift: M
//	controllers:
//	  - name: Ana Pérez
//	    periods:
//	      - {start: "07:30", activity: E-ASV}
//	      - {start: "08:45", activity: P-CEN}
//	      - {start: "10:00", activity: DESCANSO}
//
// A period without an explicit end lasts until the controller's next start;
// the last one closes at 15:00 when it starts before then, else at 22:30.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jtoledo1974/atcapp/internal/activity"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/jtoledo1974/atcapp/internal/store"
	"github.com/jtoledo1974/atcapp/internal/timeutil"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every structural problem in a fixture.
var ErrInvalid = errors.New("invalid roster fixture")

// File is the YAML document.
type File struct {
	ID          string       `yaml:"id"`
	Unit        string       `yaml:"unit"`
	Date        string       `yaml:"date"`
	Shift       string       `yaml:"shift"`
	Controllers []Controller `yaml:"controllers"`
}

// Controller is one roster line.
type Controller struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Periods []Period `yaml:"periods"`
}

// Period is one activity change. End is optional.
type Period struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Activity string `yaml:"activity"`
}

// Options tunes decoding.
type Options struct {
	// SkipInvalid drops periods with malformed activity labels instead of
	// failing the whole roster.
	SkipInvalid bool
	// DefaultUnit applies when the document names no unit.
	DefaultUnit string
	Logger      zerolog.Logger
}

// LoadFile reads and decodes a fixture from path.
func LoadFile(path string, opts Options) (*store.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load decodes a fixture into a snapshot with UTC instants. A malformed
// activity label yields an error matching activity.ErrFormat unless
// opts.SkipInvalid is set.
func Load(r io.Reader, opts Options) (*store.Snapshot, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}

	unit := strings.ToUpper(strings.TrimSpace(doc.Unit))
	if unit == "" {
		unit = strings.ToUpper(opts.DefaultUnit)
	}
	loc, _ := timeutil.LocationForUnit(unit)

	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(doc.Date), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", ErrInvalid, doc.Date, err)
	}
	morning, err := timeutil.AtClock(date, timeutil.MorningClose, loc)
	if err != nil {
		return nil, err
	}
	evening, err := timeutil.AtClock(date, timeutil.EveningClose, loc)
	if err != nil {
		return nil, err
	}

	snap := &store.Snapshot{
		RosterID: doc.ID,
		Unit:     unit,
		Date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Shift:    strings.ToUpper(doc.Shift),
	}
	for i, c := range doc.Controllers {
		periods, err := controllerPeriods(c, date, loc, morning, evening, opts)
		if err != nil {
			return nil, fmt.Errorf("controller %d (%s): %w", i+1, c.Name, err)
		}
		snap.Periods = append(snap.Periods, periods...)
	}
	if len(snap.Periods) == 0 {
		return nil, fmt.Errorf("%w: no periods", ErrInvalid)
	}
	return snap, nil
}

func controllerPeriods(c Controller, date time.Time, loc *time.Location, morning, evening time.Time, opts Options) ([]roster.Period, error) {
	name := strings.Join(strings.Fields(c.Name), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: controller without name", ErrInvalid)
	}
	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = store.ControllerID(name)
	}
	who := roster.Controller{ID: id, Name: name}

	starts := make([]time.Time, 0, len(c.Periods))
	for _, p := range c.Periods {
		start, err := timeutil.AtClock(date, p.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: start %q: %v", ErrInvalid, p.Start, err)
		}
		// Clock times that go backwards belong to the following day.
		for len(starts) > 0 && !start.After(starts[len(starts)-1]) {
			start = start.Add(24 * time.Hour)
		}
		starts = append(starts, start)
	}

	spans := timeutil.InferEnds(starts, morning, evening)
	out := make([]roster.Period, 0, len(spans))
	for i, p := range c.Periods {
		span := spans[i]
		if p.End != "" {
			end, err := timeutil.AtClock(date, p.End, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: end %q: %v", ErrInvalid, p.End, err)
			}
			for !end.After(span.Start) {
				end = end.Add(24 * time.Hour)
			}
			span.End = end
		}
		if !span.End.After(span.Start) {
			return nil, fmt.Errorf("%w: period at %s has no end after its start", ErrInvalid, p.Start)
		}

		a, err := activity.Parse(p.Activity)
		if err != nil {
			if opts.SkipInvalid {
				opts.Logger.Warn().Err(err).Str("controller", name).Str("start", p.Start).Msg("skipping period with malformed activity")
				continue
			}
			return nil, err
		}
		out = append(out, roster.Period{
			Controller: who,
			Start:      span.Start,
			End:        span.End,
			Code:       a.Code,
			WorkArea:   a.WorkArea,
		})
	}
	return out, nil
}
