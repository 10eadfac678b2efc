/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package palette hands out display colors per work-area.
package palette

import (
	"fmt"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/jtoledo1974/atcapp/internal/activity"
)

// Neutral is the color of rest periods.
const Neutral = "white"

// PlannerDarkening is the HSL lightness removed from the executive shade to
// obtain the planner shade.
const PlannerDarkening = 0.30

// DefaultPalette is the reference hue sequence. Allocation cycles through it.
var DefaultPalette = []string{
	"#FF5733",
	"#33FF57",
	"#3357FF",
	"#FF33A1",
	"#A133FF",
	"#33FFF2",
	"#FFC133",
	"#FF3333",
	"#33FF99",
	"#FF33FF",
}

// Shades is the color pair assigned to a work-area.
type Shades struct {
	Executive string `json:"executive"`
	Planner   string `json:"planner"`
}

// Allocator assigns colors to work-areas on first sight and keeps them stable
// for its lifetime. It is not safe for concurrent use; build one per
// presentation.
type Allocator struct {
	palette  []string
	next     int
	assigned map[string]Shades
}

// NewAllocator returns an allocator over palette, or DefaultPalette when empty.
func NewAllocator(palette []string) *Allocator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	p := make([]string, len(palette))
	copy(p, palette)
	return &Allocator{
		palette:  p,
		assigned: make(map[string]Shades),
	}
}

// ColorFor returns the executive or planner shade of workArea.
func (a *Allocator) ColorFor(workArea string, executive bool) string {
	shades := a.shades(workArea)
	if executive {
		return shades.Executive
	}
	return shades.Planner
}

// ColorForPeriod applies the rest rule before looking up the work-area shade.
func (a *Allocator) ColorForPeriod(code activity.Code, workArea string) string {
	if code == activity.Rest {
		return Neutral
	}
	return a.ColorFor(workArea, code == activity.Executive)
}

// Assignments returns a copy of the colors handed out so far.
func (a *Allocator) Assignments() map[string]Shades {
	out := make(map[string]Shades, len(a.assigned))
	for k, v := range a.assigned {
		out[k] = v
	}
	return out
}

func (a *Allocator) shades(workArea string) Shades {
	if s, ok := a.assigned[workArea]; ok {
		return s
	}
	primary := a.palette[a.next%len(a.palette)]
	a.next++

	planner, err := Darken(primary, PlannerDarkening)
	if err != nil {
		planner = primary
	}
	s := Shades{Executive: primary, Planner: planner}
	a.assigned[workArea] = s
	return s
}

// Darken lowers the HSL lightness of a hex color by amount, floored at zero.
func Darken(hex string, amount float64) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("parse color %q: %w", hex, err)
	}
	h, s, l := c.Hsl()
	l = math.Max(0, l-amount)
	return colorful.Hsl(h, s, l).Clamped().Hex(), nil
}

// Lightness returns the HSL lightness of a hex color in [0, 1].
func Lightness(hex string) (float64, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", hex, err)
	}
	_, _, l := c.Hsl()
	return l, nil
}

type paletteFile struct {
	Colors []string `yaml:"colors"`
}

// LoadFile reads a YAML palette of the form "colors: [#RRGGBB, ...]".
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}
	var pf paletteFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decode palette: %w", err)
	}
	if len(pf.Colors) == 0 {
		return nil, fmt.Errorf("palette %s has no colors", path)
	}
	for _, c := range pf.Colors {
		if _, err := colorful.Hex(c); err != nil {
			return nil, fmt.Errorf("palette %s: invalid color %q", path, c)
		}
	}
	return pf.Colors, nil
}
