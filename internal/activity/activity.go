/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package activity parses and renders duty activity labels such as "E-ASV".
package activity

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the role marker of a duty period.
type Code string

const (
	Executive Code = "E"
	Planner   Code = "P"
	Rest      Code = "D"
	Special   Code = "CAS"
)

// RestLabel is the roster document spelling of a rest period.
const RestLabel = "DESCANSO"

// Separator joins the role marker and the work-area in a label.
const Separator = "-"

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("malformed activity label")

// FormatError reports a label that is neither ROLE-WORKAREA nor a known special code.
type FormatError struct {
	Label string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed activity label %q", e.Label)
}

// Is lets errors.Is match ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Assignment is a parsed activity label.
type Assignment struct {
	Code     Code
	WorkArea string // empty for rest periods
}

// IsRest reports whether the assignment is an off-duty period.
func (a Assignment) IsRest() bool {
	return a.Code == Rest
}

// Parse splits a roster label into role and work-area.
//
//	"E-ASV"    -> {E, ASV}
//	"CAS"      -> {CAS, CAS}
//	"DESCANSO" -> {D, ""}
func Parse(label string) (Assignment, error) {
	label = strings.TrimSpace(label)
	switch label {
	case RestLabel, string(Rest):
		return Assignment{Code: Rest}, nil
	case string(Special):
		return Assignment{Code: Special, WorkArea: string(Special)}, nil
	}

	parts := strings.Split(label, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Assignment{}, &FormatError{Label: label}
	}
	return Assignment{Code: Code(parts[0]), WorkArea: parts[1]}, nil
}

// Label renders the display label of a period: empty for rest, the bare code
// for the special code, CODE-AREA otherwise.
func Label(code Code, workArea string) string {
	switch code {
	case Rest:
		return ""
	case Special:
		return string(Special)
	}
	return string(code) + Separator + workArea
}

// RoleOf returns the role marker prefix of a display label.
func RoleOf(label string) string {
	role, _, _ := strings.Cut(label, Separator)
	return role
}

// WorkAreaOf returns the work-area suffix of a display label.
func WorkAreaOf(label string) string {
	if i := strings.LastIndex(label, Separator); i >= 0 {
		return label[i+len(Separator):]
	}
	return label
}
