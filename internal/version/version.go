/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time via ldflags:
//
//	-X github.com/jtoledo1974/atcapp/internal/version.Version=X.Y.Z
var Version = "0.4.0-dev"

// Commit returns the VCS revision embedded by the Go toolchain, if any.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// String renders the version line printed by the CLI.
func String() string {
	s := fmt.Sprintf("atcapp %s (%s)", Version, runtime.Version())
	if c := Commit(); c != "" {
		s += " commit " + c
	}
	return s
}
