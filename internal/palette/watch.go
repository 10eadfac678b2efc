/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package palette

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay lets editors finish writing before the file is read.
const reloadDelay = 250 * time.Millisecond

// Watch calls apply with the freshly loaded colors whenever the palette file
// changes, until ctx is done. A file that fails to load is logged and the
// previous palette stays in effect.
func Watch(ctx context.Context, path string, logger zerolog.Logger, apply func([]string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create palette watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so that atomic rename-on-save is observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	logger = logger.With().Str("component", "palette_watcher").Str("path", path).Logger()
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("palette watcher error")
		case <-pending:
			pending = nil
			colors, err := LoadFile(path)
			if err != nil {
				logger.Warn().Err(err).Msg("palette reload failed, keeping previous colors")
				continue
			}
			apply(colors)
			logger.Info().Int("colors", len(colors)).Msg("palette reloaded")
		}
	}
}
