// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/paths.go
// Summary: Path expansion for configured file locations.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// SnapshotPath returns the expanded snapshot database location.
func (c *Config) SnapshotPath() string {
	return ExpandPath(c.Snapshot.Path)
}
