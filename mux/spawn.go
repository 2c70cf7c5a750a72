// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/spawn.go
// Summary: Detached launch of the application expected to fill a pane.

package mux

import (
	"fmt"
	"os/exec"
	"syscall"
)

// spawn starts argv detached from the daemon. The child gets its own
// session so killing the daemon never takes spawned applications down.
func spawn(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("mux: empty spawn command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mux: spawn %q: %w", argv[0], err)
	}
	// Reap in the background so the child never zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}
