// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config_test.go

package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Socket != "/tmp/winmux.sock" {
		t.Fatalf("socket default = %q", cfg.Socket)
	}
	if cfg.Reconcile.AdoptionTimeout != 5*time.Second {
		t.Fatalf("adoption timeout default = %v", cfg.Reconcile.AdoptionTimeout)
	}
	if cfg.Reconcile.AdoptUntracked || cfg.Reconcile.RelayoutOnExternalMove {
		t.Fatalf("reconcile policies must default off")
	}
	if cfg.Notify.QueueSize != 128 {
		t.Fatalf("queue size default = %d", cfg.Notify.QueueSize)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WINMUX_SOCKET", "/run/test.sock")
	t.Setenv("WINMUX_ADOPT_UNTRACKED", "true")
	t.Setenv("WINMUX_BACKOFF_BASE", "100ms")
	t.Setenv("WINMUX_SCREEN_WIDTH", "2560")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Socket != "/run/test.sock" {
		t.Fatalf("socket override lost: %q", cfg.Socket)
	}
	if !cfg.Reconcile.AdoptUntracked {
		t.Fatalf("adopt-untracked override lost")
	}
	if cfg.Reconcile.BackoffBase != 100*time.Millisecond {
		t.Fatalf("backoff override lost: %v", cfg.Reconcile.BackoffBase)
	}
	if cfg.Screen.Width != 2560 {
		t.Fatalf("screen width override lost: %d", cfg.Screen.Width)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("WINMUX_ADOPTION_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	if got := ExpandPath("~/state/db"); got != "/home/alice/state/db" {
		t.Fatalf("expand = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path rewritten: %q", got)
	}
}
