// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: logging/logger_test.go

package logging

import "testing"

func TestNewByLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(Config{Level: level}); err != nil {
			t.Fatalf("level %q rejected: %v", level, err)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "shouty"}); err == nil {
		t.Fatalf("unknown level accepted")
	}
}

func TestNewDefaultNeverNil(t *testing.T) {
	if NewDefault() == nil {
		t.Fatalf("default logger is nil")
	}
}
