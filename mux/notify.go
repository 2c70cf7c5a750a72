// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/notify.go
// Summary: Outbound notification contract between the engine and the
// command server.

package mux

import (
	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

// Notifier receives state-change notifications from the engine loop.
// Calls happen on the loop goroutine and must not block: the command
// server queues per client and applies its own overflow policy.
type Notifier interface {
	// LayoutChanged fires after any structural mutation or re-apply of a
	// workspace, carrying the freshly resolved geometries.
	LayoutChanged(session, workspace string, geoms map[uuid.UUID]layout.Rect)

	// SessionDestroyed fires when a session is killed explicitly or by
	// the destroyed-cascade.
	SessionDestroyed(name string)

	// PaneBound fires when a pane adopts a live window.
	PaneBound(session string, pane uuid.UUID, handle wm.Handle, attrs wm.Attrs)

	// FocusChanged fires when the window manager moves input focus to a
	// tracked pane.
	FocusChanged(session, workspace string, pane uuid.UUID)

	// FullState delivers the complete graph to one client, sent right
	// after a successful attach.
	FullState(client uuid.UUID, snap Snapshot)
}

// NopNotifier discards all notifications; used when no server is wired,
// e.g. in one-shot dry runs.
type NopNotifier struct{}

func (NopNotifier) LayoutChanged(string, string, map[uuid.UUID]layout.Rect) {}
func (NopNotifier) SessionDestroyed(string)                                 {}
func (NopNotifier) PaneBound(string, uuid.UUID, wm.Handle, wm.Attrs)        {}
func (NopNotifier) FocusChanged(string, string, uuid.UUID)                  {}
func (NopNotifier) FullState(uuid.UUID, Snapshot)                           {}
