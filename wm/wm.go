// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: wm/wm.go
// Summary: Window manager gateway contract and event types.
// Usage: The mux engine drives real windows exclusively through this
// interface; wm.Client speaks to a live window manager, wm.Fake backs
// tests and dry-run mode.

package wm

import (
	"context"
	"fmt"

	"github.com/framegrace/winmux/layout"
)

// Handle is the window manager's opaque identity for one window. It is
// only valid for the lifetime of that window; it is never persisted.
type Handle string

// Attrs carries the window attributes the daemon cares about.
type Attrs struct {
	Class    string      `json:"class"`
	Title    string      `json:"title"`
	Geometry layout.Rect `json:"geometry"`
}

// Window pairs a handle with its current attributes.
type Window struct {
	Handle Handle `json:"handle"`
	Attrs  Attrs  `json:"attrs"`
}

// EventKind discriminates the window lifecycle events the gateway emits.
type EventKind int

const (
	EventCreated EventKind = iota
	EventDestroyed
	EventMoved
	EventFocusChanged
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventMoved:
		return "moved"
	case EventFocusChanged:
		return "focus-changed"
	}
	return "unknown"
}

// Event is one window lifecycle event. Attrs is set for Created,
// Geometry for Moved; the other kinds carry only the handle.
type Event struct {
	Kind     EventKind
	Handle   Handle
	Attrs    Attrs
	Geometry layout.Rect
}

// Error is a transport-level gateway failure. The reconciler treats any
// Error from Subscribe or List as a trigger for degraded mode.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("wm: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Gateway is the daemon's only route to real windows.
//
// Subscribe returns a fresh event channel; the channel is closed when the
// underlying connection is lost, which is the end-of-stream marker the
// reconciler watches for. A closed stream cannot be restarted; callers
// reconnect by calling Subscribe again.
type Gateway interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
	List(ctx context.Context) ([]Window, error)
	Apply(ctx context.Context, h Handle, geom layout.Rect) error
	Focus(ctx context.Context, h Handle) error
	Close() error
}
