// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: wm/fake.go
// Summary: In-memory gateway for tests and --dry-run mode.

package wm

import (
	"context"
	"errors"
	"sync"

	"github.com/framegrace/winmux/layout"
)

// AppliedGeometry records one Apply call made against the Fake.
type AppliedGeometry struct {
	Handle   Handle
	Geometry layout.Rect
}

// Fake is an in-memory Gateway. In dry-run mode it stands in for the real
// window manager so every command path can run without touching windows;
// tests use it to script lifecycle events and disconnections.
type Fake struct {
	mu          sync.Mutex
	windows     map[Handle]Attrs
	events      chan Event
	subscribed  bool
	applied     []AppliedGeometry
	focused     []Handle
	failApply   error
	listErr     error
	disconnects int
}

// NewFake returns an empty fake gateway.
func NewFake() *Fake {
	return &Fake{windows: make(map[Handle]Attrs)}
}

// AddWindow makes a window part of the fake's live set without emitting an
// event, used to seed pre-existing windows.
func (f *Fake) AddWindow(h Handle, attrs Attrs) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[h] = attrs
}

// RemoveWindow silently drops a window from the live set, simulating a
// window that died while the gateway was disconnected.
func (f *Fake) RemoveWindow(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, h)
}

// OpenWindow adds the window and emits the matching Created event.
func (f *Fake) OpenWindow(h Handle, attrs Attrs) {
	f.AddWindow(h, attrs)
	f.Emit(Event{Kind: EventCreated, Handle: h, Attrs: attrs})
}

// CloseWindow removes the window and emits Destroyed.
func (f *Fake) CloseWindow(h Handle) {
	f.RemoveWindow(h)
	f.Emit(Event{Kind: EventDestroyed, Handle: h})
}

// Emit delivers an event to the current subscriber, if any.
func (f *Fake) Emit(ev Event) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

// Disconnect closes the current event stream, simulating connection loss.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events != nil {
		close(f.events)
		f.events = nil
		f.subscribed = false
		f.disconnects++
	}
}

// Disconnects reports how many times the stream has been dropped.
func (f *Fake) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *Fake) Subscribe(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed {
		return nil, &Error{Op: "subscribe", Err: errors.New("already subscribed")}
	}
	f.events = make(chan Event, 64)
	f.subscribed = true
	return f.events, nil
}

func (f *Fake) List(ctx context.Context) ([]Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, &Error{Op: "list", Err: f.listErr}
	}
	out := make([]Window, 0, len(f.windows))
	for h, attrs := range f.windows {
		out = append(out, Window{Handle: h, Attrs: attrs})
	}
	return out, nil
}

func (f *Fake) Apply(ctx context.Context, h Handle, geom layout.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApply != nil {
		return &Error{Op: "apply", Err: f.failApply}
	}
	if attrs, ok := f.windows[h]; ok {
		attrs.Geometry = geom
		f.windows[h] = attrs
	}
	f.applied = append(f.applied, AppliedGeometry{Handle: h, Geometry: geom})
	return nil
}

func (f *Fake) Focus(ctx context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = append(f.focused, h)
	return nil
}

func (f *Fake) Close() error {
	f.Disconnect()
	return nil
}

// Applied returns a copy of all recorded Apply calls.
func (f *Fake) Applied() []AppliedGeometry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AppliedGeometry, len(f.applied))
	copy(out, f.applied)
	return out
}

// Focused returns the handles focused so far.
func (f *Fake) Focused() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Handle, len(f.focused))
	copy(out, f.focused)
	return out
}

// FailApply makes subsequent Apply calls return the given error.
func (f *Fake) FailApply(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failApply = err
}

// FailList makes subsequent List calls return the given error.
func (f *Fake) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}
