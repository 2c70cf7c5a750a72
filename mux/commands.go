// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/commands.go
// Summary: Command operations posted onto the engine loop.
// Usage: Called by the command server (and the daemon); every method is
// one queue item, atomic relative to gateway events and other commands.

package mux

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
)

// call posts fn as one queue item and waits for it to run.
func (e *Engine) call(ctx context.Context, verb string, fn func() error) error {
	metricCommands.WithLabelValues(verb).Inc()
	done := make(chan error, 1)
	if err := e.post(ctx, reqEnvelope{fn: func() { done <- fn() }}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewSession creates a named session with its initial workspace.
func (e *Engine) NewSession(ctx context.Context, name string) error {
	return e.call(ctx, "new-session", func() error {
		if _, err := e.store.CreateSession(name, e.opts.PersistentSessions); err != nil {
			return err
		}
		e.current = name
		return nil
	})
}

// KillSession destroys a session and everything under it.
func (e *Engine) KillSession(ctx context.Context, name string) error {
	return e.call(ctx, "kill-session", func() error {
		if err := e.store.KillSession(name); err != nil {
			return err
		}
		if e.current == name {
			e.current = ""
		}
		e.notifier.SessionDestroyed(name)
		return nil
	})
}

// NewWindow creates a workspace in the session and makes it active.
// It returns the workspace name.
func (e *Engine) NewWindow(ctx context.Context, session, name string) (string, error) {
	var created string
	err := e.call(ctx, "new-window", func() error {
		ws, err := e.store.CreateWorkspace(session, name)
		if err != nil {
			return err
		}
		ws.session.active = ws
		created = ws.Name
		return nil
	})
	return created, err
}

// SplitWindow splits the target pane and waits until the expected window
// appears (bind) or the adoption timeout fires. spawnCmd, when present,
// is launched detached and is expected to produce that window.
func (e *Engine) SplitWindow(ctx context.Context, pane uuid.UUID, axis layout.Axis, ratio float64, spawnCmd []string) (uuid.UUID, error) {
	metricCommands.WithLabelValues("split-window").Inc()
	res := make(chan splitResult, 1)
	fn := func() {
		if e.degraded {
			res <- splitResult{err: ErrGatewayUnavailable}
			return
		}
		p, err := e.store.SplitPane(pane, axis, ratio)
		if err != nil {
			res <- splitResult{err: err}
			return
		}
		e.registerPending(p, res, spawnCmd)
	}
	if err := e.post(ctx, reqEnvelope{fn: fn}); err != nil {
		return uuid.Nil, err
	}
	return e.awaitSplit(ctx, res)
}

// OpenPane seeds the first pane of an empty workspace, with the same
// pending-bind semantics as SplitWindow.
func (e *Engine) OpenPane(ctx context.Context, session, workspace string, spawnCmd []string) (uuid.UUID, error) {
	metricCommands.WithLabelValues("split-window").Inc()
	res := make(chan splitResult, 1)
	fn := func() {
		if e.degraded {
			res <- splitResult{err: ErrGatewayUnavailable}
			return
		}
		ws, err := e.store.Workspace(session, workspace)
		if err != nil {
			res <- splitResult{err: err}
			return
		}
		p, err := e.store.AddRootPane(ws)
		if err != nil {
			res <- splitResult{err: err}
			return
		}
		e.registerPending(p, res, spawnCmd)
	}
	if err := e.post(ctx, reqEnvelope{fn: fn}); err != nil {
		return uuid.Nil, err
	}
	return e.awaitSplit(ctx, res)
}

// registerPending runs on the loop: it arms the adoption timeout, starts
// the spawned application, and resizes the siblings so the gap for the
// coming window already exists.
func (e *Engine) registerPending(p *Pane, res chan splitResult, spawnCmd []string) {
	if len(spawnCmd) > 0 {
		if err := spawn(spawnCmd); err != nil {
			e.destroyPane(p.ID)
			res <- splitResult{err: err}
			return
		}
	}
	timer := time.AfterFunc(e.opts.AdoptionTimeout, func() {
		e.postAsync(bindTimeoutEnvelope{pane: p.ID})
	})
	e.pending = append(e.pending, &pendingBind{
		pane:    p.ID,
		reply:   res,
		timer:   timer,
		created: time.Now(),
	})
	e.applyWorkspaceLayout(p.workspace)
}

func (e *Engine) awaitSplit(ctx context.Context, res chan splitResult) (uuid.UUID, error) {
	select {
	case r := <-res:
		return r.pane, r.err
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// KillPane removes a pane explicitly, with cascade.
func (e *Engine) KillPane(ctx context.Context, pane uuid.UUID) error {
	return e.call(ctx, "kill-pane", func() error {
		p, err := e.store.Pane(pane)
		if err != nil {
			return err
		}
		ws := p.workspace
		session := ws.session
		destroyed, err := e.store.KillPane(pane)
		if err != nil {
			return err
		}
		if destroyed != "" {
			e.notifier.SessionDestroyed(destroyed)
			if e.current == destroyed {
				e.current = ""
			}
			return nil
		}
		if len(ws.panes) > 0 {
			e.applyWorkspaceLayout(ws)
		} else if active := session.ActiveWorkspace(); active != nil {
			e.applyWorkspaceLayout(active)
		}
		return nil
	})
}

// SelectWindow switches a session's active workspace, re-applies its
// layout and focuses its active pane.
func (e *Engine) SelectWindow(ctx context.Context, session, workspace string) error {
	return e.call(ctx, "select-window", func() error {
		ws, err := e.store.SwitchActiveWorkspace(session, workspace)
		if err != nil {
			return err
		}
		e.current = session
		e.applyWorkspaceLayout(ws)
		e.focusActive(ws)
		return nil
	})
}

func (e *Engine) focusActive(ws *Workspace) {
	if e.degraded {
		return
	}
	if p := ws.ActivePane(); p != nil && p.State == Bound {
		e.enqueueApply(applyJob{handle: p.Handle, focus: true})
	}
}

// Attach attaches a client and delivers the full state to it.
func (e *Engine) Attach(ctx context.Context, client uuid.UUID, session string) error {
	return e.call(ctx, "attach-session", func() error {
		if err := e.store.AttachClient(client, session); err != nil {
			return err
		}
		e.current = session
		e.notifier.FullState(client, e.store.Capture())
		return nil
	})
}

// Detach detaches a client. The session always survives this.
func (e *Engine) Detach(ctx context.Context, client uuid.UUID) error {
	return e.call(ctx, "detach-client", func() error {
		return e.store.DetachClient(client)
	})
}

// ListSessions works from the in-memory model and keeps working in
// degraded mode.
func (e *Engine) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var out []SessionInfo
	err := e.call(ctx, "list-sessions", func() error {
		out = e.store.Summaries()
		return nil
	})
	return out, err
}

// SetPin registers a workspace pin.
func (e *Engine) SetPin(ctx context.Context, name, session, workspace string) error {
	return e.call(ctx, "set-pin", func() error {
		return e.store.SetPin(name, session, workspace)
	})
}

// FocusPin jumps to the pinned workspace.
func (e *Engine) FocusPin(ctx context.Context, name string) error {
	return e.call(ctx, "focus-pin", func() error {
		ws, err := e.store.PinTarget(name)
		if err != nil {
			return err
		}
		ws.session.active = ws
		e.current = ws.session.Name
		e.applyWorkspaceLayout(ws)
		e.focusActive(ws)
		return nil
	})
}

// ListPins returns the pin table.
func (e *Engine) ListPins(ctx context.Context) ([]Pin, error) {
	var out []Pin
	err := e.call(ctx, "list-pins", func() error {
		out = e.store.Pins()
		return nil
	})
	return out, err
}

// CaptureSnapshot produces a consistent snapshot as one queue item; used
// by the periodic persistence timer and the shutdown path.
func (e *Engine) CaptureSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.call(ctx, "snapshot", func() error {
		snap = e.store.Capture()
		return nil
	})
	return snap, err
}

// Degraded reports whether the gateway is currently unavailable.
func (e *Engine) Degraded(ctx context.Context) (bool, error) {
	var degraded bool
	err := e.call(ctx, "status", func() error {
		degraded = e.degraded
		return nil
	})
	return degraded, err
}
