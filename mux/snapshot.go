// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/snapshot.go
// Summary: Capture and restore of the session graph.
// Usage: Capture produces pure-data records for the persistence adapter;
// Restore rebuilds a graph from records and rebinds panes against the
// live window set by descriptor matching.

package mux

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

// PaneRecord is the persisted descriptor for one pane. It deliberately
// never carries the window handle: handles are not stable across window
// manager restarts. Class and title are the matching descriptor, the
// geometry is a last-known hint.
type PaneRecord struct {
	ID       uuid.UUID   `json:"id"`
	Class    string      `json:"class,omitempty"`
	Title    string      `json:"title,omitempty"`
	Geometry layout.Rect `json:"geometry"`
}

// WorkspaceRecord captures one workspace with its layout tree. Pane IDs
// in the tree reference the Panes slice.
type WorkspaceRecord struct {
	Name   string       `json:"name"`
	Active bool         `json:"active"`
	Tree   *layout.Node `json:"tree,omitempty"`
	Panes  []PaneRecord `json:"panes"`
}

// SessionRecord captures one session.
type SessionRecord struct {
	Name       string            `json:"name"`
	Persistent bool              `json:"persistent"`
	Workspaces []WorkspaceRecord `json:"workspaces"`
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Sessions []SessionRecord `json:"sessions"`
	Pins     []Pin           `json:"pins,omitempty"`
}

// Capture converts the live graph into records. The result shares no
// pointers with the graph and is safe to hand to another goroutine.
func (st *Store) Capture() Snapshot {
	var snap Snapshot
	for _, s := range st.Sessions() {
		rec := SessionRecord{Name: s.Name, Persistent: s.Persistent}
		for _, ws := range s.workspaces {
			wrec := WorkspaceRecord{
				Name:   ws.Name,
				Active: s.active == ws,
				Tree:   layout.Clone(ws.Root),
			}
			for _, id := range layout.Leaves(ws.Root) {
				p := ws.panes[id]
				if p == nil {
					continue
				}
				wrec.Panes = append(wrec.Panes, PaneRecord{
					ID:       p.ID,
					Class:    p.Class,
					Title:    p.Title,
					Geometry: p.Geometry,
				})
			}
			rec.Workspaces = append(rec.Workspaces, wrec)
		}
		snap.Sessions = append(snap.Sessions, rec)
	}
	snap.Pins = st.Pins()
	return snap
}

// Restore rebuilds a store from a snapshot and greedily matches pane
// descriptors against the live window set by descending specificity:
// exact class+title first, then class only, then any remaining window.
// Panes stay Unbound awaiting a future Created event only once the live
// set is exhausted; surplus live windows stay untracked. Each window
// binds at most one pane.
func Restore(snap Snapshot, live []wm.Window) (*Store, error) {
	st := NewStore()
	for _, rec := range snap.Sessions {
		s := &Session{
			Name:       rec.Name,
			Persistent: rec.Persistent,
			clients:    make(map[uuid.UUID]struct{}),
		}
		if _, exists := st.sessions[rec.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate session %q in snapshot", ErrInvariant, rec.Name)
		}
		st.sessions[rec.Name] = s
		st.sessionOrder = append(st.sessionOrder, rec.Name)

		for _, wrec := range rec.Workspaces {
			ws := &Workspace{
				Name:    wrec.Name,
				Root:    layout.Clone(wrec.Tree),
				session: s,
				panes:   make(map[uuid.UUID]*Pane),
			}
			for _, prec := range wrec.Panes {
				if !layout.Contains(ws.Root, prec.ID) {
					return nil, fmt.Errorf("%w: pane %s not in workspace %q tree", ErrInvariant, prec.ID, wrec.Name)
				}
				p := &Pane{
					ID:        prec.ID,
					State:     Unbound,
					Class:     prec.Class,
					Title:     prec.Title,
					Geometry:  prec.Geometry,
					workspace: ws,
				}
				ws.panes[p.ID] = p
				st.panes[p.ID] = p
			}
			if leaves := layout.Leaves(ws.Root); len(leaves) > 0 {
				ws.active = leaves[0]
			}
			s.workspaces = append(s.workspaces, ws)
			if wrec.Active || s.active == nil {
				s.active = ws
			}
		}
	}
	for _, pin := range snap.Pins {
		st.pins[pin.Name] = pin
	}

	matchDescriptors(st, live)
	return st, nil
}

// matchDescriptors binds unbound panes to live windows, most specific
// descriptors first.
func matchDescriptors(st *Store, live []wm.Window) {
	taken := make(map[wm.Handle]bool, len(live))

	type pass func(p *Pane, w wm.Window) bool
	passes := []pass{
		func(p *Pane, w wm.Window) bool {
			return p.Class != "" && p.Title != "" && p.Class == w.Attrs.Class && p.Title == w.Attrs.Title
		},
		func(p *Pane, w wm.Window) bool {
			return p.Class != "" && p.Class == w.Attrs.Class
		},
		// Last tier: a pane with no usable descriptor, or whose
		// descriptor matched nothing, takes any window still free.
		func(p *Pane, w wm.Window) bool {
			return true
		},
	}

	for _, match := range passes {
		for _, p := range st.UnboundPanes() {
			for _, w := range live {
				if taken[w.Handle] {
					continue
				}
				if _, bound := st.byHandle[w.Handle]; bound {
					continue
				}
				if match(p, w) {
					_ = st.Bind(p.ID, w.Handle, w.Attrs)
					taken[w.Handle] = true
					break
				}
			}
		}
	}
}
