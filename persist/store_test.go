// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: persist/store_test.go

package persist

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/mux"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "winmux.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSnapshot() mux.Snapshot {
	a, b := uuid.New(), uuid.New()
	tree := &layout.Node{
		Axis:   layout.Horizontal,
		Ratio:  0.3,
		First:  layout.Leaf(a),
		Second: layout.Leaf(b),
	}
	return mux.Snapshot{
		Sessions: []mux.SessionRecord{
			{
				Name:       "work",
				Persistent: true,
				Workspaces: []mux.WorkspaceRecord{
					{
						Name:   "1",
						Active: true,
						Tree:   tree,
						Panes: []mux.PaneRecord{
							{ID: a, Class: "term", Title: "shell", Geometry: layout.Rect{W: 300, H: 800}},
							{ID: b, Class: "editor", Geometry: layout.Rect{X: 300, W: 700, H: 800}},
						},
					},
					{Name: "2"},
				},
			},
			{Name: "scratch"},
		},
		Pins: []mux.Pin{{Name: "mail", Session: "work", Workspace: "2"}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := openTestStore(t)
	want := sampleSnapshot()

	if err := st.Save(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(got.Sessions) != 2 || got.Sessions[0].Name != "work" || got.Sessions[1].Name != "scratch" {
		t.Fatalf("session order lost: %+v", got.Sessions)
	}
	ws := got.Sessions[0].Workspaces
	if len(ws) != 2 || !ws[0].Active || ws[1].Active {
		t.Fatalf("workspace flags lost: %+v", ws)
	}
	if ws[0].Tree == nil || !layout.Equal(ws[0].Tree, want.Sessions[0].Workspaces[0].Tree) {
		t.Fatalf("tree did not survive: %+v", ws[0].Tree)
	}
	if len(ws[0].Panes) != 2 {
		t.Fatalf("panes lost: %+v", ws[0].Panes)
	}
	p := ws[0].Panes[0]
	wp := want.Sessions[0].Workspaces[0].Panes[0]
	if p.ID != wp.ID || p.Class != wp.Class || p.Title != wp.Title || p.Geometry != wp.Geometry {
		t.Fatalf("pane record mismatch: got %+v want %+v", p, wp)
	}
	if len(got.Pins) != 1 || got.Pins[0] != want.Pins[0] {
		t.Fatalf("pins lost: %+v", got.Pins)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	st := openTestStore(t)
	if err := st.Save(sampleSnapshot()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second := mux.Snapshot{Sessions: []mux.SessionRecord{{Name: "solo"}}}
	if err := st.Save(second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].Name != "solo" || len(got.Pins) != 0 {
		t.Fatalf("previous snapshot leaked through: %+v", got)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	st := openTestStore(t)
	got, err := st.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.Sessions) != 0 || len(got.Pins) != 0 {
		t.Fatalf("empty database yielded state: %+v", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "winmux.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := st.Save(sampleSnapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	st.Close()

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()
	got, err := st2.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.Sessions) != 2 {
		t.Fatalf("data lost across reopen: %+v", got)
	}
}
