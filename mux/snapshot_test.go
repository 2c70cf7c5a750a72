package mux

import (
	"testing"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

func buildSampleStore(t *testing.T) *Store {
	t.Helper()
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	a := seedPane(t, st, "work")
	b, err := st.SplitPane(a.ID, layout.Horizontal, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if err := st.Bind(a.ID, "win-a", wm.Attrs{Class: "editor", Title: "main.go"}); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := st.Bind(b.ID, "win-b", wm.Attrs{Class: "term", Title: "shell"}); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := st.SetPin("dev", "work", "1"); err != nil {
		t.Fatalf("set pin failed: %v", err)
	}
	return st
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := buildSampleStore(t)
	snap := st.Capture()

	restored, err := Restore(snap, nil)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if len(restored.Sessions()) != 1 {
		t.Fatalf("expected one session")
	}
	s := restored.Sessions()[0]
	if s.Name != "work" || len(s.Workspaces()) != 1 {
		t.Fatalf("unexpected session %+v", s)
	}
	origTree := st.Sessions()[0].Workspaces()[0].Root
	gotTree := s.Workspaces()[0].Root
	if !layout.Equal(origTree, gotTree) {
		t.Fatalf("layout tree did not round-trip")
	}
	for _, p := range s.Workspaces()[0].Panes() {
		if p.State != Unbound {
			t.Fatalf("restored pane without live windows should be Unbound, got %v", p.State)
		}
		if p.Handle != "" {
			t.Fatalf("raw handle persisted: %q", p.Handle)
		}
	}
	if len(restored.Pins()) != 1 || restored.Pins()[0].Name != "dev" {
		t.Fatalf("pins did not round-trip: %+v", restored.Pins())
	}
}

func TestRestoreMatchesBySpecificity(t *testing.T) {
	st := buildSampleStore(t)
	snap := st.Capture()

	live := []wm.Window{
		// Exact class+title match for the editor pane.
		{Handle: "new-1", Attrs: wm.Attrs{Class: "editor", Title: "main.go"}},
		// Class-only match for the term pane (title changed).
		{Handle: "new-2", Attrs: wm.Attrs{Class: "term", Title: "htop"}},
		// Unrelated window stays untracked.
		{Handle: "new-3", Attrs: wm.Attrs{Class: "browser", Title: "docs"}},
	}

	restored, err := Restore(snap, live)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	editor, ok := restored.PaneByHandle("new-1")
	if !ok || editor.Class != "editor" || editor.State != Bound {
		t.Fatalf("editor pane not rebound: %+v", editor)
	}
	term, ok := restored.PaneByHandle("new-2")
	if !ok || term.Class != "term" || term.State != Bound {
		t.Fatalf("term pane not rebound: %+v", term)
	}
	if _, ok := restored.PaneByHandle("new-3"); ok {
		t.Fatalf("unrelated window was adopted during restore")
	}
}

func TestRestoreLeavesUnmatchedUnbound(t *testing.T) {
	st := buildSampleStore(t)
	snap := st.Capture()

	live := []wm.Window{{Handle: "new-1", Attrs: wm.Attrs{Class: "editor", Title: "main.go"}}}
	restored, err := Restore(snap, live)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	unbound := restored.UnboundPanes()
	if len(unbound) != 1 || unbound[0].Class != "term" {
		t.Fatalf("expected the term pane to stay unbound, got %+v", unbound)
	}
}

func TestRestoreBindsDescriptorlessPaneToFreeWindow(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Snapshotted while still Unbound: no class, no title.
	seedPane(t, st, "work")
	snap := st.Capture()

	live := []wm.Window{{Handle: "free", Attrs: wm.Attrs{Class: "browser", Title: "docs"}}}
	restored, err := Restore(snap, live)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	p, ok := restored.PaneByHandle("free")
	if !ok || p.State != Bound {
		t.Fatalf("descriptor-less pane did not take the free window")
	}
	if len(restored.UnboundPanes()) != 0 {
		t.Fatalf("pane stayed unbound with a live window available")
	}
}

func TestRestoreNeverDoubleBindsOneWindow(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	a := seedPane(t, st, "work")
	if _, err := st.SplitPane(a.ID, layout.Vertical, 0.5); err != nil {
		t.Fatalf("split failed: %v", err)
	}
	// Both panes carry the same class descriptor.
	for _, p := range st.Sessions()[0].Workspaces()[0].Panes() {
		p.Class = "term"
	}
	snap := st.Capture()

	live := []wm.Window{{Handle: "only", Attrs: wm.Attrs{Class: "term"}}}
	restored, err := Restore(snap, live)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	bound := 0
	for _, p := range restored.Sessions()[0].Workspaces()[0].Panes() {
		if p.State == Bound {
			bound++
			if p.Handle != "only" {
				t.Fatalf("bound to unexpected handle %q", p.Handle)
			}
		}
	}
	if bound != 1 {
		t.Fatalf("%d panes bound to one window, want exactly 1", bound)
	}
}
