package mux

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

func TestCreateSessionMakesInitialWorkspace(t *testing.T) {
	st := NewStore()
	s, err := st.CreateSession("work", false)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(s.Workspaces()) != 1 || s.Workspaces()[0].Name != "1" {
		t.Fatalf("expected initial workspace \"1\", got %+v", s.Workspaces())
	}
	if s.ActiveWorkspace() != s.Workspaces()[0] {
		t.Fatalf("initial workspace should be active")
	}
}

func TestCreateSessionDuplicate(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := st.CreateSession("work", false); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestWorkspaceOrdinalNames(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ws, err := st.CreateWorkspace("work", "")
	if err != nil {
		t.Fatalf("create workspace failed: %v", err)
	}
	if ws.Name != "2" {
		t.Fatalf("workspace name = %q, want \"2\"", ws.Name)
	}
	if _, err := st.CreateWorkspace("work", "2"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func seedPane(t *testing.T, st *Store, session string) *Pane {
	t.Helper()
	s, err := st.Session(session)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	p, err := st.AddRootPane(s.ActiveWorkspace())
	if err != nil {
		t.Fatalf("add root pane failed: %v", err)
	}
	return p
}

func TestSplitAndKillPaneCascade(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	a := seedPane(t, st, "work")
	b, err := st.SplitPane(a.ID, layout.Horizontal, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	if _, err := st.KillPane(b.ID); err != nil {
		t.Fatalf("kill pane failed: %v", err)
	}
	if _, err := st.Pane(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("killed pane still present")
	}

	// Killing the last pane destroys workspace and session.
	destroyed, err := st.KillPane(a.ID)
	if err != nil {
		t.Fatalf("kill last pane failed: %v", err)
	}
	if destroyed != "work" {
		t.Fatalf("destroyed session = %q, want \"work\"", destroyed)
	}
	if _, err := st.Session("work"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session survived the cascade")
	}
}

func TestKillPanePersistentConflict(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("keep", true); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	p := seedPane(t, st, "keep")
	if _, err := st.KillPane(p.ID); !errors.Is(err, ErrLastPane) {
		t.Fatalf("err = %v, want ErrLastPane", err)
	}
	if _, err := st.Pane(p.ID); err != nil {
		t.Fatalf("pane should be untouched after refused kill: %v", err)
	}
}

func TestDestroyPaneKeepsPersistentSession(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("keep", true); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	p := seedPane(t, st, "keep")
	if _, err := st.DestroyPane(p.ID); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	s, err := st.Session("keep")
	if err != nil {
		t.Fatalf("persistent session destroyed: %v", err)
	}
	if len(s.Workspaces()) != 0 {
		t.Fatalf("expected zero workspaces, got %d", len(s.Workspaces()))
	}
}

func TestBindIsInjective(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	a := seedPane(t, st, "work")
	b, err := st.SplitPane(a.ID, layout.Vertical, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	if err := st.Bind(a.ID, "win-1", wm.Attrs{Class: "term"}); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := st.Bind(b.ID, "win-1", wm.Attrs{}); !errors.Is(err, ErrInvariant) {
		t.Fatalf("double bind err = %v, want ErrInvariant", err)
	}

	// Rebinding the same pane to a new handle releases the old one.
	if err := st.Bind(a.ID, "win-2", wm.Attrs{}); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	if _, ok := st.PaneByHandle("win-1"); ok {
		t.Fatalf("old handle still mapped after rebind")
	}
	if err := st.Bind(b.ID, "win-1", wm.Attrs{}); err != nil {
		t.Fatalf("released handle should be bindable: %v", err)
	}
}

func TestDetachLastClientKeepsSession(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	client := uuid.New()
	if err := st.AttachClient(client, "work"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := st.DetachClient(client); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	s, err := st.Session("work")
	if err != nil {
		t.Fatalf("session destroyed by detach: %v", err)
	}
	if s.AttachedClients() != 0 {
		t.Fatalf("expected zero attached clients")
	}
	if len(s.Workspaces()) != 1 {
		t.Fatalf("workspaces destroyed by detach")
	}
}

func TestAttachMovesClientBetweenSessions(t *testing.T) {
	st := NewStore()
	for _, name := range []string{"one", "two"} {
		if _, err := st.CreateSession(name, false); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	client := uuid.New()
	if err := st.AttachClient(client, "one"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := st.AttachClient(client, "two"); err != nil {
		t.Fatalf("re-attach failed: %v", err)
	}
	one, _ := st.Session("one")
	two, _ := st.Session("two")
	if one.AttachedClients() != 0 || two.AttachedClients() != 1 {
		t.Fatalf("client attached to more than one session")
	}
}

func TestOrphanAndRecover(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	p := seedPane(t, st, "work")
	if err := st.Bind(p.ID, "win-1", wm.Attrs{}); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	if n := st.Orphan(); n != 1 {
		t.Fatalf("orphaned %d panes, want 1", n)
	}
	if p.State != Orphaned {
		t.Fatalf("state = %v, want Orphaned", p.State)
	}
	// Rebinding an orphan restores Bound with the same identity.
	if err := st.Bind(p.ID, "win-1", wm.Attrs{Title: "back"}); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	if p.State != Bound || p.Title != "back" {
		t.Fatalf("orphan did not return to Bound: %+v", p)
	}
}

func TestPins(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := st.SetPin("dev", "work", "1"); err != nil {
		t.Fatalf("set pin failed: %v", err)
	}
	if err := st.SetPin("bad", "work", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pin to missing workspace err = %v, want ErrNotFound", err)
	}
	ws, err := st.PinTarget("dev")
	if err != nil || ws.Name != "1" {
		t.Fatalf("pin target = %v, %v", ws, err)
	}

	// Killing the session sweeps its pins.
	if err := st.KillSession("work"); err != nil {
		t.Fatalf("kill failed: %v", err)
	}
	if len(st.Pins()) != 0 {
		t.Fatalf("pins survived session kill")
	}
}

func TestSummaries(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateSession("work", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	a := seedPane(t, st, "work")
	if _, err := st.SplitPane(a.ID, layout.Horizontal, 0.5); err != nil {
		t.Fatalf("split failed: %v", err)
	}
	sums := st.Summaries()
	if len(sums) != 1 {
		t.Fatalf("expected one summary, got %d", len(sums))
	}
	got := sums[0]
	if got.Name != "work" || got.Workspaces != 1 || got.Panes != 2 || got.ActiveWorkspace != "1" {
		t.Fatalf("unexpected summary %+v", got)
	}
}
