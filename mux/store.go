// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/store.go
// Summary: Entity graph for sessions, workspaces and panes.
// Usage: Owned exclusively by the engine loop; every mutation runs as one
// queue item, which is what makes each operation atomic.

package mux

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

var (
	ErrNotFound      = errors.New("mux: not found")
	ErrAlreadyExists = errors.New("mux: already exists")
	ErrInvariant     = errors.New("mux: invariant violation")
	ErrLastPane      = errors.New("mux: last pane of a persistent session")
)

// BindState is the lifecycle of a pane's association with a real window.
type BindState int

const (
	// Unbound panes exist in the tree but have no window yet (pending
	// adoption after a split, or an unmatched restore descriptor).
	Unbound BindState = iota
	// Bound panes mirror exactly one live window.
	Bound
	// Orphaned panes were bound when the gateway connection dropped;
	// their window's liveness is unknown until the reconnect diff.
	Orphaned
)

func (s BindState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Orphaned:
		return "orphaned"
	}
	return "invalid"
}

// Pane binds one external window to one leaf of a workspace tree.
type Pane struct {
	ID       uuid.UUID
	Handle   wm.Handle // empty unless Bound or Orphaned
	State    BindState
	Class    string
	Title    string
	Geometry layout.Rect

	workspace *Workspace
}

// Workspace returns the owning workspace.
func (p *Pane) Workspace() *Workspace { return p.workspace }

// Workspace is a named arrangement of panes, the tmux "window" analogue.
type Workspace struct {
	Name    string
	Root    *layout.Node
	session *Session
	panes   map[uuid.UUID]*Pane
	active  uuid.UUID
}

// Session returns the owning session.
func (w *Workspace) Session() *Session { return w.session }

// ActivePane returns the workspace's active pane, or nil when empty.
func (w *Workspace) ActivePane() *Pane {
	if p, ok := w.panes[w.active]; ok {
		return p
	}
	return nil
}

// Panes returns the workspace's panes keyed by ID. Callers must not hold
// the map across queue items.
func (w *Workspace) Panes() map[uuid.UUID]*Pane { return w.panes }

// Session is the top-level named container of workspaces. It survives
// client detachment; only kill-session or the destroyed-cascade removes it.
type Session struct {
	Name       string
	CreatedAt  time.Time
	Persistent bool

	workspaces []*Workspace
	active     *Workspace
	clients    map[uuid.UUID]struct{}
}

// ActiveWorkspace returns the session's active workspace.
func (s *Session) ActiveWorkspace() *Workspace { return s.active }

// Workspaces returns the ordered workspace list.
func (s *Session) Workspaces() []*Workspace { return s.workspaces }

// AttachedClients reports how many clients are attached.
func (s *Session) AttachedClients() int { return len(s.clients) }

// Pin maps a short name to a session workspace.
type Pin struct {
	Name      string
	Session   string
	Workspace string
}

// Store owns the full session/workspace/pane graph plus the injective
// window-identity mapping. It is not safe for concurrent use: the engine
// loop is its only caller.
type Store struct {
	sessions     map[string]*Session
	sessionOrder []string
	panes        map[uuid.UUID]*Pane
	byHandle     map[wm.Handle]uuid.UUID
	clients      map[uuid.UUID]string // client -> session name
	pins         map[string]Pin
}

// NewStore returns an empty graph.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		panes:    make(map[uuid.UUID]*Pane),
		byHandle: make(map[wm.Handle]uuid.UUID),
		clients:  make(map[uuid.UUID]string),
		pins:     make(map[string]Pin),
	}
}

// Session looks up a session by name.
func (st *Store) Session(name string) (*Session, error) {
	s, ok := st.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: session %q", ErrNotFound, name)
	}
	return s, nil
}

// Sessions returns sessions in creation order.
func (st *Store) Sessions() []*Session {
	out := make([]*Session, 0, len(st.sessionOrder))
	for _, name := range st.sessionOrder {
		out = append(out, st.sessions[name])
	}
	return out
}

// Pane looks up a pane by ID.
func (st *Store) Pane(id uuid.UUID) (*Pane, error) {
	p, ok := st.panes[id]
	if !ok {
		return nil, fmt.Errorf("%w: pane %s", ErrNotFound, id)
	}
	return p, nil
}

// PaneByHandle resolves the pane bound to a window handle.
func (st *Store) PaneByHandle(h wm.Handle) (*Pane, bool) {
	id, ok := st.byHandle[h]
	if !ok {
		return nil, false
	}
	p, ok := st.panes[id]
	return p, ok
}

// CreateSession creates a session with one empty initial workspace,
// mirroring how the original always created a default view per project.
func (st *Store) CreateSession(name string, persistent bool) (*Session, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty session name", ErrInvariant)
	}
	if _, ok := st.sessions[name]; ok {
		return nil, fmt.Errorf("%w: session %q", ErrAlreadyExists, name)
	}
	s := &Session{
		Name:       name,
		CreatedAt:  time.Now(),
		Persistent: persistent,
		clients:    make(map[uuid.UUID]struct{}),
	}
	st.sessions[name] = s
	st.sessionOrder = append(st.sessionOrder, name)
	if _, err := st.CreateWorkspace(name, ""); err != nil {
		delete(st.sessions, name)
		st.sessionOrder = st.sessionOrder[:len(st.sessionOrder)-1]
		return nil, err
	}
	return s, nil
}

// KillSession removes a session and all its workspaces and panes. The
// bound windows themselves are left alone, merely untracked afterwards.
func (st *Store) KillSession(name string) error {
	s, err := st.Session(name)
	if err != nil {
		return err
	}
	for _, ws := range s.workspaces {
		for id, p := range ws.panes {
			st.releaseHandle(p)
			delete(st.panes, id)
		}
	}
	delete(st.sessions, name)
	for i, n := range st.sessionOrder {
		if n == name {
			st.sessionOrder = append(st.sessionOrder[:i], st.sessionOrder[i+1:]...)
			break
		}
	}
	for client, attached := range st.clients {
		if attached == name {
			delete(st.clients, client)
		}
	}
	for pin, target := range st.pins {
		if target.Session == name {
			delete(st.pins, pin)
		}
	}
	return nil
}

// CreateWorkspace appends a workspace to the session. An empty name picks
// the next free ordinal.
func (st *Store) CreateWorkspace(session, name string) (*Workspace, error) {
	s, err := st.Session(session)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = st.nextWorkspaceName(s)
	}
	for _, ws := range s.workspaces {
		if ws.Name == name {
			return nil, fmt.Errorf("%w: workspace %q in session %q", ErrAlreadyExists, name, session)
		}
	}
	ws := &Workspace{
		Name:    name,
		session: s,
		panes:   make(map[uuid.UUID]*Pane),
	}
	s.workspaces = append(s.workspaces, ws)
	if s.active == nil {
		s.active = ws
	}
	return ws, nil
}

func (st *Store) nextWorkspaceName(s *Session) string {
	used := make(map[string]bool, len(s.workspaces))
	for _, ws := range s.workspaces {
		used[ws.Name] = true
	}
	for i := 1; ; i++ {
		name := strconv.Itoa(i)
		if !used[name] {
			return name
		}
	}
}

// Workspace resolves a workspace by session and name.
func (st *Store) Workspace(session, name string) (*Workspace, error) {
	s, err := st.Session(session)
	if err != nil {
		return nil, err
	}
	for _, ws := range s.workspaces {
		if ws.Name == name {
			return ws, nil
		}
	}
	return nil, fmt.Errorf("%w: workspace %q in session %q", ErrNotFound, name, session)
}

// AddRootPane seeds a workspace's first pane. Used by window adoption and
// by restore; splitting handles every later pane.
func (st *Store) AddRootPane(ws *Workspace) (*Pane, error) {
	if ws.Root != nil {
		return nil, fmt.Errorf("%w: workspace %q already has panes", ErrInvariant, ws.Name)
	}
	p := &Pane{ID: uuid.New(), State: Unbound, workspace: ws}
	ws.Root = layout.Leaf(p.ID)
	ws.panes[p.ID] = p
	ws.active = p.ID
	st.panes[p.ID] = p
	return p, nil
}

// SplitPane inserts a new unbound pane next to target. The tree edit is a
// pure transform; the graph only changes once the transform succeeded.
func (st *Store) SplitPane(target uuid.UUID, axis layout.Axis, ratio float64) (*Pane, error) {
	orig, err := st.Pane(target)
	if err != nil {
		return nil, err
	}
	ws := orig.workspace
	newTree, newID, err := layout.Split(ws.Root, target, axis, ratio)
	if err != nil {
		if errors.Is(err, layout.ErrBadRatio) {
			return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		return nil, fmt.Errorf("%w: pane %s", ErrNotFound, target)
	}
	p := &Pane{ID: newID, State: Unbound, workspace: ws}
	ws.Root = newTree
	ws.panes[newID] = p
	ws.active = newID
	st.panes[newID] = p
	return p, nil
}

// KillPane removes a pane with the full destroyed-cascade: the last pane
// destroys its workspace, the last workspace destroys its session unless
// the session is persistent. Killing the last pane of a persistent
// session's only workspace is refused; kill-session is the explicit way
// out of that state.
func (st *Store) KillPane(id uuid.UUID) (destroyedSession string, err error) {
	return st.removePane(id, false)
}

// DestroyPane is the reconciler's removal path for panes whose window is
// already gone. A pane never outlives its bound window, so the persistent
// guard does not apply; a persistent session survives with zero
// workspaces instead.
func (st *Store) DestroyPane(id uuid.UUID) (destroyedSession string, err error) {
	return st.removePane(id, true)
}

func (st *Store) removePane(id uuid.UUID, force bool) (destroyedSession string, err error) {
	p, err := st.Pane(id)
	if err != nil {
		return "", err
	}
	ws := p.workspace
	s := ws.session

	lastPane := len(ws.panes) == 1
	lastWorkspace := len(s.workspaces) == 1
	if lastPane && lastWorkspace && s.Persistent && !force {
		return "", fmt.Errorf("%w: pane %s", ErrLastPane, id)
	}

	newTree, treeErr := layout.Remove(ws.Root, id)
	if treeErr != nil {
		return "", fmt.Errorf("%w: pane %s not in tree", ErrInvariant, id)
	}
	ws.Root = newTree
	st.releaseHandle(p)
	delete(ws.panes, id)
	delete(st.panes, id)
	if ws.active == id {
		ws.active = uuid.Nil
		if leaves := layout.Leaves(ws.Root); len(leaves) > 0 {
			ws.active = leaves[len(leaves)-1]
		}
	}

	if len(ws.panes) > 0 {
		return "", nil
	}

	// Empty tree signals workspace destruction.
	for i, candidate := range s.workspaces {
		if candidate == ws {
			s.workspaces = append(s.workspaces[:i], s.workspaces[i+1:]...)
			break
		}
	}
	for pin, target := range st.pins {
		if target.Session == s.Name && target.Workspace == ws.Name {
			delete(st.pins, pin)
		}
	}
	if s.active == ws {
		s.active = nil
		if len(s.workspaces) > 0 {
			s.active = s.workspaces[0]
		}
	}
	if len(s.workspaces) > 0 {
		return "", nil
	}
	if s.Persistent {
		// Persistent sessions outlive their last workspace; a later
		// new-window starts them over.
		s.active = nil
		return "", nil
	}
	if killErr := st.KillSession(s.Name); killErr != nil {
		return "", killErr
	}
	return s.Name, nil
}

// SwitchActiveWorkspace changes the session's active workspace.
func (st *Store) SwitchActiveWorkspace(session, workspace string) (*Workspace, error) {
	ws, err := st.Workspace(session, workspace)
	if err != nil {
		return nil, err
	}
	ws.session.active = ws
	return ws, nil
}

// AttachClient attaches a client to a session, detaching it from any
// previous session first: a client is attached to at most one session.
func (st *Store) AttachClient(client uuid.UUID, session string) error {
	s, err := st.Session(session)
	if err != nil {
		return err
	}
	if prev, ok := st.clients[client]; ok && prev != session {
		if prevSession, exists := st.sessions[prev]; exists {
			delete(prevSession.clients, client)
		}
	}
	st.clients[client] = session
	s.clients[client] = struct{}{}
	return nil
}

// DetachClient detaches a client. The session stays alive no matter how
// many clients remain.
func (st *Store) DetachClient(client uuid.UUID) error {
	session, ok := st.clients[client]
	if !ok {
		return fmt.Errorf("%w: client %s", ErrNotFound, client)
	}
	delete(st.clients, client)
	if s, exists := st.sessions[session]; exists {
		delete(s.clients, client)
	}
	return nil
}

// ClientSession reports which session a client is attached to.
func (st *Store) ClientSession(client uuid.UUID) (string, bool) {
	s, ok := st.clients[client]
	return s, ok
}

// Bind associates a pane with a live window handle. The window identity
// mapping stays injective: binding a handle that is already bound to a
// different pane is an invariant violation.
func (st *Store) Bind(id uuid.UUID, h wm.Handle, attrs wm.Attrs) error {
	p, err := st.Pane(id)
	if err != nil {
		return err
	}
	if existing, ok := st.byHandle[h]; ok && existing != id {
		return fmt.Errorf("%w: handle %s already bound to pane %s", ErrInvariant, h, existing)
	}
	if p.Handle != "" && p.Handle != h {
		delete(st.byHandle, p.Handle)
	}
	p.Handle = h
	p.State = Bound
	p.Class = attrs.Class
	p.Title = attrs.Title
	st.byHandle[h] = id
	return nil
}

// Orphan marks every bound pane as Orphaned; called when the gateway
// event stream drops.
func (st *Store) Orphan() int {
	n := 0
	for _, p := range st.panes {
		if p.State == Bound {
			p.State = Orphaned
			n++
		}
	}
	return n
}

// OrphanedPanes returns all panes currently in the Orphaned state.
func (st *Store) OrphanedPanes() []*Pane {
	var out []*Pane
	for _, p := range st.panes {
		if p.State == Orphaned {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// UnboundPanes returns all panes awaiting a window, sorted for
// deterministic matching.
func (st *Store) UnboundPanes() []*Pane {
	var out []*Pane
	for _, p := range st.panes {
		if p.State == Unbound {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (st *Store) releaseHandle(p *Pane) {
	if p.Handle != "" {
		delete(st.byHandle, p.Handle)
		p.Handle = ""
	}
}

// SetPin registers or replaces a pin after validating its target.
func (st *Store) SetPin(name, session, workspace string) error {
	if name == "" {
		return fmt.Errorf("%w: empty pin name", ErrInvariant)
	}
	if _, err := st.Workspace(session, workspace); err != nil {
		return err
	}
	st.pins[name] = Pin{Name: name, Session: session, Workspace: workspace}
	return nil
}

// PinTarget resolves a pin to its workspace.
func (st *Store) PinTarget(name string) (*Workspace, error) {
	pin, ok := st.pins[name]
	if !ok {
		return nil, fmt.Errorf("%w: pin %q", ErrNotFound, name)
	}
	return st.Workspace(pin.Session, pin.Workspace)
}

// SessionInfo is one row of list-sessions output.
type SessionInfo struct {
	Name            string
	Workspaces      int
	Panes           int
	AttachedClients int
	ActiveWorkspace string
	CreatedAt       time.Time
}

// Summaries returns list-sessions rows in creation order.
func (st *Store) Summaries() []SessionInfo {
	out := make([]SessionInfo, 0, len(st.sessionOrder))
	for _, s := range st.Sessions() {
		info := SessionInfo{
			Name:            s.Name,
			Workspaces:      len(s.workspaces),
			AttachedClients: len(s.clients),
			CreatedAt:       s.CreatedAt,
		}
		for _, ws := range s.workspaces {
			info.Panes += len(ws.panes)
		}
		if s.active != nil {
			info.ActiveWorkspace = s.active.Name
		}
		out = append(out, info)
	}
	return out
}

// Pins returns all pins sorted by name.
func (st *Store) Pins() []Pin {
	out := make([]Pin, 0, len(st.pins))
	for _, pin := range st.pins {
		out = append(out, pin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
