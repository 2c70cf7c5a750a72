package server

import (
	"github.com/framegrace/winmux/mux"
	"github.com/framegrace/winmux/protocol"
)

// stateFromSnapshot flattens an engine snapshot into the wire form sent
// in full-state notifications. Pane handles are deliberately absent from
// snapshots, so the wire state carries descriptors and geometry only.
func stateFromSnapshot(snap mux.Snapshot) []protocol.SessionState {
	out := make([]protocol.SessionState, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		ss := protocol.SessionState{Name: s.Name}
		for _, ws := range s.Workspaces {
			wss := protocol.WorkspaceState{Name: ws.Name, Active: ws.Active}
			for _, p := range ws.Panes {
				wss.Panes = append(wss.Panes, protocol.PaneState{
					ID:       p.ID,
					Class:    p.Class,
					Title:    p.Title,
					Geometry: p.Geometry,
				})
			}
			ss.Workspaces = append(ss.Workspaces, wss)
		}
		out = append(out, ss)
	}
	return out
}

func summariesToWire(infos []mux.SessionInfo) []protocol.SessionSummary {
	out := make([]protocol.SessionSummary, 0, len(infos))
	for _, s := range infos {
		out = append(out, protocol.SessionSummary{
			Name:            s.Name,
			Workspaces:      s.Workspaces,
			Panes:           s.Panes,
			AttachedClients: s.AttachedClients,
			ActiveWorkspace: s.ActiveWorkspace,
			CreatedAt:       s.CreatedAt,
		})
	}
	return out
}

func pinsToWire(pins []mux.Pin) []protocol.Pin {
	out := make([]protocol.Pin, 0, len(pins))
	for _, p := range pins {
		out = append(out, protocol.Pin{Name: p.Name, Session: p.Session, Workspace: p.Workspace})
	}
	return out
}
