// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: persist/store.go
// Summary: SQLite-backed snapshot persistence for the session graph.
// Usage: Save writes a full snapshot in one transaction; Load rebuilds
// the snapshot for descriptor matching at daemon start.

package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/mux"
)

const schemaVersion = 1

// Snapshots are descriptors only. Window handles are never written:
// they do not survive a window manager restart.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sessions (
    name TEXT PRIMARY KEY,
    persistent INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workspaces (
    session TEXT NOT NULL REFERENCES sessions(name) ON DELETE CASCADE,
    name TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 0,
    tree TEXT,                        -- layout tree as JSON
    position INTEGER NOT NULL,
    PRIMARY KEY (session, name)
);

CREATE TABLE IF NOT EXISTS panes (
    id TEXT PRIMARY KEY,              -- pane UUID
    session TEXT NOT NULL,
    workspace TEXT NOT NULL,
    class TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    x INTEGER NOT NULL, y INTEGER NOT NULL,
    w INTEGER NOT NULL, h INTEGER NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (session, workspace) REFERENCES workspaces(session, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pins (
    name TEXT PRIMARY KEY,
    session TEXT NOT NULL,
    workspace TEXT NOT NULL
);
`

// Store persists snapshots to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the snapshot database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("persist: create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: connect: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: record schema version: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot atomically. A crash mid-save leaves
// the previous snapshot intact.
func (s *Store) Save(snap mux.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"panes", "workspaces", "sessions", "pins"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("persist: clear %s: %w", table, err)
		}
	}

	for si, sess := range snap.Sessions {
		persistent := 0
		if sess.Persistent {
			persistent = 1
		}
		if _, err := tx.Exec(
			"INSERT INTO sessions (name, persistent, position) VALUES (?, ?, ?)",
			sess.Name, persistent, si,
		); err != nil {
			return fmt.Errorf("persist: save session %q: %w", sess.Name, err)
		}

		for wi, ws := range sess.Workspaces {
			var tree []byte
			if ws.Tree != nil {
				tree, err = json.Marshal(ws.Tree)
				if err != nil {
					return fmt.Errorf("persist: encode tree for %s/%s: %w", sess.Name, ws.Name, err)
				}
			}
			active := 0
			if ws.Active {
				active = 1
			}
			if _, err := tx.Exec(
				"INSERT INTO workspaces (session, name, active, tree, position) VALUES (?, ?, ?, ?, ?)",
				sess.Name, ws.Name, active, nullableText(tree), wi,
			); err != nil {
				return fmt.Errorf("persist: save workspace %s/%s: %w", sess.Name, ws.Name, err)
			}

			for pi, p := range ws.Panes {
				if _, err := tx.Exec(
					"INSERT INTO panes (id, session, workspace, class, title, x, y, w, h, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
					p.ID.String(), sess.Name, ws.Name, p.Class, p.Title,
					p.Geometry.X, p.Geometry.Y, p.Geometry.W, p.Geometry.H, pi,
				); err != nil {
					return fmt.Errorf("persist: save pane %s: %w", p.ID, err)
				}
			}
		}
	}

	for _, pin := range snap.Pins {
		if _, err := tx.Exec(
			"INSERT INTO pins (name, session, workspace) VALUES (?, ?, ?)",
			pin.Name, pin.Session, pin.Workspace,
		); err != nil {
			return fmt.Errorf("persist: save pin %q: %w", pin.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit save: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty
// snapshot, not an error.
func (s *Store) Load() (mux.Snapshot, error) {
	var snap mux.Snapshot

	srows, err := s.db.Query("SELECT name, persistent FROM sessions ORDER BY position")
	if err != nil {
		return snap, fmt.Errorf("persist: load sessions: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var rec mux.SessionRecord
		var persistent int
		if err := srows.Scan(&rec.Name, &persistent); err != nil {
			return snap, fmt.Errorf("persist: scan session: %w", err)
		}
		rec.Persistent = persistent != 0
		snap.Sessions = append(snap.Sessions, rec)
	}
	if err := srows.Err(); err != nil {
		return snap, fmt.Errorf("persist: iterate sessions: %w", err)
	}

	for i := range snap.Sessions {
		if err := s.loadWorkspaces(&snap.Sessions[i]); err != nil {
			return snap, err
		}
	}

	prows, err := s.db.Query("SELECT name, session, workspace FROM pins ORDER BY name")
	if err != nil {
		return snap, fmt.Errorf("persist: load pins: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var pin mux.Pin
		if err := prows.Scan(&pin.Name, &pin.Session, &pin.Workspace); err != nil {
			return snap, fmt.Errorf("persist: scan pin: %w", err)
		}
		snap.Pins = append(snap.Pins, pin)
	}
	if err := prows.Err(); err != nil {
		return snap, fmt.Errorf("persist: iterate pins: %w", err)
	}

	return snap, nil
}

func (s *Store) loadWorkspaces(rec *mux.SessionRecord) error {
	wrows, err := s.db.Query(
		"SELECT name, active, tree FROM workspaces WHERE session = ? ORDER BY position",
		rec.Name,
	)
	if err != nil {
		return fmt.Errorf("persist: load workspaces for %q: %w", rec.Name, err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var ws mux.WorkspaceRecord
		var active int
		var tree sql.NullString
		if err := wrows.Scan(&ws.Name, &active, &tree); err != nil {
			return fmt.Errorf("persist: scan workspace: %w", err)
		}
		ws.Active = active != 0
		if tree.Valid && tree.String != "" {
			var node layout.Node
			if err := json.Unmarshal([]byte(tree.String), &node); err != nil {
				return fmt.Errorf("persist: decode tree for %s/%s: %w", rec.Name, ws.Name, err)
			}
			ws.Tree = &node
		}
		rec.Workspaces = append(rec.Workspaces, ws)
	}
	if err := wrows.Err(); err != nil {
		return fmt.Errorf("persist: iterate workspaces: %w", err)
	}

	for i := range rec.Workspaces {
		if err := s.loadPanes(rec.Name, &rec.Workspaces[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadPanes(session string, ws *mux.WorkspaceRecord) error {
	rows, err := s.db.Query(
		"SELECT id, class, title, x, y, w, h FROM panes WHERE session = ? AND workspace = ? ORDER BY position",
		session, ws.Name,
	)
	if err != nil {
		return fmt.Errorf("persist: load panes for %s/%s: %w", session, ws.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p mux.PaneRecord
		var id string
		if err := rows.Scan(&id, &p.Class, &p.Title, &p.Geometry.X, &p.Geometry.Y, &p.Geometry.W, &p.Geometry.H); err != nil {
			return fmt.Errorf("persist: scan pane: %w", err)
		}
		p.ID, err = uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("persist: bad pane id %q: %w", id, err)
		}
		ws.Panes = append(ws.Panes, p)
	}
	return rows.Err()
}

func nullableText(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
