package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/layout"
)

// Verb is the tmux-style command name carried in a MsgCommand frame.
type Verb string

const (
	CmdNewSession   Verb = "new-session"
	CmdKillSession  Verb = "kill-session"
	CmdNewWindow    Verb = "new-window"
	CmdSplitWindow  Verb = "split-window"
	CmdKillPane     Verb = "kill-pane"
	CmdSelectWindow Verb = "select-window"
	CmdAttach       Verb = "attach-session"
	CmdDetach       Verb = "detach-client"
	CmdListSessions Verb = "list-sessions"
	CmdSetPin       Verb = "set-pin"
	CmdFocusPin     Verb = "focus-pin"
	CmdListPins     Verb = "list-pins"
)

// ErrorCode is the typed failure taxonomy surfaced to clients.
type ErrorCode string

const (
	CodeOK                 ErrorCode = ""
	CodeAlreadyExists      ErrorCode = "AlreadyExists"
	CodeNotFound           ErrorCode = "NotFound"
	CodeInvariantViolation ErrorCode = "InvariantViolation"
	CodeLastPaneConflict   ErrorCode = "LastPaneConflict"
	CodeTimeout            ErrorCode = "Timeout"
	CodeGatewayUnavailable ErrorCode = "GatewayUnavailable"
	CodeBadRequest         ErrorCode = "BadRequest"
	CodeInternal           ErrorCode = "Internal"
)

// Command is the payload of a MsgCommand frame. Unused fields stay at
// their zero value; the server validates per verb.
type Command struct {
	Verb      Verb      `json:"verb"`
	Session   string    `json:"session,omitempty"`
	Workspace string    `json:"workspace,omitempty"`
	Pane      uuid.UUID `json:"pane,omitempty"`
	Axis      string    `json:"axis,omitempty"`
	Ratio     float64   `json:"ratio,omitempty"`
	Spawn     []string  `json:"spawn,omitempty"`
	Pin       string    `json:"pin,omitempty"`
}

// Response is the payload of a MsgResponse frame; exactly one response is
// sent per command, carrying either a result or a typed failure.
type Response struct {
	OK        bool             `json:"ok"`
	Code      ErrorCode        `json:"code,omitempty"`
	Error     string           `json:"error,omitempty"`
	Session   string           `json:"session,omitempty"`
	Workspace string           `json:"workspace,omitempty"`
	Pane      uuid.UUID        `json:"pane,omitempty"`
	Sessions  []SessionSummary `json:"sessions,omitempty"`
	Pins      []Pin            `json:"pins,omitempty"`
}

// SessionSummary is one row of list-sessions output.
type SessionSummary struct {
	Name            string    `json:"name"`
	Workspaces      int       `json:"workspaces"`
	Panes           int       `json:"panes"`
	AttachedClients int       `json:"attached_clients"`
	ActiveWorkspace string    `json:"active_workspace"`
	CreatedAt       time.Time `json:"created_at"`
}

// Pin maps a short name to a session workspace, the descendant of the
// original keyboard pin table.
type Pin struct {
	Name      string `json:"name"`
	Session   string `json:"session"`
	Workspace string `json:"workspace"`
}

// NotificationKind discriminates pushed notifications.
type NotificationKind string

const (
	NotifyLayoutChanged    NotificationKind = "layout-changed"
	NotifySessionDestroyed NotificationKind = "session-destroyed"
	NotifyPaneBound        NotificationKind = "pane-bound"
	NotifyFocusChanged     NotificationKind = "focus-changed"
	NotifyFullState        NotificationKind = "full-state"
)

// PaneState describes one pane inside a state notification.
type PaneState struct {
	ID       uuid.UUID   `json:"id"`
	Handle   string      `json:"handle,omitempty"`
	Class    string      `json:"class,omitempty"`
	Title    string      `json:"title,omitempty"`
	Geometry layout.Rect `json:"geometry"`
	State    string      `json:"state"`
}

// WorkspaceState describes one workspace inside a full-state notification.
type WorkspaceState struct {
	Name   string      `json:"name"`
	Active bool        `json:"active"`
	Panes  []PaneState `json:"panes"`
}

// SessionState describes one session inside a full-state notification.
type SessionState struct {
	Name       string           `json:"name"`
	Workspaces []WorkspaceState `json:"workspaces"`
}

// Notification is the payload of a MsgNotification frame.
type Notification struct {
	Kind       NotificationKind       `json:"kind"`
	Session    string                 `json:"session,omitempty"`
	Workspace  string                 `json:"workspace,omitempty"`
	Geometries map[string]layout.Rect `json:"geometries,omitempty"`
	Pane       uuid.UUID              `json:"pane,omitempty"`
	Handle     string                 `json:"handle,omitempty"`
	Class      string                 `json:"class,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Sessions   []SessionState         `json:"sessions,omitempty"`
}

// Hello opens the handshake; the server answers with Welcome.
type Hello struct {
	ClientName string    `json:"client_name"`
	ClientID   uuid.UUID `json:"client_id,omitempty"`
}

// Welcome confirms the handshake and assigns the client identity used by
// attach-session and detach-client.
type Welcome struct {
	ClientID uuid.UUID `json:"client_id"`
	Server   string    `json:"server"`
}

func EncodeCommand(c Command) ([]byte, error)           { return json.Marshal(c) }
func EncodeResponse(r Response) ([]byte, error)         { return json.Marshal(r) }
func EncodeNotification(n Notification) ([]byte, error) { return json.Marshal(n) }
func EncodeHello(h Hello) ([]byte, error)               { return json.Marshal(h) }
func EncodeWelcome(w Welcome) ([]byte, error)           { return json.Marshal(w) }

func DecodeCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, fmt.Errorf("protocol: decode command: %w", err)
	}
	return c, nil
}

func DecodeResponse(payload []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("protocol: decode response: %w", err)
	}
	return r, nil
}

func DecodeNotification(payload []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return n, fmt.Errorf("protocol: decode notification: %w", err)
	}
	return n, nil
}

func DecodeHello(payload []byte) (Hello, error) {
	var h Hello
	if err := json.Unmarshal(payload, &h); err != nil {
		return h, fmt.Errorf("protocol: decode hello: %w", err)
	}
	return h, nil
}

func DecodeWelcome(payload []byte) (Welcome, error) {
	var w Welcome
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("protocol: decode welcome: %w", err)
	}
	return w, nil
}
