// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: wm/client.go
// Summary: Gateway implementation over the window manager's IPC socket.
// Usage: Speaks newline-delimited JSON requests and a subscribed event
// feed; the exact schema belongs to the window manager, this client only
// translates it into Gateway calls and Events.

package wm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/framegrace/winmux/layout"
)

const dialTimeout = 5 * time.Second

// ipcRequest is one line sent to the window manager control socket.
type ipcRequest struct {
	Op       string       `json:"op"`
	Handle   Handle       `json:"handle,omitempty"`
	Geometry *layout.Rect `json:"geometry,omitempty"`
}

// ipcReply is one line received back. Event lines reuse the same shape
// with Event set; the subscription socket only ever carries event lines.
type ipcReply struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Windows []Window     `json:"windows,omitempty"`
	Event   string       `json:"event,omitempty"`
	Handle  Handle       `json:"handle,omitempty"`
	Attrs   *Attrs       `json:"attrs,omitempty"`
	Geom    *layout.Rect `json:"geometry,omitempty"`
}

// Client is the live Gateway implementation. Commands share one
// request/response connection; each Subscribe opens its own connection so
// the event feed cannot stall command traffic.
type Client struct {
	socketPath string
	logger     *zap.Logger

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
}

// NewClient returns a gateway client for the manager socket at path. No
// connection is made until the first call.
func NewClient(socketPath string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{socketPath: socketPath, logger: logger}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, &Error{Op: "dial", Err: err}
	}
	return conn, nil
}

// roundTrip sends one request on the shared command connection and reads
// one reply, dialing lazily and dropping the connection on any error so
// the next call starts clean.
func (c *Client) roundTrip(ctx context.Context, req ipcRequest) (ipcReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply ipcReply
	if c.conn == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return reply, err
		}
		c.conn = conn
		c.rd = bufio.NewReader(conn)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	enc, err := json.Marshal(req)
	if err != nil {
		return reply, &Error{Op: req.Op, Err: err}
	}
	if _, err := c.conn.Write(append(enc, '\n')); err != nil {
		c.drop()
		return reply, &Error{Op: req.Op, Err: err}
	}

	line, err := c.rd.ReadBytes('\n')
	if err != nil {
		c.drop()
		return reply, &Error{Op: req.Op, Err: err}
	}
	if err := json.Unmarshal(line, &reply); err != nil {
		c.drop()
		return reply, &Error{Op: req.Op, Err: err}
	}
	if !reply.OK {
		return reply, &Error{Op: req.Op, Err: fmt.Errorf("manager rejected request: %s", reply.Error)}
	}
	return reply, nil
}

func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.rd = nil
	}
}

// Subscribe opens a dedicated connection and streams events until the
// connection drops, then closes the returned channel.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	enc, err := json.Marshal(ipcRequest{Op: "subscribe"})
	if err != nil {
		conn.Close()
		return nil, &Error{Op: "subscribe", Err: err}
	}
	if _, err := conn.Write(append(enc, '\n')); err != nil {
		conn.Close()
		return nil, &Error{Op: "subscribe", Err: err}
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()
		defer close(done)

		rd := bufio.NewReader(conn)
		for {
			line, err := rd.ReadBytes('\n')
			if err != nil {
				c.logger.Warn("event stream closed", zap.Error(err))
				return
			}
			var msg ipcReply
			if err := json.Unmarshal(line, &msg); err != nil {
				c.logger.Warn("ignoring malformed event line", zap.Error(err))
				continue
			}
			ev, ok := decodeEvent(msg)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func decodeEvent(msg ipcReply) (Event, bool) {
	ev := Event{Handle: msg.Handle}
	switch msg.Event {
	case "created":
		ev.Kind = EventCreated
		if msg.Attrs != nil {
			ev.Attrs = *msg.Attrs
		}
	case "destroyed":
		ev.Kind = EventDestroyed
	case "moved":
		ev.Kind = EventMoved
		if msg.Geom != nil {
			ev.Geometry = *msg.Geom
		}
	case "focus-changed":
		ev.Kind = EventFocusChanged
	default:
		return ev, false
	}
	return ev, ev.Handle != ""
}

// List queries the full live window set.
func (c *Client) List(ctx context.Context) ([]Window, error) {
	reply, err := c.roundTrip(ctx, ipcRequest{Op: "list"})
	if err != nil {
		return nil, err
	}
	return reply.Windows, nil
}

// Apply moves and resizes one window.
func (c *Client) Apply(ctx context.Context, h Handle, geom layout.Rect) error {
	_, err := c.roundTrip(ctx, ipcRequest{Op: "apply", Handle: h, Geometry: &geom})
	return err
}

// Focus gives input focus to one window.
func (c *Client) Focus(ctx context.Context, h Handle) error {
	_, err := c.roundTrip(ctx, ipcRequest{Op: "focus", Handle: h})
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}
