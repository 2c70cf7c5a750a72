package client

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/protocol"
)

// Client is a control-socket client used by the winmux CLI.
type Client struct {
	conn net.Conn
	id   uuid.UUID
	seq  uint64
}

// Dial connects to the daemon and performs the handshake. A non-nil
// clientID resumes an existing client identity, keeping session
// attachments across CLI invocations.
func Dial(socketPath string, clientID uuid.UUID) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", socketPath, err)
	}

	helloPayload, err := protocol.EncodeHello(protocol.Hello{ClientName: "winmux", ClientID: clientID})
	if err != nil {
		conn.Close()
		return nil, err
	}
	hdr := protocol.Header{Version: protocol.Version, Type: protocol.MsgHello, Flags: protocol.FlagChecksum}
	if err := protocol.WriteMessage(conn, hdr, helloPayload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: hello: %w", err)
	}

	rh, payload, err := protocol.ReadMessage(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: welcome: %w", err)
	}
	if rh.Type != protocol.MsgWelcome {
		conn.Close()
		return nil, fmt.Errorf("client: unexpected message type %d", rh.Type)
	}
	welcome, err := protocol.DecodeWelcome(payload)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{conn: conn, id: welcome.ClientID}, nil
}

// ID returns the identity the server assigned during the handshake.
func (c *Client) ID() uuid.UUID {
	return c.id
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one command and blocks for its response. Notifications that
// arrive first are discarded; use Next after an attach to stream them.
func (c *Client) Do(cmd protocol.Command) (protocol.Response, error) {
	c.seq++
	payload, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return protocol.Response{}, err
	}
	hdr := protocol.Header{
		Version:  protocol.Version,
		Type:     protocol.MsgCommand,
		Flags:    protocol.FlagChecksum,
		Sequence: c.seq,
	}
	if err := protocol.WriteMessage(c.conn, hdr, payload); err != nil {
		return protocol.Response{}, fmt.Errorf("client: send %s: %w", cmd.Verb, err)
	}

	for {
		rh, body, err := protocol.ReadMessage(c.conn)
		if err != nil {
			return protocol.Response{}, fmt.Errorf("client: read: %w", err)
		}
		if rh.Type != protocol.MsgResponse || rh.Sequence != c.seq {
			continue
		}
		return protocol.DecodeResponse(body)
	}
}

// Run sends a command and converts a server-side failure into an error.
func (c *Client) Run(cmd protocol.Command) (protocol.Response, error) {
	resp, err := c.Do(cmd)
	if err != nil {
		return resp, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("%s: %s (%s)", cmd.Verb, resp.Error, resp.Code)
	}
	return resp, nil
}

// Next blocks for the next pushed notification.
func (c *Client) Next() (protocol.Notification, error) {
	for {
		rh, body, err := protocol.ReadMessage(c.conn)
		if err != nil {
			return protocol.Notification{}, fmt.Errorf("client: read: %w", err)
		}
		if rh.Type != protocol.MsgNotification {
			continue
		}
		return protocol.DecodeNotification(body)
	}
}
