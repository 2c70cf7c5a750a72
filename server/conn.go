package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/mux"
	"github.com/framegrace/winmux/protocol"
)

const commandTimeout = 30 * time.Second

// connection serves one control client: a read loop dispatching commands
// to the engine and a writer goroutine draining the notification queue.
// Responses and notifications share the socket under writeMu.
type connection struct {
	conn    net.Conn
	client  uuid.UUID
	engine  *mux.Engine
	queue   *queue
	logger  *zap.Logger
	writeMu sync.Mutex
	nextSeq uint64
}

func newConnection(conn net.Conn, client uuid.UUID, engine *mux.Engine, q *queue, logger *zap.Logger) *connection {
	return &connection{
		conn:   conn,
		client: client,
		engine: engine,
		queue:  q,
		logger: logger.With(zap.String("client", client.String())),
	}
}

func (c *connection) serve(ctx context.Context) error {
	_ = c.conn.SetDeadline(time.Time{})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.notifyLoop(ctx)

	for {
		header, payload, err := protocol.ReadMessage(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if header.Type != protocol.MsgCommand {
			c.logger.Warn("unexpected message type", zap.Uint8("type", uint8(header.Type)))
			continue
		}

		cmd, err := protocol.DecodeCommand(payload)
		var resp protocol.Response
		if err != nil {
			resp = protocol.Response{Code: protocol.CodeBadRequest, Error: err.Error()}
		} else {
			resp = c.dispatch(ctx, cmd)
		}
		resp.OK = resp.Code == protocol.CodeOK
		metricResponses.WithLabelValues(string(resp.Code)).Inc()

		out, err := protocol.EncodeResponse(resp)
		if err != nil {
			return err
		}
		respHeader := protocol.Header{
			Version:  protocol.Version,
			Type:     protocol.MsgResponse,
			Flags:    protocol.FlagChecksum,
			Sequence: header.Sequence, // responses echo the command sequence
		}
		if err := c.writeMessage(respHeader, out); err != nil {
			return err
		}
	}
}

// notifyLoop drains the client queue onto the socket. Wire sequences are
// assigned here, at send time, so the client sees a gap-free stream.
func (c *connection) notifyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.queue.Wake():
		}
		for _, p := range c.queue.Drain() {
			c.nextSeq++
			header := protocol.Header{
				Version:  protocol.Version,
				Type:     protocol.MsgNotification,
				Flags:    protocol.FlagChecksum,
				Sequence: c.nextSeq,
			}
			if err := c.writeMessage(header, p.Payload); err != nil {
				c.logger.Debug("notification write failed", zap.Error(err))
				_ = c.conn.Close() // unblocks the read loop
				return
			}
		}
	}
}

func (c *connection) dispatch(parent context.Context, cmd protocol.Command) protocol.Response {
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	switch cmd.Verb {
	case protocol.CmdNewSession:
		return responseFor(c.engine.NewSession(ctx, cmd.Session))

	case protocol.CmdKillSession:
		return responseFor(c.engine.KillSession(ctx, cmd.Session))

	case protocol.CmdNewWindow:
		name, err := c.engine.NewWindow(ctx, cmd.Session, cmd.Workspace)
		resp := responseFor(err)
		resp.Workspace = name
		return resp

	case protocol.CmdSplitWindow:
		axis := layout.Horizontal
		if cmd.Axis != "" {
			var err error
			axis, err = layout.ParseAxis(cmd.Axis)
			if err != nil {
				return protocol.Response{Code: protocol.CodeBadRequest, Error: err.Error()}
			}
		}
		ratio := cmd.Ratio
		if ratio == 0 {
			ratio = layout.DefaultRatio
		}
		var (
			pane uuid.UUID
			err  error
		)
		if cmd.Pane == uuid.Nil {
			pane, err = c.engine.OpenPane(ctx, cmd.Session, cmd.Workspace, cmd.Spawn)
		} else {
			pane, err = c.engine.SplitWindow(ctx, cmd.Pane, axis, ratio, cmd.Spawn)
		}
		resp := responseFor(err)
		resp.Pane = pane
		return resp

	case protocol.CmdKillPane:
		return responseFor(c.engine.KillPane(ctx, cmd.Pane))

	case protocol.CmdSelectWindow:
		return responseFor(c.engine.SelectWindow(ctx, cmd.Session, cmd.Workspace))

	case protocol.CmdAttach:
		return responseFor(c.engine.Attach(ctx, c.client, cmd.Session))

	case protocol.CmdDetach:
		return responseFor(c.engine.Detach(ctx, c.client))

	case protocol.CmdListSessions:
		infos, err := c.engine.ListSessions(ctx)
		resp := responseFor(err)
		resp.Sessions = summariesToWire(infos)
		return resp

	case protocol.CmdSetPin:
		return responseFor(c.engine.SetPin(ctx, cmd.Pin, cmd.Session, cmd.Workspace))

	case protocol.CmdFocusPin:
		return responseFor(c.engine.FocusPin(ctx, cmd.Pin))

	case protocol.CmdListPins:
		pins, err := c.engine.ListPins(ctx)
		resp := responseFor(err)
		resp.Pins = pinsToWire(pins)
		return resp

	default:
		return protocol.Response{Code: protocol.CodeBadRequest, Error: "unknown verb: " + string(cmd.Verb)}
	}
}

func responseFor(err error) protocol.Response {
	if err != nil {
		return protocol.Response{Code: errorCode(err), Error: err.Error()}
	}
	return protocol.Response{}
}

// errorCode maps engine failures onto the wire taxonomy.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case err == nil:
		return protocol.CodeOK
	case errors.Is(err, mux.ErrAlreadyExists):
		return protocol.CodeAlreadyExists
	case errors.Is(err, mux.ErrNotFound), errors.Is(err, layout.ErrPaneNotFound):
		return protocol.CodeNotFound
	case errors.Is(err, mux.ErrLastPane):
		return protocol.CodeLastPaneConflict
	case errors.Is(err, mux.ErrInvariant):
		return protocol.CodeInvariantViolation
	case errors.Is(err, mux.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return protocol.CodeTimeout
	case errors.Is(err, mux.ErrGatewayUnavailable):
		return protocol.CodeGatewayUnavailable
	case errors.Is(err, layout.ErrBadRatio):
		return protocol.CodeBadRequest
	default:
		return protocol.CodeInternal
	}
}

func (c *connection) writeMessage(header protocol.Header, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteMessage(c.conn, header, payload)
}
