package server

import (
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/framegrace/winmux/protocol"
)

var errUnexpectedMessage = errors.New("server: unexpected message type")

// handleHandshake performs the initial client/server negotiation and
// returns the client identity. A client presenting its previous ID keeps
// it, so a reconnecting CLI stays attached to its session.
func handleHandshake(rw io.ReadWriter) (uuid.UUID, error) {
	hdr, payload, err := protocol.ReadMessage(rw)
	if err != nil {
		return uuid.Nil, err
	}
	if hdr.Type != protocol.MsgHello {
		return uuid.Nil, errUnexpectedMessage
	}
	hello, err := protocol.DecodeHello(payload)
	if err != nil {
		return uuid.Nil, err
	}

	id := hello.ClientID
	if id == uuid.Nil {
		id = uuid.New()
	}

	welcomePayload, err := protocol.EncodeWelcome(protocol.Welcome{ClientID: id, Server: "winmuxd"})
	if err != nil {
		return uuid.Nil, err
	}
	welcomeHeader := protocol.Header{
		Version: protocol.Version,
		Type:    protocol.MsgWelcome,
		Flags:   protocol.FlagChecksum,
	}
	if err := protocol.WriteMessage(rw, welcomeHeader, welcomePayload); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
