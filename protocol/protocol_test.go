package protocol

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestMessageRoundTrip(t *testing.T) {
	payload, err := EncodeCommand(Command{Verb: CmdSplitWindow, Pane: uuid.New(), Axis: "horizontal", Ratio: 0.5})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var buf bytes.Buffer
	hdr := Header{Version: Version, Type: MsgCommand, Flags: FlagChecksum, Sequence: 42}
	if err := WriteMessage(&buf, hdr, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, gotPayload, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Type != MsgCommand || got.Sequence != 42 {
		t.Fatalf("unexpected header %+v", got)
	}
	cmd, err := DecodeCommand(gotPayload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cmd.Verb != CmdSplitWindow || cmd.Axis != "horizontal" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, headerSize))
	if _, _, err := ReadMessage(buf); err != ErrInvalidMagic {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"verb":"list-sessions"}`)
	if err := WriteMessage(&buf, Header{Version: Version, Type: MsgCommand, Flags: FlagChecksum}, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF
	if _, _, err := ReadMessage(bytes.NewReader(raw)); err != ErrChecksumMismatch {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestReadRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Header{Version: Version + 1, Type: MsgHello}, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := ReadMessage(&buf); err != ErrUnsupportedVer {
		t.Fatalf("err = %v, want ErrUnsupportedVer", err)
	}
}
