package dispatcher

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arionyau/obelisk/internal/identity"
)

type fakeSocket struct {
	inbox [][][]byte
	sent  [][][]byte
}

func (f *fakeSocket) Recv() ([][]byte, error) {
	if len(f.inbox) == 0 {
		return nil, io.EOF
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, nil
}

func (f *fakeSocket) Send(frames [][]byte) error {
	cp := make([][]byte, len(frames))
	copy(cp, frames)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSocket) Close() error { return nil }

func newTestDispatcher(sock *fakeSocket) *Dispatcher {
	return &Dispatcher{
		socket:   sock,
		handlers: make(map[string]Handler),
		identity: identity.New(),
		service:  "test",
		log:      zerolog.Nop(),
	}
}

func requestFrames(workerEcho, client []byte, command string, payload ...[]byte) [][]byte {
	frames := [][]byte{workerEcho, client, []byte(command)}
	for len(payload) < 3 {
		payload = append(payload, []byte{})
	}
	frames = append(frames, payload[:3]...)
	return frames
}

func TestDispatchesToRegisteredHandler(t *testing.T) {
	sock := &fakeSocket{}
	d := newTestDispatcher(sock)

	client := identity.New()
	var gotCommand string
	var gotClient []byte
	d.Register("echo.ping", func(req Request, send Sender) {
		gotCommand = req.Command
		gotClient = req.ClientID
		send([][]byte{[]byte("pong")})
	})

	sock.inbox = append(sock.inbox, requestFrames(d.identity.Bytes(), client.Bytes(), "echo.ping"))
	if err := d.receiveOne(); err != nil {
		t.Fatalf("receiveOne: %v", err)
	}
	if gotCommand != "echo.ping" {
		t.Fatalf("handler saw command %q, want echo.ping", gotCommand)
	}
	if !bytes.Equal(gotClient, client.Bytes()) {
		t.Fatalf("handler saw wrong client identity")
	}
	if len(sock.sent) != 1 {
		t.Fatalf("expected one reply sent, got %d", len(sock.sent))
	}
	reply := sock.sent[0]
	if !bytes.Equal(reply[0], d.identity.Bytes()) || !bytes.Equal(reply[1], client.Bytes()) {
		t.Fatalf("reply routing frames wrong: %x / %x", reply[0], reply[1])
	}
	if string(reply[2]) != "pong" {
		t.Fatalf("reply payload = %q, want pong", reply[2])
	}
}

func TestUnknownCommandRepliesNotFound(t *testing.T) {
	sock := &fakeSocket{}
	d := newTestDispatcher(sock)

	client := identity.New()
	sock.inbox = append(sock.inbox, requestFrames(d.identity.Bytes(), client.Bytes(), "blockchain.fetch_history"))
	if err := d.receiveOne(); err != nil {
		t.Fatalf("receiveOne: %v", err)
	}
	if len(sock.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sock.sent))
	}
	if string(sock.sent[0][2]) != ErrNotFound {
		t.Fatalf("reply code = %q, want %q", sock.sent[0][2], ErrNotFound)
	}
}

func TestMalformedRequestRepliesBadStream(t *testing.T) {
	sock := &fakeSocket{}
	d := newTestDispatcher(sock)

	client := identity.New()
	// Only 3 frames: malformed, fails the fixed six-frame shape.
	sock.inbox = append(sock.inbox, [][]byte{d.identity.Bytes(), client.Bytes(), []byte("x")})
	if err := d.receiveOne(); err != nil {
		t.Fatalf("receiveOne: %v", err)
	}
	if len(sock.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sock.sent))
	}
	if string(sock.sent[0][2]) != ErrBadStream {
		t.Fatalf("reply code = %q, want %q", sock.sent[0][2], ErrBadStream)
	}
}

func TestRegisterLastWriteWins(t *testing.T) {
	sock := &fakeSocket{}
	d := newTestDispatcher(sock)

	calls := 0
	d.Register("echo.ping", func(Request, Sender) { calls = 1 })
	d.Register("echo.ping", func(Request, Sender) { calls = 2 })

	client := identity.New()
	sock.inbox = append(sock.inbox, requestFrames(d.identity.Bytes(), client.Bytes(), "echo.ping"))
	d.receiveOne()
	if calls != 2 {
		t.Fatalf("expected the second registration to win, calls = %d", calls)
	}
}

func TestHandlerMaySendMultipleReplies(t *testing.T) {
	sock := &fakeSocket{}
	d := newTestDispatcher(sock)

	d.Register("echo.stream", func(req Request, send Sender) {
		send([][]byte{[]byte("first")})
		send([][]byte{[]byte("second")})
	})

	client := identity.New()
	sock.inbox = append(sock.inbox, requestFrames(d.identity.Bytes(), client.Bytes(), "echo.stream"))
	d.receiveOne()
	if len(sock.sent) != 2 {
		t.Fatalf("expected two sends from one handler invocation, got %d", len(sock.sent))
	}
}
