package envelope

import (
	"bytes"
	"testing"

	"github.com/arionyau/obelisk/internal/identity"
)

func frame(id identity.Raw) []byte { return id.Bytes() }

func TestParseFrontendValid(t *testing.T) {
	client := identity.New()
	worker := identity.New()

	frames := [][]byte{frame(client), frame(worker), []byte("a"), []byte("b"), []byte("c"), []byte("d")}
	req, err := ParseFrontend(frames)
	if err != nil {
		t.Fatalf("ParseFrontend: %v", err)
	}
	if !bytes.Equal(req.First, frame(client)) || !bytes.Equal(req.Second, frame(worker)) {
		t.Fatalf("identity frames not preserved")
	}
}

func TestParseFrontendEmptyWorker(t *testing.T) {
	client := identity.New()
	frames := [][]byte{frame(client), {}, []byte("a"), []byte("b"), []byte("c"), []byte("d")}
	req, err := ParseFrontend(frames)
	if err != nil {
		t.Fatalf("ParseFrontend: %v", err)
	}
	if len(req.Second) != 0 {
		t.Fatalf("expected empty worker frame, got %d bytes", len(req.Second))
	}
}

func TestParseFrontendRejectsWrongFrameCount(t *testing.T) {
	frames := [][]byte{{}, {}, {}, {}, {}}
	if _, err := ParseFrontend(frames); err == nil {
		t.Fatal("expected error for 5-frame message")
	}
}

func TestParseFrontendRejectsMalformedIdentities(t *testing.T) {
	bad := []byte("short")
	good := identity.New().Bytes()
	_, err := ParseFrontend([][]byte{bad, good, {}, {}, {}, {}})
	if err == nil {
		t.Fatal("expected error for malformed client identity")
	}
	_, err = ParseFrontend([][]byte{good, bad, {}, {}, {}, {}})
	if err == nil {
		t.Fatal("expected error for malformed worker identity")
	}
}

func TestRoundTripPayloadIdentity(t *testing.T) {
	client := identity.New()
	worker := identity.New()
	payload := [][]byte{[]byte("p1"), []byte("p2"), []byte("p3"), []byte("p4")}

	frontendFrames := append([][]byte{frame(client), frame(worker)}, payload...)
	req, err := ParseFrontend(frontendFrames)
	if err != nil {
		t.Fatalf("ParseFrontend: %v", err)
	}

	backend := BuildBackend(req.Second, req)
	if !bytes.Equal(backend[0], frame(worker)) || !bytes.Equal(backend[1], frame(client)) {
		t.Fatalf("BuildBackend identity order wrong")
	}
	for i, p := range payload {
		if !bytes.Equal(backend[2+i], p) {
			t.Fatalf("payload frame %d mutated: got %q want %q", i, backend[2+i], p)
		}
	}

	msg, err := ParseBackend(backend)
	if err != nil {
		t.Fatalf("ParseBackend: %v", err)
	}
	if msg.IsControl {
		t.Fatal("expected a response message, got control")
	}

	frontend := BuildFrontend(msg.Response)
	if !bytes.Equal(frontend[0], frame(client)) || !bytes.Equal(frontend[1], frame(worker)) {
		t.Fatalf("BuildFrontend identity order wrong")
	}
	for i, p := range payload {
		if !bytes.Equal(frontend[2+i], p) {
			t.Fatalf("payload frame %d mutated on return trip: got %q want %q", i, frontend[2+i], p)
		}
	}
}

func TestParseBackendControl(t *testing.T) {
	worker := identity.New()
	msg, err := ParseBackend([][]byte{frame(worker), []byte(CmdReady)})
	if err != nil {
		t.Fatalf("ParseBackend: %v", err)
	}
	if !msg.IsControl || msg.Command != CmdReady {
		t.Fatalf("expected control message with command READY, got %+v", msg)
	}
}

func TestParseBackendRejectsWrongFrameCount(t *testing.T) {
	if _, err := ParseBackend([][]byte{{}, {}, {}}); err == nil {
		t.Fatal("expected error for 3-frame backend message")
	}
}

func TestBuildHeartbeat(t *testing.T) {
	w := identity.New()
	frames := BuildHeartbeat(frame(w))
	if len(frames) != 2 || string(frames[1]) != CmdHeartbeat {
		t.Fatalf("unexpected heartbeat frames: %+v", frames)
	}
}
