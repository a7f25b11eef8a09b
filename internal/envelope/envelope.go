// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package envelope defines the balancer's wire framing: fixed-shape
// multi-part messages carrying opaque application payloads alongside
// routing identities, and the two-frame worker control messages.
package envelope

import (
	"fmt"

	"github.com/arionyau/obelisk/internal/identity"
)

// Worker control commands, sent as the second frame of a two-frame
// backend-facing message.
const (
	CmdReady     = "READY"
	CmdHeartbeat = "HEARTBEAT"
)

// Request is the six-frame envelope carried in both directions: frontend
// form is [client, worker-or-empty, f2, f3, f4, f5]; backend form is
// [worker, client, f2, f3, f4, f5].
type Request struct {
	First   []byte // client id (frontend) or worker id (backend)
	Second  []byte // worker id-or-empty (frontend) or client id (backend)
	Payload [4][]byte
}

// FrameCount is the fixed number of frames in a Request envelope.
const FrameCount = 6

// ParseFrontend validates a frontend-facing message: exactly 6 frames,
// frame 0 exactly 17 bytes, frame 1 either 17 bytes or empty.
func ParseFrontend(frames [][]byte) (Request, error) {
	var req Request
	if len(frames) != FrameCount {
		return req, fmt.Errorf("envelope: frontend message has %d frames, want %d", len(frames), FrameCount)
	}
	if len(frames[0]) != identity.Size {
		return req, fmt.Errorf("envelope: client identity malformed (%d bytes)", len(frames[0]))
	}
	if len(frames[1]) != identity.Size && len(frames[1]) != 0 {
		return req, fmt.Errorf("envelope: worker identity malformed (%d bytes)", len(frames[1]))
	}
	req.First = frames[0]
	req.Second = frames[1]
	copy(req.Payload[:], frames[2:6])
	return req, nil
}

// BuildBackend rewrites a parsed frontend request into the backend-facing
// frame order: [workerID, client, f2, f3, f4, f5].
func BuildBackend(workerID []byte, req Request) [][]byte {
	out := make([][]byte, 0, FrameCount)
	out = append(out, workerID, req.First)
	out = append(out, req.Payload[:]...)
	return out
}

// BackendMessage is either a two-frame control message or a six-frame
// worker response, as received on the backend socket.
type BackendMessage struct {
	WorkerFrame []byte
	IsControl   bool
	Command     string   // valid when IsControl
	Response    Request  // valid when !IsControl; First=workerID echo, Second=client
}

// ParseBackend validates a backend-facing message: exactly 2 frames
// (control) or 6 frames (response).
func ParseBackend(frames [][]byte) (BackendMessage, error) {
	var msg BackendMessage
	switch len(frames) {
	case 2:
		msg.WorkerFrame = frames[0]
		msg.IsControl = true
		msg.Command = string(frames[1])
		return msg, nil
	case FrameCount:
		if len(frames[0]) != identity.Size {
			return msg, fmt.Errorf("envelope: worker identity malformed (%d bytes)", len(frames[0]))
		}
		if len(frames[1]) != identity.Size {
			return msg, fmt.Errorf("envelope: client identity malformed (%d bytes)", len(frames[1]))
		}
		msg.WorkerFrame = frames[0]
		msg.IsControl = false
		msg.Response.First = frames[0]
		msg.Response.Second = frames[1]
		copy(msg.Response.Payload[:], frames[2:6])
		return msg, nil
	default:
		return msg, fmt.Errorf("envelope: backend message has %d frames, want 2 or %d", len(frames), FrameCount)
	}
}

// BuildFrontend rewrites a worker response into the frontend-facing frame
// order: [client, worker, f2, f3, f4, f5].
func BuildFrontend(resp Request) [][]byte {
	out := make([][]byte, 0, FrameCount)
	out = append(out, resp.Second, resp.First)
	out = append(out, resp.Payload[:]...)
	return out
}

// BuildHeartbeat constructs the two-frame heartbeat message sent from
// balancer to worker: [workerID, "HEARTBEAT"].
func BuildHeartbeat(workerID []byte) [][]byte {
	return [][]byte{workerID, []byte(CmdHeartbeat)}
}
