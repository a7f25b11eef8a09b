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

// Package dispatcher runs inside a worker process: it owns a ROUTER socket
// connected to the balancer's backend endpoint, announces itself, heartbeats,
// and routes received requests by dotted command name to registered
// handlers.
package dispatcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arionyau/obelisk/internal/envelope"
	"github.com/arionyau/obelisk/internal/identity"
	"github.com/arionyau/obelisk/internal/transport"
)

// Error codes returned in a handler's reply payload when the dispatcher
// itself cannot route the request.
const (
	ErrBadStream = "bad_stream"
	ErrNotFound  = "not_found"
)

// Request is handed to a registered handler.
type Request struct {
	ClientID []byte // routing identity of the originating client
	Command  string // dotted class.method
	Payload  [][]byte
}

// Sender transmits one reply frame set back toward the client that issued
// the request. Handlers may call it zero, one, or many times.
type Sender func(payload [][]byte) error

// Handler processes one request, using sender to transmit replies.
type Handler func(req Request, send Sender)

// Dispatcher owns a backend-facing ROUTER socket and a fixed, single-
// threaded handler table. Not safe for concurrent use: run one per worker
// goroutine.
type Dispatcher struct {
	socket   transport.Socket
	poller   *transport.Poller
	handlers map[string]Handler
	identity identity.Raw
	service  string
	log      zerolog.Logger
}

// New connects to the balancer's backend endpoint. Readiness is announced
// when PollLoop starts.
func New(endpoint, service string, log zerolog.Logger) (*Dispatcher, error) {
	sock, err := transport.Connect(endpoint)
	if err != nil {
		return nil, err
	}
	id := identity.New()
	d := &Dispatcher{
		socket:   sock,
		poller:   transport.NewPoller(sock),
		handlers: make(map[string]Handler),
		identity: id,
		service:  service,
		log:      log,
	}
	return d, nil
}

// Register inserts a handler for command, a dotted class.method string.
// Last write wins; only safe to call before PollLoop starts.
func (d *Dispatcher) Register(command string, h Handler) {
	d.handlers[command] = h
}

// announce sends the two-frame READY control message.
func (d *Dispatcher) announce() error {
	return d.socket.Send([][]byte{d.identity.Bytes(), []byte(envelope.CmdReady)})
}

// heartbeat sends the two-frame HEARTBEAT control message.
func (d *Dispatcher) heartbeat() error {
	return d.socket.Send([][]byte{d.identity.Bytes(), []byte(envelope.CmdHeartbeat)})
}

// PollLoop runs until ctx is cancelled, dispatching inbound requests to
// registered handlers and heartbeating on the balancer's interval.
func (d *Dispatcher) PollLoop(ctx context.Context) error {
	if err := d.announce(); err != nil {
		return err
	}
	nextHeartbeat := time.Now().Add(heartbeatInterval)

	for {
		select {
		case <-ctx.Done():
			return d.socket.Close()
		default:
		}

		ready, err := d.poller.Poll(heartbeatInterval)
		if err != nil {
			return err
		}
		if len(ready) > 0 && ready[0] {
			if err := d.receiveOne(); err != nil {
				d.log.Warn().Err(err).Msg("dispatcher: recv failed")
			}
		}

		now := time.Now()
		if !now.Before(nextHeartbeat) {
			if err := d.heartbeat(); err != nil {
				d.log.Warn().Err(err).Msg("dispatcher: heartbeat send failed")
			}
			nextHeartbeat = now.Add(heartbeatInterval)
		}
	}
}

// heartbeatInterval mirrors the balancer's INTERVAL so a worker never goes
// silent for longer than the balancer tolerates.
const heartbeatInterval = 1000 * time.Millisecond

// receiveOne reads one six-frame backend message and routes it.
func (d *Dispatcher) receiveOne() error {
	frames, err := d.socket.Recv()
	if err != nil {
		return err
	}

	req, clientID, ok := parseRequest(frames)
	if !ok {
		d.log.Warn().Msg("dispatcher: malformed request, replying bad_stream")
		return d.reply(frames, ErrBadStream, nil)
	}

	handler, found := d.handlers[req.Command]
	if !found {
		return d.reply(frames, ErrNotFound, nil)
	}

	sender := func(payload [][]byte) error {
		return d.sendResponse(clientID, payload)
	}
	handler(req, sender)
	return nil
}

// parseRequest interprets a dispatcher-facing frame set. The dispatcher
// speaks the same six-frame envelope as the balancer's backend side:
// [worker(echoed), client, command, requestID, payload, reserved].
func parseRequest(frames [][]byte) (Request, []byte, bool) {
	if len(frames) != envelope.FrameCount {
		return Request{}, nil, false
	}
	client := frames[1]
	command := string(frames[2])
	return Request{
		ClientID: client,
		Command:  command,
		Payload:  frames[3:6],
	}, client, true
}

// sendResponse transmits a six-frame response back through the balancer.
func (d *Dispatcher) sendResponse(clientID []byte, payload [][]byte) error {
	frames := make([][]byte, 0, envelope.FrameCount)
	frames = append(frames, d.identity.Bytes(), clientID)
	for len(payload) < 4 {
		payload = append(payload, []byte{})
	}
	frames = append(frames, payload[:4]...)
	return d.socket.Send(frames)
}

// reply sends an error reply (bad_stream or not_found) addressed using
// whatever routing the transport recovered from the malformed frames.
func (d *Dispatcher) reply(frames [][]byte, code string, detail []byte) error {
	if len(frames) < 2 {
		return nil // nothing to address a reply to
	}
	clientID := frames[1]
	return d.sendResponse(clientID, [][]byte{[]byte(code), detail})
}

// Close releases the dispatcher's socket.
func (d *Dispatcher) Close() error {
	return d.socket.Close()
}

// Identity returns the dispatcher's worker identity.
func (d *Dispatcher) Identity() identity.Raw {
	return d.identity
}

// Service returns the configured service name.
func (d *Dispatcher) Service() string {
	return d.service
}
