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

// Package broker implements the Paranoid-Pirate load balancer: a worker
// queue, request/response rewriting between a client-facing frontend socket
// and a worker-facing backend socket, heartbeat emission, and expiry purge.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/arionyau/obelisk/internal/envelope"
	"github.com/arionyau/obelisk/internal/identity"
	"github.com/arionyau/obelisk/internal/transport"
)

// Timing constants from the balancer's liveness protocol.
const (
	Interval = 1000 * time.Millisecond
	Liveness = 3
)

const recentClientCapacity = 256

func newRecentCache() (*lru.Cache[string, time.Time], error) {
	return lru.New[string, time.Time](recentClientCapacity)
}

// Stats are cumulative counters exposed to the status surface.
type Stats struct {
	Requests   uint64
	Responses  uint64
	Heartbeats uint64
	StartedAt  time.Time
}

// ClientSeen records the last time a client identity was routed.
type ClientSeen struct {
	Identity string
	LastSeen time.Time
}

// Snapshot is a point-in-time, race-free copy of broker state for the
// status server and watch dashboard.
type Snapshot struct {
	Workers       []Worker
	Stats         Stats
	RecentClients []ClientSeen
}

// poller abstracts the admission-controlled poll: frontend is only polled
// when pollFrontend is true (queue non-empty), backend always.
type poller interface {
	Poll(pollFrontend bool, timeout time.Duration) (frontendReady, backendReady bool, err error)
}

type routerPoller struct {
	both        *transport.Poller
	backendOnly *transport.Poller
}

func (p *routerPoller) Poll(pollFrontend bool, timeout time.Duration) (bool, bool, error) {
	if pollFrontend {
		ready, err := p.both.Poll(timeout)
		if err != nil {
			return false, false, err
		}
		return ready[0], ready[1], nil
	}
	ready, err := p.backendOnly.Poll(timeout)
	if err != nil {
		return false, false, err
	}
	return false, ready[0], nil
}

// Broker is the balancer state machine.
type Broker struct {
	frontend transport.Socket
	backend  transport.Socket
	poll     poller

	mu          sync.Mutex
	queue       *WorkerQueue
	heartbeatAt time.Time
	stats       Stats
	recent      *lru.Cache[string, time.Time]

	now func() time.Time
	log zerolog.Logger
}

// New binds the frontend and backend router sockets and returns a Broker
// ready to Run.
func New(frontendEndpoint, backendEndpoint string, log zerolog.Logger) (*Broker, error) {
	frontend, err := transport.Bind(frontendEndpoint)
	if err != nil {
		return nil, fmt.Errorf("broker: bind frontend %s: %w", frontendEndpoint, err)
	}
	backend, err := transport.Bind(backendEndpoint)
	if err != nil {
		frontend.Close()
		return nil, fmt.Errorf("broker: bind backend %s: %w", backendEndpoint, err)
	}

	recent, err := newRecentCache()
	if err != nil {
		return nil, fmt.Errorf("broker: recent-client cache: %w", err)
	}

	now := time.Now()
	return &Broker{
		frontend: frontend,
		backend:  backend,
		poll: &routerPoller{
			both:        transport.NewPoller(frontend, backend),
			backendOnly: transport.NewPoller(backend),
		},
		queue:       NewWorkerQueue(),
		heartbeatAt: now.Add(Interval),
		stats:       Stats{StartedAt: now},
		recent:      recent,
		now:         time.Now,
		log:         log,
	}, nil
}

// Run executes the main loop until ctx is cancelled or a socket operation
// fails unrecoverably.
func (b *Broker) Run(ctx context.Context) error {
	if b.poll == nil {
		return fmt.Errorf("broker: not configured with a poller")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.mu.Lock()
		admitFrontend := b.queue.Len() > 0
		b.mu.Unlock()

		frontendReady, backendReady, err := b.poll.Poll(admitFrontend, Interval)
		if err != nil {
			return fmt.Errorf("broker: poll: %w", err)
		}

		now := b.now()
		if backendReady {
			if err := b.handleBackend(now); err != nil {
				b.log.Warn().Err(err).Msg("backend recv failed")
			}
		}
		if admitFrontend && frontendReady {
			if err := b.handleFrontend(now); err != nil {
				b.log.Warn().Err(err).Msg("frontend recv failed")
			}
		}
		b.tick(b.now())
	}
}

// handleBackend processes one message received on the backend socket:
// either a worker control frame (READY/HEARTBEAT) or a six-frame response
// to be forwarded to the frontend.
func (b *Broker) handleBackend(now time.Time) error {
	frames, err := b.backend.Recv()
	if err != nil {
		return err
	}
	msg, err := envelope.ParseBackend(frames)
	if err != nil {
		b.log.Warn().Err(err).Msg("backend: malformed message dropped")
		return nil
	}
	readable, err := identity.Encode(msg.WorkerFrame)
	if err != nil {
		b.log.Warn().Err(err).Msg("backend: malformed worker identity dropped")
		return nil
	}

	if msg.IsControl {
		b.handleControl(msg.WorkerFrame, readable, msg.Command, now)
		return nil
	}

	return b.forwardResponse(readable, msg, now)
}

func (b *Broker) handleControl(rawID []byte, readable, command string, now time.Time) {
	switch command {
	case envelope.CmdReady:
		b.mu.Lock()
		b.queue.Delete(readable)
		b.queue.Append(rawID, readable, now.Add(Liveness*Interval))
		b.mu.Unlock()
		b.log.Debug().Str("worker", readable).Msg("worker ready")
	case envelope.CmdHeartbeat:
		b.mu.Lock()
		ok := b.queue.Refresh(readable, now.Add(Liveness*Interval))
		b.mu.Unlock()
		if !ok {
			b.log.Warn().Str("worker", readable).Msg("heartbeat from worker not ready")
		}
	default:
		b.log.Warn().Str("worker", readable).Str("command", command).Msg("invalid control command")
	}
}

// forwardResponse rewrites a worker's six-frame response onto the frontend
// socket and returns the worker to the tail of the queue. This is the named
// operation the original source left as an empty passback_response stub.
func (b *Broker) forwardResponse(readable string, msg envelope.BackendMessage, now time.Time) error {
	if err := b.frontend.Send(envelope.BuildFrontend(msg.Response)); err != nil {
		b.log.Warn().Err(err).Msg("frontend send failed")
	}

	b.mu.Lock()
	b.queue.Append(msg.WorkerFrame, readable, now.Add(Liveness*Interval))
	b.stats.Responses++
	b.mu.Unlock()

	b.recordClient(msg.Response.Second)
	return nil
}

// handleFrontend processes one message received on the frontend socket:
// dequeues a worker (or honors client-directed routing) and forwards to
// the backend.
func (b *Broker) handleFrontend(now time.Time) error {
	frames, err := b.frontend.Recv()
	if err != nil {
		return err
	}
	req, err := envelope.ParseFrontend(frames)
	if err != nil {
		b.log.Warn().Err(err).Msg("frontend: malformed message dropped")
		return nil
	}

	var workerID []byte
	if len(req.Second) == 0 {
		b.mu.Lock()
		w, ok := b.queue.Dequeue()
		b.mu.Unlock()
		if !ok {
			b.log.Warn().Msg("frontend readable with an empty worker queue")
			return nil
		}
		workerID = w.ID
	} else {
		// Client-directed routing: best effort, no membership check.
		workerID = req.Second
	}

	if err := b.backend.Send(envelope.BuildBackend(workerID, req)); err != nil {
		b.log.Warn().Err(err).Msg("backend send failed")
	}

	b.mu.Lock()
	b.stats.Requests++
	b.mu.Unlock()
	b.recordClient(req.First)
	return nil
}

// tick emits heartbeats when due and purges expired workers. Called once
// per poll cycle regardless of readiness.
func (b *Broker) tick(now time.Time) {
	b.mu.Lock()
	due := !now.Before(b.heartbeatAt)
	var workers []Worker
	if due {
		workers = b.queue.Snapshot()
	}
	b.mu.Unlock()

	if due {
		for _, w := range workers {
			if err := b.backend.Send(envelope.BuildHeartbeat(w.ID)); err != nil {
				b.log.Warn().Err(err).Str("worker", w.Readable).Msg("heartbeat send failed")
				continue
			}
			b.mu.Lock()
			b.stats.Heartbeats++
			b.mu.Unlock()
		}
		b.mu.Lock()
		b.heartbeatAt = now.Add(Interval)
		b.mu.Unlock()
	}

	b.mu.Lock()
	expired := b.queue.Purge(now)
	b.mu.Unlock()
	for _, readable := range expired {
		b.log.Debug().Str("worker", readable).Msg("worker expired, purged")
	}
}

// recordClient notes a client identity in the recent-clients cache, purely
// for the status surface; it never influences routing.
func (b *Broker) recordClient(rawID []byte) {
	if b.recent == nil || len(rawID) == 0 {
		return
	}
	readable, err := identity.Encode(rawID)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.recent.Add(readable, b.now())
	b.mu.Unlock()
}

// Snapshot returns a race-free copy of broker state for the status server
// and watch dashboard. The mutex is held only for the copy.
func (b *Broker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	var recent []ClientSeen
	if b.recent != nil {
		for _, key := range b.recent.Keys() {
			if seenAt, ok := b.recent.Peek(key); ok {
				recent = append(recent, ClientSeen{Identity: key, LastSeen: seenAt})
			}
		}
	}
	return Snapshot{
		Workers:       b.queue.Snapshot(),
		Stats:         b.stats,
		RecentClients: recent,
	}
}

// Close releases both router sockets.
func (b *Broker) Close() error {
	ferr := b.frontend.Close()
	berr := b.backend.Close()
	if ferr != nil {
		return ferr
	}
	return berr
}
