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

// Package transport wraps the ZeroMQ ROUTER socket primitives the balancer
// and its workers speak over, so the broker and dispatcher packages deal in
// plain multi-part byte frames rather than the zmq4 API directly.
package transport

import (
	"time"

	zmq "github.com/pebbe/zmq4"
)

// Socket is the minimal ROUTER-socket surface the broker and dispatcher
// depend on. Satisfied by *Router below; tests substitute a fake.
type Socket interface {
	Send(frames [][]byte) error
	Recv() ([][]byte, error)
	Close() error
}

// Router wraps a zmq4 ROUTER socket bound or connected to a single endpoint.
type Router struct {
	sock *zmq.Socket
}

// Bind creates a ROUTER socket and binds it to endpoint (e.g. "tcp://*:5555").
func Bind(endpoint string) (*Router, error) {
	sock, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, err
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		return nil, err
	}
	return &Router{sock: sock}, nil
}

// Connect creates a ROUTER socket and connects it to endpoint. Workers use
// this to present themselves to the balancer's backend socket.
func Connect(endpoint string) (*Router, error) {
	sock, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, err
	}
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, err
	}
	return &Router{sock: sock}, nil
}

// Send writes a multi-part message, frames[0..n-2] as SNDMORE.
func (r *Router) Send(frames [][]byte) error {
	for i, f := range frames {
		flag := zmq.SNDMORE
		if i == len(frames)-1 {
			flag = 0
		}
		if _, err := r.sock.SendBytes(f, flag); err != nil {
			return err
		}
	}
	return nil
}

// Recv blocks for the next multi-part message.
func (r *Router) Recv() ([][]byte, error) {
	return r.sock.RecvMessageBytes(0)
}

// Close releases the underlying socket.
func (r *Router) Close() error {
	return r.sock.Close()
}

// Underlying exposes the zmq4 socket for use with a Poller.
func (r *Router) Underlying() *zmq.Socket {
	return r.sock
}

// Poller multiplexes readability across one or two sockets with a single
// timeout, mirroring the balancer's poll(items, timeout) primitive.
type Poller struct {
	poller *zmq.Poller
	socks  []*Router
}

// NewPoller registers sockets for POLLIN. Order is preserved in the slice
// Poll returns.
func NewPoller(socks ...*Router) *Poller {
	p := zmq.NewPoller()
	for _, s := range socks {
		p.Add(s.sock, zmq.POLLIN)
	}
	return &Poller{poller: p, socks: socks}
}

// Poll blocks up to timeout waiting for any registered socket to become
// readable, returning a parallel bool slice indicating which did.
func (p *Poller) Poll(timeout time.Duration) ([]bool, error) {
	polled, err := p.poller.Poll(timeout)
	if err != nil {
		return nil, err
	}
	ready := make([]bool, len(p.socks))
	for i, s := range p.socks {
		for _, item := range polled {
			if item.Socket == s.sock {
				ready[i] = true
			}
		}
	}
	return ready, nil
}
