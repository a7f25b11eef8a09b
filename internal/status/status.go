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

// Package status exposes the balancer's in-memory state over HTTP for
// operators: a liveness probe, aggregate stats, the worker queue, and
// recently seen clients. It never touches the broker's hot path — each
// data handler reads a single Snapshot taken under the broker's own mutex;
// /healthz reads no broker state.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arionyau/obelisk/internal/broker"
)

// SnapshotSource is satisfied by *broker.Broker.
type SnapshotSource interface {
	Snapshot() broker.Snapshot
}

// Server is the admin HTTP surface.
type Server struct {
	source SnapshotSource
	router *mux.Router
}

// New builds a Server backed by source.
func New(source SnapshotSource) *Server {
	s := &Server{source: source, router: mux.NewRouter()}
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/workers", s.handleWorkers).Methods(http.MethodGet)
	s.router.HandleFunc("/clients", s.handleClients).Methods(http.MethodGet)
	return s
}

// ServeHTTP satisfies http.Handler so Server can be passed straight to
// http.ListenAndServe or a net/http/httptest server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsView struct {
	Requests   uint64    `json:"requests"`
	Responses  uint64    `json:"responses"`
	Heartbeats uint64    `json:"heartbeats"`
	StartedAt  time.Time `json:"started_at"`
	WorkerCount int      `json:"worker_count"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	writeJSON(w, statsView{
		Requests:    snap.Stats.Requests,
		Responses:   snap.Stats.Responses,
		Heartbeats:  snap.Stats.Heartbeats,
		StartedAt:   snap.Stats.StartedAt,
		WorkerCount: len(snap.Workers),
	})
}

type workerView struct {
	Identity string    `json:"identity"`
	Expiry   time.Time `json:"expiry"`
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	views := make([]workerView, 0, len(snap.Workers))
	for _, worker := range snap.Workers {
		views = append(views, workerView{Identity: worker.Readable, Expiry: worker.Expiry})
	}
	writeJSON(w, views)
}

type clientView struct {
	Identity string    `json:"identity"`
	LastSeen time.Time `json:"last_seen"`
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	views := make([]clientView, 0, len(snap.RecentClients))
	for _, c := range snap.RecentClients {
		views = append(views, clientView{Identity: c.Identity, LastSeen: c.LastSeen})
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.Encode(v)
}
