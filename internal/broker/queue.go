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

package broker

import "time"

// Worker is a queue entry: a worker's identity and its liveness deadline.
type Worker struct {
	ID       []byte // raw 17-byte wire identity
	Readable string // "@"+32 hex, used as the queue key
	Expiry   time.Time
}

// WorkerQueue is the ordered, unique-by-identity FIFO of eligible workers.
// It is not safe for concurrent use; callers serialize access (the broker
// loop does so, briefly, under its own mutex).
type WorkerQueue struct {
	workers []Worker
}

// NewWorkerQueue returns an empty queue.
func NewWorkerQueue() *WorkerQueue {
	return &WorkerQueue{}
}

func (q *WorkerQueue) index(readable string) int {
	for i, w := range q.workers {
		if w.Readable == readable {
			return i
		}
	}
	return -1
}

// Contains reports whether readable is currently queued.
func (q *WorkerQueue) Contains(readable string) bool {
	return q.index(readable) >= 0
}

// Append inserts a new worker at the tail. It refuses (and reports false
// for) a duplicate identity, leaving the queue unchanged.
func (q *WorkerQueue) Append(id []byte, readable string, expiry time.Time) bool {
	if q.Contains(readable) {
		return false
	}
	raw := make([]byte, len(id))
	copy(raw, id)
	q.workers = append(q.workers, Worker{ID: raw, Readable: readable, Expiry: expiry})
	return true
}

// Delete removes readable if present. A no-op if absent.
func (q *WorkerQueue) Delete(readable string) {
	i := q.index(readable)
	if i < 0 {
		return
	}
	q.workers = append(q.workers[:i], q.workers[i+1:]...)
}

// Refresh extends an existing worker's expiry. Reports false, without
// inserting, if the worker is not queued.
func (q *WorkerQueue) Refresh(readable string, expiry time.Time) bool {
	i := q.index(readable)
	if i < 0 {
		return false
	}
	q.workers[i].Expiry = expiry
	return true
}

// Dequeue removes and returns the head of the queue (oldest arrival).
func (q *WorkerQueue) Dequeue() (Worker, bool) {
	if len(q.workers) == 0 {
		return Worker{}, false
	}
	w := q.workers[0]
	q.workers = q.workers[1:]
	return w, true
}

// Len reports the number of queued workers.
func (q *WorkerQueue) Len() int {
	return len(q.workers)
}

// Purge removes every worker whose expiry has passed, visiting each entry
// exactly once, and returns the readable identities removed.
func (q *WorkerQueue) Purge(now time.Time) []string {
	var expired []string
	kept := q.workers[:0:0]
	for _, w := range q.workers {
		if w.Expiry.Before(now) {
			expired = append(expired, w.Readable)
			continue
		}
		kept = append(kept, w)
	}
	q.workers = kept
	return expired
}

// Snapshot copies the current queue contents in order.
func (q *WorkerQueue) Snapshot() []Worker {
	out := make([]Worker, len(q.workers))
	copy(out, q.workers)
	return out
}
