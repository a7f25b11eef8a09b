package broker

import (
	"testing"
	"time"
)

func TestAppendRejectsDuplicate(t *testing.T) {
	q := NewWorkerQueue()
	now := time.Now()
	if !q.Append([]byte("id1"), "A", now) {
		t.Fatal("first append should succeed")
	}
	if q.Append([]byte("id1"), "A", now) {
		t.Fatal("duplicate append should be rejected")
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}

func TestDequeueIsFIFO(t *testing.T) {
	q := NewWorkerQueue()
	now := time.Now()
	q.Append([]byte("1"), "A", now)
	q.Append([]byte("2"), "B", now)
	q.Append([]byte("3"), "C", now)

	for _, want := range []string{"A", "B", "C"} {
		w, ok := q.Dequeue()
		if !ok || w.Readable != want {
			t.Fatalf("Dequeue() = %+v, ok=%v; want %s", w, ok, want)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue on empty queue should report false")
	}
}

func TestRefreshRequiresExistingEntry(t *testing.T) {
	q := NewWorkerQueue()
	now := time.Now()
	if q.Refresh("missing", now) {
		t.Fatal("Refresh of absent worker should report false")
	}
	q.Append([]byte("1"), "A", now)
	if !q.Refresh("A", now.Add(time.Second)) {
		t.Fatal("Refresh of present worker should succeed")
	}
}

func TestPurgeVisitsEveryElementExactlyOnce(t *testing.T) {
	q := NewWorkerQueue()
	base := time.Now()
	// Alternate expired/live entries to exercise the skip-on-erase failure
	// mode the original erase-while-iterating discipline was prone to.
	q.Append([]byte("1"), "expired-1", base.Add(-time.Second))
	q.Append([]byte("2"), "live-1", base.Add(time.Hour))
	q.Append([]byte("3"), "expired-2", base.Add(-time.Second))
	q.Append([]byte("4"), "live-2", base.Add(time.Hour))
	q.Append([]byte("5"), "expired-3", base.Add(-time.Second))

	expired := q.Purge(base)
	if len(expired) != 3 {
		t.Fatalf("Purge removed %d entries, want 3: %v", len(expired), expired)
	}
	remaining := q.Snapshot()
	if len(remaining) != 2 || remaining[0].Readable != "live-1" || remaining[1].Readable != "live-2" {
		t.Fatalf("unexpected survivors: %+v", remaining)
	}
}

func TestDeleteIsNoOpWhenAbsent(t *testing.T) {
	q := NewWorkerQueue()
	q.Delete("nothing-here")
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", q.Len())
	}
}
