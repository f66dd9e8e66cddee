package lock

import (
	"testing"
	"time"
)

func TestTryAcquireFreshLock(t *testing.T) {
	r := New(time.Minute)
	now := time.Now()

	l, ok := r.TryAcquire("file-1", "alice", now)
	if !ok {
		t.Fatalf("expected fresh acquisition to succeed")
	}
	if l.UserID != "alice" {
		t.Fatalf("got user %q, want alice", l.UserID)
	}
}

func TestTryAcquireBlocksOtherUser(t *testing.T) {
	r := New(time.Minute)
	now := time.Now()

	if _, ok := r.TryAcquire("file-1", "alice", now); !ok {
		t.Fatalf("alice should acquire cleanly")
	}
	if _, ok := r.TryAcquire("file-1", "bob", now); ok {
		t.Fatalf("bob should be blocked while alice holds a live lock")
	}
}

func TestTryAcquireRenewalPreservesAcquiredAt(t *testing.T) {
	r := New(time.Minute)
	t0 := time.Now()

	first, ok := r.TryAcquire("file-1", "alice", t0)
	if !ok {
		t.Fatalf("first acquisition should succeed")
	}

	t1 := t0.Add(10 * time.Second)
	second, ok := r.TryAcquire("file-1", "alice", t1)
	if !ok {
		t.Fatalf("same-user renewal should succeed")
	}
	if !second.AcquiredAt.Equal(first.AcquiredAt) {
		t.Fatalf("renewal should preserve AcquiredAt: got %v, want %v", second.AcquiredAt, first.AcquiredAt)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("renewal should push ExpiresAt forward")
	}
}

func TestTryAcquireAfterExpiryAllowsOtherUser(t *testing.T) {
	r := New(time.Minute)
	t0 := time.Now()

	if _, ok := r.TryAcquire("file-1", "alice", t0); !ok {
		t.Fatalf("alice should acquire cleanly")
	}

	afterExpiry := t0.Add(2 * time.Minute)
	l, ok := r.TryAcquire("file-1", "bob", afterExpiry)
	if !ok {
		t.Fatalf("bob should acquire once alice's lock has expired")
	}
	if l.UserID != "bob" {
		t.Fatalf("got user %q, want bob", l.UserID)
	}
}

func TestReleaseOnlyByHolder(t *testing.T) {
	r := New(time.Minute)
	now := time.Now()

	r.TryAcquire("file-1", "alice", now)
	if r.Release("file-1", "bob") {
		t.Fatalf("bob should not be able to release alice's lock")
	}
	if !r.Release("file-1", "alice") {
		t.Fatalf("alice should be able to release her own lock")
	}
	if _, locked := r.IsLocked("file-1", now); locked {
		t.Fatalf("file should be unlocked after release")
	}
}

func TestCanUserEdit(t *testing.T) {
	r := New(time.Minute)
	now := time.Now()

	if !r.CanUserEdit("file-1", "alice", now) {
		t.Fatalf("an unlocked file should be editable by anyone")
	}
	r.TryAcquire("file-1", "alice", now)
	if !r.CanUserEdit("file-1", "alice", now) {
		t.Fatalf("the holder should always be able to edit")
	}
	if r.CanUserEdit("file-1", "bob", now) {
		t.Fatalf("a non-holder should not be able to edit a live lock")
	}
}

func TestCleanupExpired(t *testing.T) {
	r := New(time.Minute)
	t0 := time.Now()
	r.TryAcquire("file-1", "alice", t0)
	r.TryAcquire("file-2", "bob", t0)

	removed := r.CleanupExpired(t0.Add(2 * time.Minute))
	if removed != 2 {
		t.Fatalf("expected both locks to be cleaned up, removed %d", removed)
	}
	if len(r.All()) != 0 {
		t.Fatalf("expected an empty table after cleanup")
	}
}
