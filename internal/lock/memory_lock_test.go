package lock

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCoordinator_AcquireAndContend(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCoordinator()

	ok, err := c.Acquire(ctx, "slot-key", "booking-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}

	// A different owner is rejected while the lease is live.
	ok, err = c.Acquire(ctx, "slot-key", "booking-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("contended Acquire = %v, %v, want false", ok, err)
	}

	// The holder may re-acquire its own lease.
	ok, err = c.Acquire(ctx, "slot-key", "booking-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("re-Acquire by holder = %v, %v", ok, err)
	}
}

func TestMemoryCoordinator_ReleaseIsOwnerChecked(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCoordinator()

	if _, err := c.Acquire(ctx, "slot-key", "booking-1", time.Minute); err != nil {
		t.Fatal(err)
	}

	// A non-holder release is a no-op.
	if err := c.Release(ctx, "slot-key", "booking-2"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if owner, held := c.Holder("slot-key"); !held || owner != "booking-1" {
		t.Fatalf("lease lost to non-holder release: %q %v", owner, held)
	}

	if err := c.Release(ctx, "slot-key", "booking-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, held := c.Holder("slot-key"); held {
		t.Error("lease still held after release")
	}
}

func TestMemoryCoordinator_ExpiryFreesTheKey(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCoordinator()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	if ok, _ := c.Acquire(ctx, "slot-key", "booking-1", 15*time.Minute); !ok {
		t.Fatal("initial acquire failed")
	}
	if ok, _ := c.Acquire(ctx, "slot-key", "booking-2", 15*time.Minute); ok {
		t.Fatal("contended acquire should fail before expiry")
	}

	now = now.Add(16 * time.Minute)

	ok, err := c.Acquire(ctx, "slot-key", "booking-2", 15*time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire after expiry = %v, %v, want true", ok, err)
	}
}

func TestMemoryCoordinator_Renew(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCoordinator()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	if ok, _ := c.Acquire(ctx, "slot-key", "booking-1", 10*time.Minute); !ok {
		t.Fatal("acquire failed")
	}

	if ok, _ := c.Renew(ctx, "slot-key", "booking-2", 10*time.Minute); ok {
		t.Error("non-holder renewed the lease")
	}

	now = now.Add(5 * time.Minute)
	if ok, _ := c.Renew(ctx, "slot-key", "booking-1", 10*time.Minute); !ok {
		t.Error("holder failed to renew a live lease")
	}

	// Renewal pushed the deadline out; the original expiry no longer frees it.
	now = now.Add(9 * time.Minute)
	if ok, _ := c.Acquire(ctx, "slot-key", "booking-2", 10*time.Minute); ok {
		t.Error("renewed lease treated as expired")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.Renew(ctx, "slot-key", "booking-1", 10*time.Minute); ok {
		t.Error("expired lease renewed")
	}
}
