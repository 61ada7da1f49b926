package limits

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCounterWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := c.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if n != int64(i) {
			t.Fatalf("Incr #%d = %d", i, n)
		}
	}
	if n, _ := c.Get(ctx, "k"); n != 3 {
		t.Fatalf("Get = %d want 3", n)
	}

	now = now.Add(time.Minute)
	if n, _ := c.Get(ctx, "k"); n != 0 {
		t.Fatalf("expired Get = %d want 0", n)
	}
	if n, _ := c.Incr(ctx, "k", time.Minute); n != 1 {
		t.Fatalf("Incr after window = %d want 1", n)
	}
}

func TestDailyKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)
	if got := DailyKey("msg", 42, now); got != "msg:42:20260501" {
		t.Fatalf("DailyKey = %q", got)
	}
	if got := UntilEndOfDay(now); got != 30*time.Minute {
		t.Fatalf("UntilEndOfDay = %v", got)
	}
}
