package redis

import (
	"context"
	"testing"
	"time"
)

func TestJobLockSingleOwner(t *testing.T) {
	client, _ := newTestRedisClient(t)

	ctx := context.Background()
	first := NewJobLock(client, "replica-a")
	second := NewJobLock(client, "replica-b")

	ok, err := first.TryLock(ctx, "reconcile", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first claim to win, got ok=%v err=%v", ok, err)
	}

	ok, err = second.TryLock(ctx, "reconcile", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second claim to lose, got ok=%v err=%v", ok, err)
	}

	owner, err := second.Owner(ctx, "reconcile")
	if err != nil || owner != "replica-a" {
		t.Fatalf("expected replica-a to own the job, got %q err=%v", owner, err)
	}
}

func TestJobLockExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)

	ctx := context.Background()
	lock := NewJobLock(client, "replica-a")

	if ok, err := lock.TryLock(ctx, "overdue", time.Minute); err != nil || !ok {
		t.Fatalf("expected claim, got ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Minute)

	owner, err := lock.Owner(ctx, "overdue")
	if err != nil || owner != "" {
		t.Fatalf("expected job to be free after ttl, got %q err=%v", owner, err)
	}

	if ok, err := NewJobLock(client, "replica-b").TryLock(ctx, "overdue", time.Minute); err != nil || !ok {
		t.Fatalf("expected replica-b to claim expired job, got ok=%v err=%v", ok, err)
	}
}
