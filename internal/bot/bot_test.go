package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestBotRunsJobsInOrder(t *testing.T) {
	b := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	var order []int
	recv := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		i := i
		b.Send(func() {
			order = append(order, i)
			recv <- struct{}{}
		})
	}
	for i := 0; i < 3; i++ {
		select {
		case <-recv:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for job")
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestCallReturnsValue(t *testing.T) {
	b := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	var counter int64
	got := Call(b, func() int64 {
		return atomic.AddInt64(&counter, 1)
	})
	if got != 1 {
		t.Fatalf("Call returned %d, want 1", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	b := New(1)
	r.Register("writer-0", b)
	if r.Lookup("writer-0") != b {
		t.Fatalf("expected registered bot to be returned")
	}
	if r.Lookup("missing") != nil {
		t.Fatalf("expected nil for unregistered name")
	}
	if len(r.All()) != 1 {
		t.Fatalf("expected one registered bot")
	}
}

func TestCallContextTimeout(t *testing.T) {
	b := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	blockCtx, blockCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer blockCancel()

	release := make(chan struct{})
	b.Send(func() { <-release }) // occupy the worker so the next job waits
	defer close(release)

	_, err := CallContext(blockCtx, b, func() int { return 1 })
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestContextCancelStopsRun(t *testing.T) {
	b := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	cancel()
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Run to exit after context cancellation")
	}
}
