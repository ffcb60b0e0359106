package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunJobsCompleteCleanly(t *testing.T) {
	m := NewManager()
	ran := 0
	m.AddRun("a", func(context.Context) error { ran++; return nil })
	m.AddRun("b", func(context.Context) error { ran++; return nil })
	if err := m.StartAndWait(context.Background()); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if ran != 2 {
		t.Fatalf("expected both jobs to run, got %d", ran)
	}
}

func TestFailingJobCancelsPeers(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")
	peerCancelled := make(chan struct{})
	m.AddRun("failing", func(context.Context) error { return boom })
	m.AddRun("peer", func(ctx context.Context) error {
		<-ctx.Done()
		close(peerCancelled)
		return ctx.Err()
	})

	err := m.StartAndWait(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	select {
	case <-peerCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("peer job was not cancelled")
	}
}

func TestShutdownJobsAlwaysRun(t *testing.T) {
	m := NewManager()
	m.AddRun("failing", func(context.Context) error { return errors.New("boom") })
	shutdownRan := false
	m.AddShutdown("cleanup", func(context.Context) error {
		shutdownRan = true
		return nil
	})
	if err := m.StartAndWait(context.Background()); err == nil {
		t.Fatal("expected run error")
	}
	if !shutdownRan {
		t.Fatal("shutdown job should run after failure")
	}
}

func TestParentCancellationStopsRunJobs(t *testing.T) {
	m := NewManager()
	m.AddRun("blocking", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := m.StartAndWait(ctx); err != nil {
		t.Fatalf("context cancellation should not surface as error, got %v", err)
	}
}

func TestShutdownErrorsAreJoined(t *testing.T) {
	m := NewManager()
	e1 := errors.New("first")
	e2 := errors.New("second")
	m.AddShutdown("a", func(context.Context) error { return e1 })
	m.AddShutdown("b", func(context.Context) error { return e2 })
	err := m.StartAndWait(context.Background())
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected joined shutdown errors, got %v", err)
	}
}
