package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestScheduler_FiresInDueThenRegistrationOrder(t *testing.T) {
	s, _ := NewManual(epoch)
	var got []string
	record := func(name string) Handler {
		return func(now time.Time) {
			got = append(got, name+"@"+now.Sub(epoch).String())
		}
	}
	s.Every("tick", time.Second, record("tick"))
	s.Every("poll", time.Second, record("poll"))
	s.After("delay", 1500*time.Millisecond, record("delay"))

	if fired := s.Advance(2 * time.Second); fired != 5 {
		t.Fatalf("expected 5 firings, got %d", fired)
	}
	want := []string{"tick@1s", "poll@1s", "delay@1.5s", "tick@2s", "poll@2s"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("firing order mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduler_CancelAffectsOnlyThatJob(t *testing.T) {
	s, _ := NewManual(epoch)
	ticks, polls := 0, 0
	s.Every("tick", time.Second, func(time.Time) { ticks++ })
	poll := s.Every("poll", time.Second, func(time.Time) { polls++ })

	s.Advance(2 * time.Second)
	poll.Cancel()
	s.Advance(3 * time.Second)

	if ticks != 5 {
		t.Fatalf("expected 5 ticks, got %d", ticks)
	}
	if polls != 2 {
		t.Fatalf("expected 2 polls, got %d", polls)
	}
}

func TestScheduler_HandlerCanScheduleFollowUp(t *testing.T) {
	s, clock := NewManual(epoch)
	var landed time.Time
	s.After("charge", time.Second, func(now time.Time) {
		s.After("complete", 3*time.Second, func(now time.Time) { landed = now })
	})

	s.Advance(3 * time.Second)
	if !landed.IsZero() {
		t.Fatalf("expected completion to wait for its delay")
	}
	s.Advance(time.Second)
	if !landed.Equal(epoch.Add(4 * time.Second)) {
		t.Fatalf("expected completion at +4s, got %v", landed.Sub(epoch))
	}
	if !clock.Now().Equal(epoch.Add(4 * time.Second)) {
		t.Fatalf("expected clock at +4s, got %v", clock.Now().Sub(epoch))
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending jobs, got %d", s.Pending())
	}
}

func TestScheduler_CancelFromInsideHandler(t *testing.T) {
	s, _ := NewManual(epoch)
	count := 0
	var job *Job
	job = s.Every("once", time.Second, func(time.Time) {
		count++
		job.Cancel()
	})
	s.Advance(5 * time.Second)
	if count != 1 {
		t.Fatalf("expected a single firing, got %d", count)
	}
}

func TestScheduler_DoReturnsHandlerError(t *testing.T) {
	s, _ := NewManual(epoch)
	want := errors.New("boom")
	err := s.Do(context.Background(), func(now time.Time) error {
		if !now.Equal(epoch) {
			t.Fatalf("expected manual now, got %v", now)
		}
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestScheduler_DoRespectsContextWhileTurnHeld(t *testing.T) {
	s, _ := NewManual(epoch)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Do(context.Background(), func(time.Time) error {
		return s.Do(ctx, func(time.Time) error { return nil })
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestScheduler_RunOnRealClock(t *testing.T) {
	s := New(SystemClock{})
	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan struct{}, 1)
	s.After("ping", 5*time.Millisecond, func(time.Time) {
		fired <- struct{}{}
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected job to fire")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestScheduler_RunRejectsManualClock(t *testing.T) {
	s, _ := NewManual(epoch)
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error for manual clock")
	}
}
