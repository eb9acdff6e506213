package comfyui

import (
	"context"
	"errors"
	"testing"
	"time"

	"studio/internal/domain"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func TestPollerCompletes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := Poller{Interval: 2 * time.Second, Now: clock.Now, Sleep: clock.Sleep}
	calls := 0
	err := p.Poll(context.Background(), 120*time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if calls != 3 || len(clock.sleeps) != 2 || clock.sleeps[0] != 2*time.Second {
		t.Fatalf("calls=%d sleeps=%v", calls, clock.sleeps)
	}
}

func TestPollerTimesOut(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := Poller{Interval: 2 * time.Second, Now: clock.Now, Sleep: clock.Sleep}
	calls := 0
	err := p.Poll(context.Background(), 120*time.Second, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// one check at t=0 plus one after each of 60 sleeps
	if calls != 61 {
		t.Fatalf("calls = %d, want 61", calls)
	}
}

func TestPollerStopsOnError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := Poller{Now: clock.Now, Sleep: clock.Sleep}
	boom := errors.New("boom")
	err := p.Poll(context.Background(), time.Minute, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) || len(clock.sleeps) != 0 {
		t.Fatalf("err=%v sleeps=%v", err, clock.sleeps)
	}
}

func TestPollerHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Poller{Interval: time.Hour}
	err := p.Poll(ctx, 2*time.Hour, func(context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
