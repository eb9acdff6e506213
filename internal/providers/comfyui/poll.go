package comfyui

import (
	"context"
	"fmt"
	"time"

	"studio/internal/domain"
)

// Poller repeats a check on a fixed interval until it reports done or the
// wall-clock budget runs out. Now and Sleep are injectable for tests.
type Poller struct {
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// DefaultPollInterval matches the engine's history refresh.
const DefaultPollInterval = 2 * time.Second

// DefaultMaxWait is the generation budget per job.
const DefaultMaxWait = 120 * time.Second

// Poll calls check until it returns done or an error. It returns a
// domain.ErrTimeout wrapped error once maxWait has elapsed.
func (p Poller) Poll(ctx context.Context, maxWait time.Duration, check func(ctx context.Context) (bool, error)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	deadline := now().Add(maxWait)
	for attempt := 1; ; attempt++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !now().Before(deadline) {
			return fmt.Errorf("%w: no result after %d polls in %s", domain.ErrTimeout, attempt, maxWait)
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
