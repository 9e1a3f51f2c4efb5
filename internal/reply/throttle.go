package reply

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the minimum spacing between completed requests.
const DefaultMinInterval = 2 * time.Second

// ThrottleStore persists the last-request timestamp so that separate processes
// sharing a store also share the spacing.
type ThrottleStore interface {
	GetLastRequest(ctx context.Context, endpoint string) (time.Time, error)
	SetLastRequest(ctx context.Context, endpoint string, at time.Time) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Throttle enforces a minimum interval between the end of one request and the
// start of the next. Admission is serialized: concurrent callers wait in turn.
type Throttle struct {
	Interval time.Duration
	Endpoint string
	Store    ThrottleStore
	Clock    func() time.Time
	Sleep    SleepFunc

	mu   sync.Mutex
	last time.Time
}

// NewThrottle returns a throttle with the given interval (DefaultMinInterval if <= 0).
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	return &Throttle{Interval: interval}
}

// Wait blocks until the interval since the last completed (or admitted)
// request has elapsed.
// It returns the time spent waiting. A store read failure is returned alongside a
// completed wait based on in-memory state; callers may log it and proceed.
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	if t == nil {
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.last
	var storeErr error
	if t.Store != nil && t.Endpoint != "" {
		stored, err := t.Store.GetLastRequest(ctx, t.Endpoint)
		if err != nil {
			storeErr = err
		} else if stored.After(last) {
			last = stored
		}
	}

	var wait time.Duration
	if !last.IsZero() {
		wait = t.interval() - t.now().Sub(last)
	}
	if wait > 0 {
		if err := t.sleep(ctx, wait); err != nil {
			return 0, err
		}
	} else {
		wait = 0
	}

	// Admission counts as a request start so a concurrent caller admitted
	// before this request completes is still spaced from it.
	t.last = t.now()
	return wait, storeErr
}

// Record marks the current time as the end of a completed request. The
// timestamp never moves backwards, so a later admission stays reserved.
func (t *Throttle) Record(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	if now := t.now(); now.After(t.last) {
		t.last = now
	}
	last := t.last
	t.mu.Unlock()

	if t.Store != nil && t.Endpoint != "" {
		return t.Store.SetLastRequest(ctx, t.Endpoint, last)
	}
	return nil
}

// Last returns the in-memory timestamp of the last completed request.
func (t *Throttle) Last() time.Time {
	if t == nil {
		return time.Time{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Throttle) interval() time.Duration {
	if t.Interval <= 0 {
		return DefaultMinInterval
	}
	return t.Interval
}

func (t *Throttle) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}

func (t *Throttle) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
