package reply

import (
	"context"
	"sync"
	"time"
)

// fakeClock advances only when sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type memoryThrottleStore struct {
	mu     sync.Mutex
	last   map[string]time.Time
	getErr error
}

func newMemoryThrottleStore() *memoryThrottleStore {
	return &memoryThrottleStore{last: map[string]time.Time{}}
}

func (s *memoryThrottleStore) GetLastRequest(_ context.Context, endpoint string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return time.Time{}, s.getErr
	}
	return s.last[endpoint], nil
}

func (s *memoryThrottleStore) SetLastRequest(_ context.Context, endpoint string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[endpoint] = at
	return nil
}
