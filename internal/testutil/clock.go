package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock stands in for mirror.Clock. The run directory name and the
// run's start and finish times are all read from it. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-03-09 14:05:00 UTC, which names
// the run directory "Dropmark Download 20240309 - 14:05".
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Run directories only show the
// minute, so advancing by less than that keeps the same name.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator stands in for mirror.IDGenerator. It hands out run ids
// "run-1", "run-2" and so on. The run id prefixes the run's vault objects
// and tags its log lines.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("run-%d", g.counter)
}
