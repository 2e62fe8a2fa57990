package timex

import (
	"sync"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// FullPeriod is the wrap modulus of a free-running 32-bit millisecond counter.
const FullPeriod uint64 = 1 << 32

// Clock is a monotonic millisecond counter that wraps to zero once per Period.
// A Period of 0 means FullPeriod.
type Clock interface {
	NowMs() uint32
	Period() uint64
}

// ElapsedMs returns the milliseconds from start to now on a clock that wraps at
// period. It tolerates at most one wrap between the two readings.
func ElapsedMs(start, now uint32, period uint64) uint32 {
	if now >= start {
		return now - start
	}
	if period == 0 || period > FullPeriod {
		period = FullPeriod
	}
	return uint32(period - uint64(start) + uint64(now))
}

// Since is ElapsedMs against the clock's current reading.
func Since(c Clock, start uint32) uint32 {
	return ElapsedMs(start, c.NowMs(), c.Period())
}

// MonoClock derives a wrapping millisecond counter from the runtime's
// monotonic clock, counting from construction.
type MonoClock struct {
	epoch  time.Time
	period uint64
}

// NewMonoClock returns a clock wrapping at period (0 means FullPeriod).
func NewMonoClock(period uint64) *MonoClock {
	if period == 0 || period > FullPeriod {
		period = FullPeriod
	}
	return &MonoClock{epoch: time.Now(), period: period}
}

func (c *MonoClock) NowMs() uint32 {
	return uint32(uint64(time.Since(c.epoch).Milliseconds()) % c.period)
}

func (c *MonoClock) Period() uint64 { return c.period }

// ManualClock is advanced explicitly. Safe for concurrent use.
type ManualClock struct {
	mu     sync.Mutex
	now    uint32
	period uint64
}

// NewManualClock starts at start and wraps at period (0 means FullPeriod).
func NewManualClock(start uint32, period uint64) *ManualClock {
	if period == 0 || period > FullPeriod {
		period = FullPeriod
	}
	return &ManualClock{now: uint32(uint64(start) % period), period: period}
}

func (c *ManualClock) NowMs() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Period() uint64 { return c.period }

// Advance moves the clock forward by ms, wrapping at the period.
func (c *ManualClock) Advance(ms uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = uint32((uint64(c.now) + uint64(ms)) % c.period)
	return c.now
}

// Set jumps the clock to an absolute reading.
func (c *ManualClock) Set(ms uint32) {
	c.mu.Lock()
	c.now = uint32(uint64(ms) % c.period)
	c.mu.Unlock()
}
