package data

import (
	"sync/atomic"
	"time"
)

// TimeProvider is the clock the repositories stamp rows with.
type TimeProvider interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	nanos atomic.Int64
}

// NewManualClock returns a clock stopped at t.
func NewManualClock(t time.Time) *ManualClock {
	c := &ManualClock{}
	c.Set(t)
	return c
}

func (c *ManualClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) { c.nanos.Store(t.UnixNano()) }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

func clockOrSystem(tp TimeProvider) TimeProvider {
	if tp == nil {
		return SystemClock{}
	}
	return tp
}
