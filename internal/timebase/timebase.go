// Package timebase slices elapsed scenario time into fixed periods.
//
// Tick runs in the timer's goroutine; every other method is called from
// the foreground loop. The two sides share only atomics.
package timebase

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/weather-emulator/internal/hw"
)

// Clock accumulates elapsed milliseconds one period at a time.
type Clock struct {
	period    time.Duration
	elapsedMs atomic.Uint32
	periodDue atomic.Bool
}

// New creates a Clock for the given period.
func New(period time.Duration) *Clock {
	return &Clock{period: period}
}

// Period returns the period duration.
func (c *Clock) Period() time.Duration {
	return c.period
}

// Tick marks a period as elapsed and adds it to the elapsed time.
func (c *Clock) Tick() {
	c.periodDue.Store(true)
	c.elapsedMs.Add(uint32(c.period.Milliseconds()))
}

// TakePeriod reports whether a period elapsed since the last call, and
// clears the flag.
func (c *Clock) TakePeriod() bool {
	return c.periodDue.CompareAndSwap(true, false)
}

// Elapsed returns the elapsed time in milliseconds.
func (c *Clock) Elapsed() uint32 {
	return c.elapsedMs.Load()
}

// Reset sets the elapsed time to zero. A pending period flag is kept.
func (c *Clock) Reset() {
	c.elapsedMs.Store(0)
}

// Start drives the clock from timer.
func (c *Clock) Start(timer hw.Timer) error {
	return timer.Start(c.period, c.Tick)
}

// Stop halts timer.
func (c *Clock) Stop(timer hw.Timer) error {
	return timer.Stop()
}
