// Package synchro gates DUT synchronization edges.
//
// Edge runs in the interrupt line's goroutine and only touches atomics.
// Once an edge is accepted the gate disarms itself; the foreground
// re-arms it after the debounce guard has elapsed.
package synchro

import (
	"sync/atomic"

	"github.com/sweeney/weather-emulator/internal/hw"
)

// Gate holds the synchronization bits.
type Gate struct {
	armed     atomic.Bool
	pending   atomic.Bool
	firstSeen atomic.Bool
}

// Edge handles a rising edge. Ignored while disarmed.
func (g *Gate) Edge() {
	if !g.armed.CompareAndSwap(true, false) {
		return
	}
	g.pending.Store(true)
	g.firstSeen.Store(true)
}

// TakePending reports whether an accepted edge is waiting, and clears it.
func (g *Gate) TakePending() bool {
	return g.pending.CompareAndSwap(true, false)
}

// Arm allows the next edge to be accepted.
func (g *Gate) Arm() {
	g.armed.Store(true)
}

// Disarm ignores edges until the next Arm.
func (g *Gate) Disarm() {
	g.armed.Store(false)
}

// Armed reports whether the next edge would be accepted.
func (g *Gate) Armed() bool {
	return g.armed.Load()
}

// Pending reports whether an accepted edge is waiting, without clearing it.
func (g *Gate) Pending() bool {
	return g.pending.Load()
}

// FirstSeen reports whether any edge has been accepted since Reset.
func (g *Gate) FirstSeen() bool {
	return g.firstSeen.Load()
}

// Reset clears every bit.
func (g *Gate) Reset() {
	g.armed.Store(false)
	g.pending.Store(false)
	g.firstSeen.Store(false)
}

// Attach arms the gate and routes edges from line to it.
func (g *Gate) Attach(line hw.Edge) error {
	g.Arm()
	if err := line.Enable(g.Edge); err != nil {
		g.Disarm()
		return err
	}
	return nil
}

// Detach stops routing edges and disarms the gate.
func (g *Gate) Detach(line hw.Edge) error {
	err := line.Disable()
	g.Disarm()
	return err
}
