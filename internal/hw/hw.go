// Package hw provides the hardware collaborators the emulator drives:
// digital lines, an edge interrupt, PWM channels, a single-pulse generator
// and a periodic timer.
// The real implementations use the Linux GPIO character device and periph.io.
// The fake implementations allow testing without hardware.
package hw

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// ErrBusy is returned by a Pulser asked for a new pulse while one is in flight.
var ErrBusy = errors.New("hw: pulse in progress")

// Output drives a single digital line.
type Output interface {
	// Write sets the line level (true = high).
	Write(high bool) error

	// Toggle inverts the last written level.
	Toggle() error

	// Close releases the line.
	Close() error
}

// Input reads a single digital line.
type Input interface {
	// Read returns the line level (true = high).
	Read() (bool, error)

	// Close releases the line.
	Close() error
}

// Edge is an edge-triggered interrupt bound to an input line.
// The handler runs in the driver's own goroutine and must do minimal work.
type Edge interface {
	Enable(handler func()) error
	Disable() error
	Close() error
}

// PWM is a continuous waveform channel.
type PWM interface {
	// SetWaveform programs frequency and duty cycle (0-100 %).
	// A duty of 0 holds the line low.
	SetWaveform(f physic.Frequency, dutyPercent uint8) error

	// Close stops the waveform and releases the channel.
	Close() error
}

// Pulser emits one-shot pulses and reports completion by polling.
type Pulser interface {
	// Pulse starts a pulse of the given high and low durations.
	Pulse(high, low time.Duration) error

	// Done reports whether the last pulse has completed.
	Done() (bool, error)

	// Close releases the channel.
	Close() error
}

// Timer calls fn once per period until stopped.
type Timer interface {
	Start(period time.Duration, fn func()) error
	Stop() error
}

// Drive selects the output stage of a line.
type Drive int

const (
	PushPull Drive = iota
	OpenDrain
)

// Default BCM line offsets.
const (
	DefaultLineSync      = 17 // DUT synchronization input
	DefaultLineLogEnable = 27 // USB detect; high enables the line log
	DefaultLineLEDRun    = 5
	DefaultLineLEDSync   = 6
	DefaultLineLEDFault  = 26
)

// DefaultBankLines are the vane resistor lines for N, NE, E, SE, S, SW, W, NW.
var DefaultBankLines = []int{4, 22, 23, 24, 25, 16, 20, 21}

// Default periph pin names for the timer-driven channels.
const (
	DefaultPinSpeed     = "GPIO12" // PWM0
	DefaultPinDirection = "GPIO13" // PWM1, shared-duty variant only
	DefaultPinRainfall  = "GPIO19"
)
