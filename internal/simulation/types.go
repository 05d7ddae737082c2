// Package simulation runs the weather test scenario.
//
// The scheduler owns all scenario state and is driven from a single
// foreground goroutine calling Process. The periodic timer and the DUT
// synchronization line only raise flags (see timebase and synchro).
// Time is never read directly: elapsed time comes from the period count
// and report timestamps from an injectable clock.
package simulation

import (
	"time"

	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/waveform"
)

// Config holds the scenario constants.
type Config struct {
	// Period is the scenario time quantum.
	Period time.Duration

	// WindSpeedMax and RainfallMax bound the peak amplitudes; peaks wrap
	// to 0 after reaching them.
	WindSpeedMax uint32
	RainfallMax  uint32

	// RainfallDelay is the time after a synchronization edge before rain
	// starts falling.
	RainfallDelay time.Duration

	// DebounceGuard is the time after an accepted edge during which
	// further edges are ignored.
	DebounceGuard time.Duration

	// FaultThreshold lights the fault LED when no edge was accepted for
	// this long.
	FaultThreshold time.Duration

	// Version is printed at the top of every log burst.
	Version string
}

// DefaultConfig returns the constants for the given variant.
func DefaultConfig(v waveform.Variant) Config {
	c := Config{
		Period:         3001 * time.Millisecond,
		WindSpeedMax:   120,
		RainfallMax:    100,
		RainfallDelay:  30 * time.Minute,
		DebounceGuard:  time.Minute,
		FaultThreshold: 65 * time.Minute,
		Version:        "0.0.0",
	}
	if v == waveform.VariantShared {
		c.Period = 6001 * time.Millisecond
	}
	return c
}

// Engine is the waveform engine as seen by the scheduler.
type Engine interface {
	Init() error
	DeInit() error
	SetWindSpeed(kmh uint32) error
	SetWindDirection(degrees uint32) error
	AddRainfallMM(mm uint32) error
	ResetRainfall()
	Table() []uint32
}

// LineSink receives the human-readable report burst.
type LineSink interface {
	Open() error
	WriteLine(line string) error
	Close() error
}

// Collaborators are the lines, timer and sinks the scheduler drives.
// LogEnable, the LEDs and Log are optional.
type Collaborators struct {
	Sync      hw.Edge
	Timer     hw.Timer
	LogEnable hw.Input
	LEDRun    hw.Output
	LEDSync   hw.Output
	LEDFault  hw.Output
	Log       LineSink

	// Now stamps reports. Defaults to time.Now.
	Now func() time.Time
}

// ChannelSetpoint is the physical target of the current step.
type ChannelSetpoint struct {
	SpeedKmh         uint32
	DirectionDegrees uint32
	RainfallMM       uint32
}

// RampState holds the scenario amplitudes and current values.
type RampState struct {
	PeakSpeed          uint32
	PeakDirectionIndex uint32
	PeakRainfall       uint32

	Speed    uint32
	Rainfall uint32

	// Down is true while the speed ramp is descending.
	Down bool
}

// State is a point-in-time view of the scheduler.
// It is a value type, safe to keep after Process returns.
type State struct {
	Ramp      RampState
	Direction uint32
	ElapsedMs uint32

	Running   bool
	FirstSync bool
	Armed     bool
	Pending   bool

	// Scenarios counts accepted synchronization edges, Steps completed periods.
	Scenarios uint64
	Steps     uint64
}

// Report describes one completed period step.
type Report struct {
	Timestamp    time.Time
	NewScenario  bool
	Scenario     uint64
	Step         uint64
	Setpoint     ChannelSetpoint
	PeakSpeed    uint32
	PeakRainfall uint32
	ElapsedMs    uint32
}
