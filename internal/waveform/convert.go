// Package waveform converts physical weather quantities into the timed
// signals a SEN15901-style (or Ultimeter-style) sensor module produces,
// and programs them into the hw collaborators.
//
// The conversions are exposed as pure functions so their results can be
// checked without hardware; Engine applies them to the channels.
package waveform

import (
	"errors"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Variant selects the emulated sensor module.
type Variant string

const (
	// VariantBank drives a dedicated speed channel and an 8-resistor vane bank (SEN15901).
	VariantBank Variant = "bank"
	// VariantShared shares one timer between speed and direction (Ultimeter).
	VariantShared Variant = "shared"
)

// Sensor constants.
const (
	FullCircleDegrees = 360

	// BankTolerance is the half-width of each vane resistor window.
	BankTolerance = 34

	// RainfallEdgeUM is the rain depth represented by one bucket tip.
	RainfallEdgeUM = 279

	// RainfallPulseWidth is the high and the low time of one bucket tip.
	RainfallPulseWidth = 100 * time.Millisecond

	// Anemometer output: metres per hour of wind for each hertz.
	BankMetersPerHourPerHz   = 2400
	SharedMetersPerHourPerHz = 3948

	speedDutyPercent = 50
)

// ErrWindDirection is returned for a direction outside [0, 360).
var ErrWindDirection = errors.New("wind direction out of range")

// Parameters are the timed-signal values derived for one channel.
// They are recomputed on every call and never stored beyond the engine's
// last realized speed.
type Parameters struct {
	Frequency   physic.Frequency
	DutyPercent uint8
	PulseWidth  time.Duration
	PulseCount  uint32
}

// maxMicroHertz is the largest frequency, in µHz, a physic.Frequency holds.
const maxMicroHertz = uint64(math.MaxInt64 / int64(physic.MicroHertz))

// SpeedParameters converts a wind speed into a PWM setting, at
// micro-hertz resolution. A speed that rounds to no frequency at all is
// held low at 1 Hz rather than programming a zero frequency. Frequencies
// beyond the physic.Frequency range saturate.
func SpeedParameters(kmh, metersPerHourPerHz uint32) Parameters {
	if metersPerHourPerHz == 0 {
		return Parameters{Frequency: physic.Hertz}
	}
	// Fits in uint64 for every uint32 speed.
	uhz := uint64(kmh) * 1000 * 1000000 / uint64(metersPerHourPerHz)
	if uhz == 0 {
		return Parameters{Frequency: physic.Hertz, DutyPercent: 0}
	}
	if uhz > maxMicroHertz {
		uhz = maxMicroHertz
	}
	return Parameters{Frequency: physic.Frequency(uhz) * physic.MicroHertz, DutyPercent: speedDutyPercent}
}

// Bearings of the eight vane resistors, N first, clockwise.
var Bearings = [8]uint32{0, 45, 90, 135, 180, 225, 270, 315}

type window struct {
	min, max uint32
}

func bearingWindow(bearing, tolerance uint32) window {
	lo := int32(bearing) - int32(tolerance)
	if lo < 0 {
		lo += FullCircleDegrees
	}
	hi := int32(bearing) + int32(tolerance)
	if hi > FullCircleDegrees {
		hi -= FullCircleDegrees
	}
	return window{min: uint32(lo), max: uint32(hi)}
}

// contains uses strict inequality on both bounds. A window that wraps
// through north is the union of (min, 360) and [0, max).
func (w window) contains(degrees uint32) bool {
	if w.min < w.max {
		return degrees > w.min && degrees < w.max
	}
	return degrees > w.min || degrees < w.max
}

// BankSelection reports, per entry of Bearings, whether the resistor
// window contains degrees.
func BankSelection(degrees, tolerance uint32) ([8]bool, error) {
	var sel [8]bool
	if degrees >= FullCircleDegrees {
		return sel, ErrWindDirection
	}
	for i, b := range Bearings {
		sel[i] = bearingWindow(b, tolerance).contains(degrees)
	}
	return sel, nil
}

// SharedDutyPercent encodes a direction as the duty cycle of the
// direction channel relative to the speed channel's duty. A result of 0
// is reported as 1 so the channel never looks inactive.
func SharedDutyPercent(degrees uint32, speedDuty uint8) (uint8, error) {
	if degrees >= FullCircleDegrees {
		return 0, ErrWindDirection
	}
	pct := degrees * 100 / FullCircleDegrees
	duty := (uint32(speedDuty) + 100 - pct) % 100
	if duty == 0 {
		duty = 1
	}
	return uint8(duty), nil
}

// RainfallPulses returns the number of bucket tips needed to cover depthUM.
func RainfallPulses(depthUM uint64, edgeUM uint32) uint64 {
	if edgeUM == 0 {
		return 0
	}
	e := uint64(edgeUM)
	return (depthUM + e - 1) / e
}
