package waveform

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/sweeney/weather-emulator/internal/hw"
)

// Config holds the per-variant constants of the emulated module.
type Config struct {
	MetersPerHourPerHz uint32
	EdgeUM             uint32
	PulseHigh          time.Duration
	PulseLow           time.Duration

	// PollInterval is the pause between pulse completion checks.
	PollInterval time.Duration
}

// DefaultConfig returns the constants of the given variant.
func DefaultConfig(v Variant) Config {
	c := Config{
		MetersPerHourPerHz: BankMetersPerHourPerHz,
		EdgeUM:             RainfallEdgeUM,
		PulseHigh:          RainfallPulseWidth,
		PulseLow:           RainfallPulseWidth,
		PollInterval:       time.Millisecond,
	}
	if v == VariantShared {
		c.MetersPerHourPerHz = SharedMetersPerHourPerHz
	}
	return c
}

// Engine drives the speed, direction and rainfall channels.
// Not safe for concurrent use; the scheduler owns it.
type Engine struct {
	cfg       Config
	speed     hw.PWM
	direction DirectionEncoder
	rain      hw.Pulser

	realized Parameters

	rainTargetUM uint64
	rainAccumUM  uint64
	pulses       uint64
}

// NewEngine creates an engine over the given channels.
func NewEngine(cfg Config, speed hw.PWM, direction DirectionEncoder, rain hw.Pulser) *Engine {
	return &Engine{
		cfg:       cfg,
		speed:     speed,
		direction: direction,
		rain:      rain,
	}
}

// Init puts every channel in its idle state: speed held low, no vane
// resistor selected.
func (e *Engine) Init() error {
	e.ResetRainfall()
	if err := e.SetWindSpeed(0); err != nil {
		return err
	}
	if err := e.direction.Init(); err != nil {
		return fmt.Errorf("wind direction: %w", err)
	}
	return nil
}

// DeInit releases every channel, reporting all failures together.
func (e *Engine) DeInit() error {
	var errs []error
	if err := e.speed.Close(); err != nil {
		errs = append(errs, fmt.Errorf("wind speed: %w", err))
	}
	if err := e.direction.Close(); err != nil {
		errs = append(errs, fmt.Errorf("wind direction: %w", err))
	}
	if err := e.rain.Close(); err != nil {
		errs = append(errs, fmt.Errorf("rainfall: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// SetWindSpeed programs the anemometer output for kmh.
func (e *Engine) SetWindSpeed(kmh uint32) error {
	p := SpeedParameters(kmh, e.cfg.MetersPerHourPerHz)
	if err := e.speed.SetWaveform(p.Frequency, p.DutyPercent); err != nil {
		return fmt.Errorf("wind speed: %w", err)
	}
	e.realized = p
	logger.Debugf("wind speed %d km/h -> %v duty %d%%", kmh, p.Frequency, p.DutyPercent)
	return nil
}

// SetWindDirection programs the vane output for degrees.
func (e *Engine) SetWindDirection(degrees uint32) error {
	if degrees >= FullCircleDegrees {
		return ErrWindDirection
	}
	if err := e.direction.Encode(degrees, e.realized); err != nil {
		return fmt.Errorf("wind direction: %w", err)
	}
	return nil
}

// AddRainfallMM raises the rainfall target by mm and emits bucket tips
// until the emitted depth reaches it. Tips are strictly serialized: each
// one completes before the next starts. Blocks for the whole burst.
// A failed burst leaves the target unchanged; tips already emitted still
// count toward the next call.
func (e *Engine) AddRainfallMM(mm uint32) error {
	if e.cfg.EdgeUM == 0 {
		return errors.New("rainfall: zero depth per pulse")
	}
	prev := e.rainTargetUM
	e.rainTargetUM += uint64(mm) * 1000
	for e.rainAccumUM < e.rainTargetUM {
		if err := e.rain.Pulse(e.cfg.PulseHigh, e.cfg.PulseLow); err != nil {
			e.rainTargetUM = prev
			return fmt.Errorf("rainfall: %w", err)
		}
		e.rainAccumUM += uint64(e.cfg.EdgeUM)
		e.pulses++
		if err := e.waitPulse(); err != nil {
			e.rainTargetUM = prev
			return fmt.Errorf("rainfall: %w", err)
		}
	}
	return nil
}

// ResetRainfall clears the rainfall target and emitted depth.
func (e *Engine) ResetRainfall() {
	e.rainTargetUM = 0
	e.rainAccumUM = 0
}

// Table returns the direction bearings of the configured encoder.
func (e *Engine) Table() []uint32 {
	return e.direction.Table()
}

// Speed returns the waveform last realized on the speed channel.
func (e *Engine) Speed() Parameters {
	return e.realized
}

// Pulses returns the number of bucket tips emitted since the engine was
// created. It never decreases.
func (e *Engine) Pulses() uint64 {
	return e.pulses
}
