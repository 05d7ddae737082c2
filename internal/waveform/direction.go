package waveform

import (
	"fmt"

	"github.com/sweeney/weather-emulator/internal/hw"
)

// DirectionEncoder realizes a wind direction on the vane output.
// One encoder is chosen per variant when the engine is built.
type DirectionEncoder interface {
	// Init puts the output in its idle state.
	Init() error

	// Encode programs degrees. speed is the waveform last realized on the
	// speed channel.
	Encode(degrees uint32, speed Parameters) error

	// Table returns the ordered compass bearings a scenario steps through.
	Table() []uint32

	// Close releases the output.
	Close() error
}

// Polarity is the output level that selects a vane resistor.
type Polarity string

const (
	ActiveLow  Polarity = "active-low"
	ActiveHigh Polarity = "active-high"
)

// bankTable has one entry per resistor and one between each pair.
var bankTable = []uint32{0, 22, 45, 67, 90, 112, 135, 157, 180, 202, 225, 247, 270, 292, 315, 337}

// BankEncoder switches the eight vane resistors of a SEN15901.
type BankEncoder struct {
	lines     [8]hw.Output
	polarity  Polarity
	tolerance uint32
}

// NewBankEncoder creates an encoder over lines ordered as Bearings.
func NewBankEncoder(lines []hw.Output, polarity Polarity) (*BankEncoder, error) {
	if len(lines) != len(Bearings) {
		return nil, fmt.Errorf("vane bank needs %d lines, got %d", len(Bearings), len(lines))
	}
	if polarity != ActiveLow && polarity != ActiveHigh {
		return nil, fmt.Errorf("unknown polarity %q", polarity)
	}
	b := &BankEncoder{polarity: polarity, tolerance: BankTolerance}
	copy(b.lines[:], lines)
	return b, nil
}

func (b *BankEncoder) level(selected bool) bool {
	if b.polarity == ActiveHigh {
		return selected
	}
	return !selected
}

// Init deselects every resistor.
func (b *BankEncoder) Init() error {
	for i, l := range b.lines {
		if err := l.Write(b.level(false)); err != nil {
			return fmt.Errorf("vane %d: %w", Bearings[i], err)
		}
	}
	return nil
}

// Encode selects the resistors whose window contains degrees.
func (b *BankEncoder) Encode(degrees uint32, _ Parameters) error {
	sel, err := BankSelection(degrees, b.tolerance)
	if err != nil {
		return err
	}
	for i, l := range b.lines {
		if err := l.Write(b.level(sel[i])); err != nil {
			return fmt.Errorf("vane %d: %w", Bearings[i], err)
		}
	}
	return nil
}

// Table returns the 16 bearings resolvable by the bank.
func (b *BankEncoder) Table() []uint32 {
	return bankTable
}

// Close releases every line, reporting all failures together.
func (b *BankEncoder) Close() error {
	var errs []error
	for i, l := range b.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vane %d: %w", Bearings[i], err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// SharedDutyEncoder encodes direction as the duty cycle of a second
// channel of the speed timer.
type SharedDutyEncoder struct {
	pwm   hw.PWM
	table []uint32
}

// NewSharedDutyEncoder creates an encoder on the direction channel.
func NewSharedDutyEncoder(pwm hw.PWM) *SharedDutyEncoder {
	table := make([]uint32, 0, FullCircleDegrees/10)
	for d := uint32(0); d < FullCircleDegrees; d += 10 {
		table = append(table, d)
	}
	return &SharedDutyEncoder{pwm: pwm, table: table}
}

// Init holds the direction channel low.
func (s *SharedDutyEncoder) Init() error {
	return s.pwm.SetWaveform(SpeedParameters(0, SharedMetersPerHourPerHz).Frequency, 0)
}

// Encode programs the direction duty at the speed channel's frequency.
func (s *SharedDutyEncoder) Encode(degrees uint32, speed Parameters) error {
	duty, err := SharedDutyPercent(degrees, speed.DutyPercent)
	if err != nil {
		return err
	}
	return s.pwm.SetWaveform(speed.Frequency, duty)
}

// Table returns bearings at 10 degree steps.
func (s *SharedDutyEncoder) Table() []uint32 {
	return s.table
}

// Close releases the channel.
func (s *SharedDutyEncoder) Close() error {
	return s.pwm.Close()
}
