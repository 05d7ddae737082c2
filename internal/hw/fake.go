package hw

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// FakeOutput is a test double that records every level written.
type FakeOutput struct {
	// Level is the current line level.
	Level bool

	// Writes contains every level written, including toggles.
	Writes []bool

	// WriteError, if set, will be returned by Write and Toggle.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput at the given initial level.
func NewFakeOutput(initial bool) *FakeOutput {
	return &FakeOutput{Level: initial}
}

// Write records the level.
func (f *FakeOutput) Write(high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Level = high
	f.Writes = append(f.Writes, high)
	return nil
}

// Toggle inverts the current level.
func (f *FakeOutput) Toggle() error {
	return f.Write(!f.Level)
}

// Close marks the line as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// FakeInput returns a scripted level.
type FakeInput struct {
	Level     bool
	ReadError error
	Closed    bool
}

// Read returns Level.
func (f *FakeInput) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.Level, nil
}

// Close marks the line as closed.
func (f *FakeInput) Close() error {
	f.Closed = true
	return nil
}

// FakeEdge lets tests raise the interrupt by hand.
type FakeEdge struct {
	handler func()

	// EnableError, if set, will be returned by Enable.
	EnableError error

	Closed bool
}

// Enable installs the handler.
func (f *FakeEdge) Enable(handler func()) error {
	if f.EnableError != nil {
		return f.EnableError
	}
	f.handler = handler
	return nil
}

// Disable removes the handler; later triggers are lost.
func (f *FakeEdge) Disable() error {
	f.handler = nil
	return nil
}

// Enabled reports whether a handler is installed.
func (f *FakeEdge) Enabled() bool {
	return f.handler != nil
}

// Trigger simulates a rising edge on the line.
func (f *FakeEdge) Trigger() {
	if f.handler != nil {
		f.handler()
	}
}

// Close disables the interrupt.
func (f *FakeEdge) Close() error {
	f.handler = nil
	f.Closed = true
	return nil
}

// Waveform is one programmed PWM setting.
type Waveform struct {
	Frequency   physic.Frequency
	DutyPercent uint8
}

// FakePWM records programmed waveforms.
type FakePWM struct {
	// Waveforms contains every waveform programmed, oldest first.
	Waveforms []Waveform

	// SetError, if set, will be returned by SetWaveform.
	SetError error

	Closed bool
}

// SetWaveform records the waveform.
func (f *FakePWM) SetWaveform(freq physic.Frequency, dutyPercent uint8) error {
	if f.SetError != nil {
		return f.SetError
	}
	if dutyPercent > 100 {
		return errors.New("duty cycle out of range")
	}
	f.Waveforms = append(f.Waveforms, Waveform{Frequency: freq, DutyPercent: dutyPercent})
	return nil
}

// Last returns the most recent waveform, or the zero value if none.
func (f *FakePWM) Last() Waveform {
	if len(f.Waveforms) == 0 {
		return Waveform{}
	}
	return f.Waveforms[len(f.Waveforms)-1]
}

// Close marks the channel as closed.
func (f *FakePWM) Close() error {
	f.Closed = true
	return nil
}

// FakePulser counts pulses. Each pulse reports Done only after
// PollsPerPulse calls to Done, which exercises the caller's wait loop.
type FakePulser struct {
	// Pulses is the number of pulses started.
	Pulses int

	// High and Low are the durations of the last pulse.
	High, Low time.Duration

	// PollsPerPulse is the number of Done calls returning false before
	// a pulse completes.
	PollsPerPulse int

	// PulseError, if set, will be returned by Pulse.
	PulseError error

	// Stuck makes every pulse stay in flight forever.
	Stuck bool

	// Overlaps counts pulses started while another was in flight.
	Overlaps int

	remaining int
	inFlight  bool
	Closed    bool
}

// Pulse starts a pulse.
func (f *FakePulser) Pulse(high, low time.Duration) error {
	if f.PulseError != nil {
		return f.PulseError
	}
	if f.inFlight {
		f.Overlaps++
		return ErrBusy
	}
	f.Pulses++
	f.High, f.Low = high, low
	f.remaining = f.PollsPerPulse
	f.inFlight = true
	return nil
}

// Done reports pulse completion after the configured number of polls.
func (f *FakePulser) Done() (bool, error) {
	if !f.inFlight {
		return true, nil
	}
	if f.Stuck {
		return false, nil
	}
	if f.remaining > 0 {
		f.remaining--
		return false, nil
	}
	f.inFlight = false
	return true, nil
}

// Close marks the channel as closed.
func (f *FakePulser) Close() error {
	f.Closed = true
	return nil
}

// FakeTimer is a periodic timer fired by hand.
type FakeTimer struct {
	Period  time.Duration
	Running bool

	// StartError, if set, will be returned by Start.
	StartError error

	fn func()
}

// Start records the period and callback.
func (f *FakeTimer) Start(period time.Duration, fn func()) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.Period = period
	f.fn = fn
	f.Running = true
	return nil
}

// Stop stops the timer; later Fire calls are ignored.
func (f *FakeTimer) Stop() error {
	f.Running = false
	return nil
}

// Fire simulates one period elapsing.
func (f *FakeTimer) Fire() {
	if f.Running && f.fn != nil {
		f.fn()
	}
}
