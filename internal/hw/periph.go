package hw

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// InitHost loads the periph.io host drivers. Must be called once before
// NewPWM or NewPulser.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph host: %w", err)
	}
	return nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found", name)
	}
	return p, nil
}

// PinPWM is a hardware PWM channel on a periph.io pin.
type PinPWM struct {
	pin gpio.PinIO
}

// NewPWM looks up the named pin and holds it low.
func NewPWM(name string) (*PinPWM, error) {
	p, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("pwm %s: %w", name, err)
	}
	return &PinPWM{pin: p}, nil
}

// SetWaveform programs the pin. A duty of 0 holds the line low.
func (p *PinPWM) SetWaveform(f physic.Frequency, dutyPercent uint8) error {
	if dutyPercent > 100 {
		return fmt.Errorf("pwm %s: duty %d%% out of range", p.pin, dutyPercent)
	}
	if dutyPercent == 0 {
		return p.pin.Out(gpio.Low)
	}
	duty := gpio.DutyMax * gpio.Duty(dutyPercent) / 100
	if err := p.pin.PWM(duty, f); err != nil {
		return fmt.Errorf("pwm %s: %w", p.pin, err)
	}
	return nil
}

// Close stops the waveform and leaves the pin low.
func (p *PinPWM) Close() error {
	if err := p.pin.Halt(); err != nil {
		return fmt.Errorf("halt %s: %w", p.pin, err)
	}
	return p.pin.Out(gpio.Low)
}

// PinPulser emits single pulses on a periph.io pin from a helper goroutine.
type PinPulser struct {
	pin      gpio.PinIO
	inFlight atomic.Bool

	mu  sync.Mutex
	err error
}

// NewPulser looks up the named pin and holds it low.
func NewPulser(name string) (*PinPulser, error) {
	p, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("pulser %s: %w", name, err)
	}
	return &PinPulser{pin: p}, nil
}

// Pulse drives the pin high for high, then low for low.
func (p *PinPulser) Pulse(high, low time.Duration) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()

	go func() {
		defer p.inFlight.Store(false)
		if err := p.pin.Out(gpio.High); err != nil {
			p.setErr(err)
			return
		}
		time.Sleep(high)
		if err := p.pin.Out(gpio.Low); err != nil {
			p.setErr(err)
			return
		}
		time.Sleep(low)
	}()
	return nil
}

func (p *PinPulser) setErr(err error) {
	p.mu.Lock()
	p.err = fmt.Errorf("pulser %s: %w", p.pin, err)
	p.mu.Unlock()
}

// Done reports whether the last pulse completed, and any error it hit.
func (p *PinPulser) Done() (bool, error) {
	if p.inFlight.Load() {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return true, p.err
}

// Close leaves the pin low.
func (p *PinPulser) Close() error {
	return p.pin.Out(gpio.Low)
}
