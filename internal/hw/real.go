//go:build linux

package hw

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// Chip opens lines on a Linux GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Close releases the chip. Lines must be closed first.
func (c *Chip) Close() error {
	return c.chip.Close()
}

// Line is a requested GPIO line used as an Output or an Input.
type Line struct {
	line   *gpiocdev.Line
	offset int
	level  bool
}

// Output requests a line as an output at the given initial level.
func (c *Chip) Output(offset int, drive Drive, initial bool) (*Line, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(levelToValue(initial))}
	if drive == OpenDrain {
		opts = append(opts, gpiocdev.AsOpenDrain)
	} else {
		opts = append(opts, gpiocdev.AsPushPull)
	}
	l, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	return &Line{line: l, offset: offset, level: initial}, nil
}

// Input requests a line as an input with bias disabled.
func (c *Chip) Input(offset int) (*Line, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
	if err != nil {
		return nil, fmt.Errorf("request input line %d: %w", offset, err)
	}
	return &Line{line: l, offset: offset}, nil
}

// Write sets the line level.
func (l *Line) Write(high bool) error {
	if err := l.line.SetValue(levelToValue(high)); err != nil {
		return fmt.Errorf("write line %d: %w", l.offset, err)
	}
	l.level = high
	return nil
}

// Toggle inverts the last written level.
func (l *Line) Toggle() error {
	return l.Write(!l.level)
}

// Read returns the line level.
func (l *Line) Read() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", l.offset, err)
	}
	return v != 0, nil
}

// Close returns the line to an input with pull-down (Pi boot default)
// before releasing it, so nothing is left driven during reboot.
func (l *Line) Close() error {
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.offset, err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", l.offset, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EdgeLine delivers rising edges of an input line to a handler.
type EdgeLine struct {
	line    *gpiocdev.Line
	offset  int
	handler atomic.Pointer[func()]
}

// RisingEdge requests a line with rising-edge detection. Events are
// dropped until Enable is called.
func (c *Chip) RisingEdge(offset int) (*EdgeLine, error) {
	e := &EdgeLine{offset: offset}
	l, err := c.chip.RequestLine(offset,
		gpiocdev.WithBiasDisabled,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(e.onEvent))
	if err != nil {
		return nil, fmt.Errorf("request edge line %d: %w", offset, err)
	}
	e.line = l
	return e, nil
}

func (e *EdgeLine) onEvent(gpiocdev.LineEvent) {
	if h := e.handler.Load(); h != nil {
		(*h)()
	}
}

// Enable installs the handler.
func (e *EdgeLine) Enable(handler func()) error {
	e.handler.Store(&handler)
	return nil
}

// Disable drops further events.
func (e *EdgeLine) Disable() error {
	e.handler.Store(nil)
	return nil
}

// Close disables the handler and releases the line.
func (e *EdgeLine) Close() error {
	e.handler.Store(nil)
	if err := e.line.Close(); err != nil {
		return fmt.Errorf("close edge line %d: %w", e.offset, err)
	}
	return nil
}

func levelToValue(high bool) int {
	if high {
		return 1
	}
	return 0
}
