//go:build !linux

package hw

import "errors"

var errUnsupported = errors.New("hw: gpio not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Close is a no-op on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// Line is not available on non-Linux platforms.
type Line struct{}

// Output returns an error on non-Linux platforms.
func (c *Chip) Output(offset int, drive Drive, initial bool) (*Line, error) {
	return nil, errUnsupported
}

// Input returns an error on non-Linux platforms.
func (c *Chip) Input(offset int) (*Line, error) {
	return nil, errUnsupported
}

func (l *Line) Write(high bool) error { return errUnsupported }
func (l *Line) Toggle() error         { return errUnsupported }
func (l *Line) Read() (bool, error)   { return false, errUnsupported }
func (l *Line) Close() error          { return nil }

// EdgeLine is not available on non-Linux platforms.
type EdgeLine struct{}

// RisingEdge returns an error on non-Linux platforms.
func (c *Chip) RisingEdge(offset int) (*EdgeLine, error) {
	return nil, errUnsupported
}

func (e *EdgeLine) Enable(handler func()) error { return errUnsupported }
func (e *EdgeLine) Disable() error              { return nil }
func (e *EdgeLine) Close() error                { return nil }
