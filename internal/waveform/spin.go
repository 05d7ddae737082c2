package waveform

import (
	"errors"
	"time"
)

// ErrPulseTimeout is returned when the pulse driver never reports completion.
var ErrPulseTimeout = errors.New("pulse did not complete")

// waitPulse polls the rainfall channel until the current pulse completes.
// A pulse still in flight is not an error; one that outlives four pulse
// periods is.
func (e *Engine) waitPulse() error {
	limit := 4 * (e.cfg.PulseHigh + e.cfg.PulseLow)
	return spinUntil(e.rain.Done, e.cfg.PollInterval, limit)
}

func spinUntil(done func() (bool, error), poll, limit time.Duration) error {
	start := time.Now()
	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Since(start) > limit {
			return ErrPulseTimeout
		}
		time.Sleep(poll)
	}
}
