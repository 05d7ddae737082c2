package hw

import (
	"errors"
	"sync"
	"time"
)

// Ticker is a Timer backed by time.Ticker. The callback runs in the
// ticker's goroutine.
type Ticker struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTicker creates a stopped Ticker.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Start begins calling fn every period.
func (t *Ticker) Start(period time.Duration, fn func()) error {
	if period <= 0 {
		return errors.New("timer: period must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return errors.New("timer: already running")
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		tk := time.NewTicker(period)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				fn()
			}
		}
	}(t.stop, t.done)
	return nil
}

// Stop halts the timer and waits for the goroutine to exit.
// Stopping a stopped timer is a no-op.
func (t *Ticker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return nil
	}
	close(t.stop)
	<-t.done
	t.stop = nil
	t.done = nil
	return nil
}
