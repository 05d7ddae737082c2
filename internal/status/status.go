// Package status provides a thread-safe status tracker for the emulator
// daemon. It is read by the HTTP handlers and the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/weather-emulator/internal/simulation"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Variant     string
	PeriodMs    int64
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	LogDevice   string
	Version     string
}

// ErrorInfo summarizes the diagnostic stack.
type ErrorInfo struct {
	Total    uint64
	Held     int
	Last     string
	LastTime time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Scenario      simulation.State
	LastStep      *simulation.Report
	Errors        ErrorInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the scheduler state. Called from the run loop on every tick.
func (t *Tracker) Update(state simulation.State) {
	t.mu.Lock()
	t.snap.Scenario = state
	t.mu.Unlock()
}

// SetLastStep records the most recent scenario step.
func (t *Tracker) SetLastStep(r simulation.Report) {
	t.mu.Lock()
	t.snap.LastStep = &r
	t.mu.Unlock()
}

// SetErrors records the diagnostic stack summary.
func (t *Tracker) SetErrors(info ErrorInfo) {
	t.mu.Lock()
	t.snap.Errors = info
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastStep != nil {
		step := *s.LastStep
		s.LastStep = &step
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
