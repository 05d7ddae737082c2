// Package mqtt publishes scenario steps and lifecycle events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/weather-emulator/internal/simulation"
)

// Topic is the MQTT topic for scenario steps.
const Topic = "test/weather-emulator/scenario"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "test/weather-emulator/system"

// Lifecycle event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes scenario telemetry.
type Publisher interface {
	// Publish sends one scenario step report.
	// Returns error if publishing fails (should not stop the scenario).
	Publish(report simulation.Report) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it as is
	Retained   bool
}

// Payload is the JSON envelope of a scenario step.
type Payload struct {
	Scenario ScenarioPayload `json:"scenario"`
}

// ScenarioPayload contains the step details.
type ScenarioPayload struct {
	Timestamp        string `json:"timestamp"`
	Scenario         uint64 `json:"scenario"`
	Step             uint64 `json:"step"`
	NewScenario      bool   `json:"new_scenario"`
	WindSpeedKmh     uint32 `json:"wind_speed_kmh"`
	WindSpeedPeakKmh uint32 `json:"wind_speed_peak_kmh"`
	WindDirectionDeg uint32 `json:"wind_direction_deg"`
	RainfallMM       uint32 `json:"rainfall_mm"`
	RainfallPeakMM   uint32 `json:"rainfall_peak_mm"`
	ElapsedMs        uint32 `json:"elapsed_ms"`
}

// FormatPayload creates the JSON payload for a scenario step.
func FormatPayload(r simulation.Report) ([]byte, error) {
	return json.Marshal(Payload{
		Scenario: ScenarioPayload{
			Timestamp:        r.Timestamp.UTC().Format(time.RFC3339),
			Scenario:         r.Scenario,
			Step:             r.Step,
			NewScenario:      r.NewScenario,
			WindSpeedKmh:     r.Setpoint.SpeedKmh,
			WindSpeedPeakKmh: r.PeakSpeed,
			WindDirectionDeg: r.Setpoint.DirectionDegrees,
			RainfallMM:       r.Setpoint.RainfallMM,
			RainfallPeakMM:   r.PeakRainfall,
			ElapsedMs:        r.ElapsedMs,
		},
	})
}

// SystemPayload is the payload for events that don't carry a status
// snapshot (last will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
