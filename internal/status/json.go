package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Running       bool         `json:"running"`
	Synchronized  bool         `json:"synchronized"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Scenario      ScenarioJSON `json:"scenario"`
	LastStep      *StepJSON    `json:"last_step,omitempty"`
	Errors        ErrorsJSON   `json:"errors"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ScenarioJSON is the JSON representation of the scheduler state.
type ScenarioJSON struct {
	Scenarios        uint64 `json:"scenarios"`
	Steps            uint64 `json:"steps"`
	ElapsedMs        uint32 `json:"elapsed_ms"`
	Armed            bool   `json:"armed"`
	WindSpeedKmh     uint32 `json:"wind_speed_kmh"`
	WindSpeedPeakKmh uint32 `json:"wind_speed_peak_kmh"`
	RampDown         bool   `json:"ramp_down"`
	WindDirectionDeg uint32 `json:"wind_direction_deg"`
	RainfallMM       uint32 `json:"rainfall_mm"`
	RainfallPeakMM   uint32 `json:"rainfall_peak_mm"`
}

// StepJSON describes the last completed step.
type StepJSON struct {
	Timestamp   string `json:"timestamp"`
	Step        uint64 `json:"step"`
	NewScenario bool   `json:"new_scenario"`
}

// ErrorsJSON summarizes the diagnostic stack.
type ErrorsJSON struct {
	Total    uint64 `json:"total"`
	Held     int    `json:"held"`
	Last     string `json:"last,omitempty"`
	LastTime string `json:"last_time,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Variant     string `json:"variant"`
	Version     string `json:"version"`
	PeriodMs    int64  `json:"period_ms"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	LogDevice   string `json:"log_device,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	sc := snap.Scenario
	inner := StatusInner{
		Running:       sc.Running,
		Synchronized:  sc.FirstSync,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Scenario: ScenarioJSON{
			Scenarios:        sc.Scenarios,
			Steps:            sc.Steps,
			ElapsedMs:        sc.ElapsedMs,
			Armed:            sc.Armed,
			WindSpeedKmh:     sc.Ramp.Speed,
			WindSpeedPeakKmh: sc.Ramp.PeakSpeed,
			RampDown:         sc.Ramp.Down,
			WindDirectionDeg: sc.Direction,
			RainfallMM:       sc.Ramp.Rainfall,
			RainfallPeakMM:   sc.Ramp.PeakRainfall,
		},
		Errors: ErrorsJSON{
			Total: snap.Errors.Total,
			Held:  snap.Errors.Held,
			Last:  snap.Errors.Last,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Variant:     snap.Config.Variant,
			Version:     snap.Config.Version,
			PeriodMs:    snap.Config.PeriodMs,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			LogDevice:   snap.Config.LogDevice,
		},
	}
	if !snap.Errors.LastTime.IsZero() {
		inner.Errors.LastTime = snap.Errors.LastTime.UTC().Format(time.RFC3339)
	}
	if snap.LastStep != nil {
		inner.LastStep = &StepJSON{
			Timestamp:   snap.LastStep.Timestamp.UTC().Format(time.RFC3339),
			Step:        snap.LastStep.Step,
			NewScenario: snap.LastStep.NewScenario,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
