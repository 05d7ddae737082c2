package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/weather-emulator/internal/simulation"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleState() simulation.State {
	return simulation.State{
		Ramp: simulation.RampState{
			PeakSpeed:          5,
			PeakDirectionIndex: 2,
			PeakRainfall:       5,
			Speed:              3,
			Rainfall:           1,
			Down:               true,
		},
		Direction: 45,
		ElapsedMs: 1800000,
		Running:   true,
		FirstSync: true,
		Armed:     true,
		Scenarios: 5,
		Steps:     600,
	}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker(start, Config{PollMs: 50, Broker: "tcp://localhost:1883", HTTPPort: ":80"})

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, int64(50), snap.Config.PollMs)
	assert.Equal(t, ":80", snap.Config.HTTPPort)
	assert.False(t, snap.Scenario.FirstSync)
	assert.False(t, snap.MQTTConnected)
	assert.Nil(t, snap.LastStep)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(sampleState())

	snap := tr.Snapshot()
	assert.Equal(t, sampleState(), snap.Scenario)
}

func TestSetLastStepIsCopied(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetLastStep(simulation.Report{Step: 7})

	snap := tr.Snapshot()
	require.NotNil(t, snap.LastStep)
	snap.LastStep.Step = 99

	assert.Equal(t, uint64(7), tr.Snapshot().LastStep.Step, "snapshot must not alias tracker state")
}

func TestSetErrorsAndConnection(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetErrors(ErrorInfo{Total: 3, Held: 2, Last: "rainfall: pulse timeout"})
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	assert.Equal(t, uint64(3), snap.Errors.Total)
	assert.True(t, snap.MQTTConnected)
	require.NotNil(t, snap.Network)
	assert.Equal(t, "192.168.1.42", snap.Network.IP)
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	assert.Equal(t, 15*time.Minute, snap.Uptime())
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(time.Hour) }
	assert.Equal(t, start.Add(time.Hour), tr.Snapshot().Now)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(sampleState())
				tr.SetLastStep(simulation.Report{Step: uint64(j)})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Scenario:      sampleState(),
		LastStep:      &simulation.Report{Timestamp: start.Add(time.Hour), Step: 600},
		Errors:        ErrorInfo{Total: 1, Held: 1, Last: "boom", LastTime: start.Add(time.Minute)},
		StartTime:     start,
		Now:           start.Add(time.Hour),
		MQTTConnected: true,
		Config:        Config{Variant: "bank", PeriodMs: 3001, Broker: "tcp://b:1883", Version: "1.0.0"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	s := parsed.Status

	assert.Empty(t, s.Event, "web JSON carries no event")
	assert.True(t, s.Running)
	assert.True(t, s.Synchronized)
	assert.Equal(t, int64(3600), s.UptimeSeconds)
	assert.Equal(t, "2026-01-01T01:00:00Z", s.Timestamp)
	assert.Equal(t, uint32(3), s.Scenario.WindSpeedKmh)
	assert.Equal(t, uint32(45), s.Scenario.WindDirectionDeg)
	assert.True(t, s.Scenario.RampDown)
	require.NotNil(t, s.LastStep)
	assert.Equal(t, uint64(600), s.LastStep.Step)
	assert.Equal(t, "2026-01-01T00:01:00Z", s.Errors.LastTime)
	assert.Equal(t, "bank", s.Config.Variant)
	assert.True(t, s.MQTT.Connected)
	assert.Equal(t, "tcp://b:1883", s.MQTT.Broker)
	assert.Nil(t, s.Network)
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start}
	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "SHUTDOWN", parsed["status"]["event"])
	assert.Equal(t, "SIGTERM", parsed["status"]["reason"])
	_, hasStep := parsed["status"]["last_step"]
	assert.False(t, hasStep, "last_step omitted before the first step")
}
