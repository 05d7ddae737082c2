package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/logsink"
	"github.com/sweeney/weather-emulator/internal/mqtt"
	"github.com/sweeney/weather-emulator/internal/simulation"
	"github.com/sweeney/weather-emulator/internal/status"
	"github.com/sweeney/weather-emulator/internal/waveform"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// bench is the scheduler and waveform engine over fake hardware.
type bench struct {
	sync      *hw.FakeEdge
	timer     *hw.FakeTimer
	logEnable *hw.FakeInput
	speed     *hw.FakePWM
	dirPWM    *hw.FakePWM
	vane      []*hw.FakeOutput
	rain      *hw.FakePulser
	log       bytes.Buffer

	engine *waveform.Engine
	sched  *simulation.Scheduler
}

func newBench(t *testing.T, v waveform.Variant, cfg simulation.Config) *bench {
	t.Helper()
	b := &bench{
		sync:      &hw.FakeEdge{},
		timer:     &hw.FakeTimer{},
		logEnable: &hw.FakeInput{},
		speed:     &hw.FakePWM{},
		dirPWM:    &hw.FakePWM{},
		rain:      &hw.FakePulser{PollsPerPulse: 2},
	}

	var dir waveform.DirectionEncoder
	if v == waveform.VariantShared {
		dir = waveform.NewSharedDutyEncoder(b.dirPWM)
	} else {
		lines := make([]hw.Output, len(waveform.Bearings))
		for i := range lines {
			o := hw.NewFakeOutput(true)
			b.vane = append(b.vane, o)
			lines[i] = o
		}
		bank, err := waveform.NewBankEncoder(lines, waveform.ActiveLow)
		require.NoError(t, err)
		dir = bank
	}

	wcfg := waveform.DefaultConfig(v)
	wcfg.PulseHigh = time.Millisecond
	wcfg.PulseLow = time.Millisecond
	wcfg.PollInterval = 0
	b.engine = waveform.NewEngine(wcfg, b.speed, dir, b.rain)

	sink := logsink.New(func() (io.WriteCloser, error) { return nopCloser{&b.log}, nil })
	n := 0
	b.sched = simulation.NewScheduler(cfg, b.engine, simulation.Collaborators{
		Sync:      b.sync,
		Timer:     b.timer,
		LogEnable: b.logEnable,
		LEDRun:    hw.NewFakeOutput(false),
		LEDSync:   hw.NewFakeOutput(false),
		LEDFault:  hw.NewFakeOutput(false),
		Log:       sink,
		Now: func() time.Time {
			n++
			return start.Add(time.Duration(n) * time.Second)
		},
	})
	require.NoError(t, b.sched.Init())
	require.NoError(t, b.sched.Start())
	return b
}

// period elapses one period and runs the foreground once.
func (b *bench) period(t *testing.T) *simulation.Report {
	t.Helper()
	b.timer.Fire()
	r, err := b.sched.Process()
	require.NoError(t, err)
	return r
}

func benchConfig() simulation.Config {
	return simulation.Config{
		Period:         time.Second,
		WindSpeedMax:   2,
		RainfallMax:    2,
		RainfallDelay:  2 * time.Second,
		DebounceGuard:  2 * time.Second,
		FaultThreshold: 10 * time.Second,
		Version:        "1.2.3",
	}
}

// TestIntegrationScenarioRollover runs three DUT synchronizations through
// the bank variant and checks the peaks each scenario starts with.
func TestIntegrationScenarioRollover(t *testing.T) {
	b := newBench(t, waveform.VariantBank, benchConfig())
	table := b.engine.Table()

	assert.Nil(t, b.period(t), "no step before the first edge")

	b.sync.Trigger()
	b.sync.Trigger() // bounce, ignored
	r := b.period(t)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1), r.Scenario)
	assert.Equal(t, uint32(1), r.PeakSpeed)
	assert.Equal(t, table[0], r.Setpoint.DirectionDegrees)

	// Still inside the debounce guard.
	b.sync.Trigger()
	r = b.period(t)
	assert.Equal(t, uint64(1), r.Scenario)

	b.period(t)
	b.period(t) // guard elapsed, gate re-armed
	assert.True(t, b.sched.Snapshot().Armed)

	b.sync.Trigger()
	r = b.period(t)
	assert.Equal(t, uint64(2), r.Scenario)
	assert.True(t, r.NewScenario)
	assert.Equal(t, uint32(2), r.PeakSpeed)
	assert.Equal(t, uint32(2), r.PeakRainfall)
	assert.Equal(t, table[1], r.Setpoint.DirectionDegrees)

	for i := 0; i < 3; i++ {
		b.period(t)
	}
	b.sync.Trigger()
	r = b.period(t)
	assert.Equal(t, uint64(3), r.Scenario)
	assert.Equal(t, uint32(0), r.PeakSpeed, "peak wraps past the maximum")
	assert.Equal(t, uint32(0), r.Setpoint.SpeedKmh)
	assert.Equal(t, table[2], r.Setpoint.DirectionDegrees)
}

// TestIntegrationRainfall checks that the rainfall ramp emits bucket tips
// once the delay has passed and stops at the peak.
func TestIntegrationRainfall(t *testing.T) {
	cfg := benchConfig()
	cfg.RainfallMax = 5
	b := newBench(t, waveform.VariantBank, cfg)

	b.sync.Trigger()
	var rain []uint32
	for i := 0; i < 5; i++ {
		rain = append(rain, b.period(t).Setpoint.RainfallMM)
	}
	// Peak rainfall is 1 in the first scenario; elapsed is 0 on the first step.
	assert.Equal(t, []uint32{0, 0, 1, 1, 1}, rain)
	assert.Equal(t, 4, b.rain.Pulses)
	assert.Equal(t, uint64(4), b.engine.Pulses())
	assert.Zero(t, b.rain.Overlaps, "bucket tips never overlap")
}

// TestIntegrationSharedVariant checks that the shared variant encodes the
// direction as a duty cycle at the speed frequency.
func TestIntegrationSharedVariant(t *testing.T) {
	b := newBench(t, waveform.VariantShared, benchConfig())
	require.Len(t, b.engine.Table(), 36)

	b.sync.Trigger()
	r := b.period(t)
	require.NotNil(t, r)
	assert.Equal(t, uint32(1), r.Setpoint.SpeedKmh)
	assert.Equal(t, uint32(0), r.Setpoint.DirectionDegrees)

	p := waveform.SpeedParameters(1, waveform.SharedMetersPerHourPerHz)
	assert.Equal(t, hw.Waveform{Frequency: p.Frequency, DutyPercent: p.DutyPercent}, b.speed.Last())

	duty, err := waveform.SharedDutyPercent(0, p.DutyPercent)
	require.NoError(t, err)
	assert.Equal(t, hw.Waveform{Frequency: p.Frequency, DutyPercent: duty}, b.dirPWM.Last())
}

// TestIntegrationLogBurst checks the serial log text while the terminal
// is plugged in.
func TestIntegrationLogBurst(t *testing.T) {
	b := newBench(t, waveform.VariantBank, benchConfig())

	b.sync.Trigger()
	b.period(t)
	assert.Empty(t, b.log.String(), "log enable low")

	b.logEnable.Level = true
	b.sync.Trigger() // inside the guard, ignored
	b.period(t)

	want := "Version=sw1.2.3\r\n" +
		"Wind_speed=0km/h\r\n" +
		"Wind_speed_peak=1km/h\r\n" +
		"Wind_direction=0d\r\n" +
		"Rainfall=0mm\r\n" +
		"Rainfall_peak=1mm\r\n" +
		"\r\n"
	assert.Equal(t, want, b.log.String())
}

// TestIntegrationTelemetry follows one step through MQTT and the status
// tracker.
func TestIntegrationTelemetry(t *testing.T) {
	b := newBench(t, waveform.VariantBank, benchConfig())
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(start, status.Config{Variant: "bank", Version: "1.2.3"})

	b.sync.Trigger()
	r := b.period(t)
	require.NotNil(t, r)
	require.NoError(t, publisher.Publish(*r))
	tracker.SetLastStep(*r)
	tracker.Update(b.sched.Snapshot())

	require.Len(t, publisher.Payloads, 1)
	var p mqtt.Payload
	require.NoError(t, json.Unmarshal(publisher.Payloads[0], &p))
	assert.True(t, p.Scenario.NewScenario)
	assert.Equal(t, uint64(1), p.Scenario.Scenario)
	assert.Equal(t, uint64(1), p.Scenario.Step)
	assert.Equal(t, uint32(1), p.Scenario.WindSpeedKmh)
	assert.Equal(t, uint32(1), p.Scenario.RainfallPeakMM)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &sj))
	assert.True(t, sj.Status.Running)
	assert.True(t, sj.Status.Synchronized)
	assert.Equal(t, uint32(1), sj.Status.Scenario.WindSpeedKmh)
}

// TestIntegrationShutdown checks that DeInit stops the scenario and
// releases every line.
func TestIntegrationShutdown(t *testing.T) {
	b := newBench(t, waveform.VariantBank, benchConfig())
	b.sync.Trigger()
	b.period(t)

	require.NoError(t, b.sched.DeInit())
	assert.False(t, b.timer.Running)
	assert.True(t, b.sync.Closed)
	assert.True(t, b.logEnable.Closed)
	assert.True(t, b.speed.Closed)
	assert.True(t, b.rain.Closed)
	for i, o := range b.vane {
		assert.True(t, o.Closed, "vane %d", i)
	}

	// Edges after shutdown go nowhere.
	b.sync.Trigger()
	assert.False(t, b.sched.Snapshot().Pending)
}
