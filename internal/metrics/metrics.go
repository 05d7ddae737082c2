// Package metrics exposes the emulated channel setpoints and scenario
// counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/weather-emulator/internal/simulation"
)

// Namespace prefixes every metric name.
const Namespace = "weather_emulator"

// Metrics holds the collectors on a private registry.
// Observe methods are called from the run loop only.
type Metrics struct {
	registry *prometheus.Registry

	windSpeed     prometheus.Gauge
	windSpeedPeak prometheus.Gauge
	windDirection prometheus.Gauge
	rainfall      prometheus.Gauge
	rainfallPeak  prometheus.Gauge
	elapsed       prometheus.Gauge
	synchronized  prometheus.Gauge
	armed         prometheus.Gauge

	scenarios prometheus.Counter
	steps     prometheus.Counter
	pulses    prometheus.Counter
	errors    prometheus.Counter

	lastScenarios uint64
	lastSteps     uint64
	lastPulses    uint64
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help})
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help})
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		windSpeed:     gauge("wind_speed_kmh", "Emulated wind speed km/h"),
		windSpeedPeak: gauge("wind_speed_peak_kmh", "Peak wind speed of the current scenario km/h"),
		windDirection: gauge("wind_direction_degrees", "Emulated wind direction Deg"),
		rainfall:      gauge("rainfall_mm", "Rainfall emitted in the current scenario mm"),
		rainfallPeak:  gauge("rainfall_peak_mm", "Peak rainfall of the current scenario mm"),
		elapsed:       gauge("scenario_elapsed_seconds", "Time since the last accepted DUT synchronization"),
		synchronized:  gauge("synchronized", "1 once the DUT has synchronized at least once"),
		armed:         gauge("sync_armed", "1 while the next DUT edge would be accepted"),

		scenarios: counter("scenarios_total", "Accepted DUT synchronization edges"),
		steps:     counter("steps_total", "Completed scenario steps"),
		pulses:    counter("rainfall_pulses_total", "Rain gauge bucket tips emitted"),
		errors:    counter("errors_total", "Errors pushed to the diagnostic stack"),
	}
	m.registry.MustRegister(
		m.windSpeed,
		m.windSpeedPeak,
		m.windDirection,
		m.rainfall,
		m.rainfallPeak,
		m.elapsed,
		m.synchronized,
		m.armed,
		m.scenarios,
		m.steps,
		m.pulses,
		m.errors,
	)
	return m
}

// ObserveStep records the setpoints of a completed step.
func (m *Metrics) ObserveStep(r simulation.Report) {
	m.windSpeed.Set(float64(r.Setpoint.SpeedKmh))
	m.windDirection.Set(float64(r.Setpoint.DirectionDegrees))
	m.rainfall.Set(float64(r.Setpoint.RainfallMM))
	m.windSpeedPeak.Set(float64(r.PeakSpeed))
	m.rainfallPeak.Set(float64(r.PeakRainfall))
}

// ObserveState records the scheduler state.
func (m *Metrics) ObserveState(s simulation.State) {
	m.elapsed.Set(float64(s.ElapsedMs) / 1000)
	m.synchronized.Set(boolToFloat(s.FirstSync))
	m.armed.Set(boolToFloat(s.Armed))
	advance(m.scenarios, &m.lastScenarios, s.Scenarios)
	advance(m.steps, &m.lastSteps, s.Steps)
}

// ObservePulses records the engine's running pulse total.
func (m *Metrics) ObservePulses(total uint64) {
	advance(m.pulses, &m.lastPulses, total)
}

// ObserveError counts one diagnostic error.
func (m *Metrics) ObserveError() {
	m.errors.Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// advance adds the increase of a monotonic source to c. A source that
// went backwards (scheduler re-initialized) restarts the baseline.
func advance(c prometheus.Counter, last *uint64, now uint64) {
	if now > *last {
		c.Add(float64(now - *last))
	}
	*last = now
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
