// Package config loads the daemon configuration from defaults and an
// optional YAML file.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/simulation"
	"github.com/sweeney/weather-emulator/internal/waveform"
	"gopkg.in/yaml.v2"
)

// Config is the complete daemon configuration.
type Config struct {
	Variant    waveform.Variant `mapstructure:"variant" yaml:"variant"`
	Version    string           `mapstructure:"version" yaml:"version"`
	Poll       time.Duration    `mapstructure:"poll" yaml:"poll"`
	Broker     string           `mapstructure:"broker" yaml:"broker"`
	Heartbeat  time.Duration    `mapstructure:"heartbeat" yaml:"heartbeat"`
	HTTP       string           `mapstructure:"http" yaml:"http"`
	LogDevice  string           `mapstructure:"log_device" yaml:"log_device"`
	HistoryDSN string           `mapstructure:"history_dsn" yaml:"history_dsn"`
	LogLevel   string           `mapstructure:"log_level" yaml:"log_level"`
	Scenario   Scenario         `mapstructure:"scenario" yaml:"scenario"`
	Pins       Pins             `mapstructure:"pins" yaml:"pins"`
}

// Scenario holds the scenario constants.
type Scenario struct {
	Period         time.Duration `mapstructure:"period" yaml:"period"`
	WindSpeedMax   uint32        `mapstructure:"wind_speed_max" yaml:"wind_speed_max"`
	RainfallMax    uint32        `mapstructure:"rainfall_max" yaml:"rainfall_max"`
	RainfallDelay  time.Duration `mapstructure:"rainfall_delay" yaml:"rainfall_delay"`
	DebounceGuard  time.Duration `mapstructure:"debounce_guard" yaml:"debounce_guard"`
	FaultThreshold time.Duration `mapstructure:"fault_threshold" yaml:"fault_threshold"`
}

// Pins maps the emulator channels to hardware lines.
type Pins struct {
	Chip      string            `mapstructure:"chip" yaml:"chip"`
	Sync      int               `mapstructure:"sync" yaml:"sync"`
	LogEnable int               `mapstructure:"log_enable" yaml:"log_enable"`
	LEDRun    int               `mapstructure:"led_run" yaml:"led_run"`
	LEDSync   int               `mapstructure:"led_sync" yaml:"led_sync"`
	LEDFault  int               `mapstructure:"led_fault" yaml:"led_fault"`
	Vane      []int             `mapstructure:"vane" yaml:"vane"`
	Polarity  waveform.Polarity `mapstructure:"polarity" yaml:"polarity"`
	Speed     string            `mapstructure:"speed" yaml:"speed"`
	Direction string            `mapstructure:"direction" yaml:"direction"`
	Rainfall  string            `mapstructure:"rainfall" yaml:"rainfall"`
}

// Default returns the configuration of the given variant.
func Default(v waveform.Variant) Config {
	sc := simulation.DefaultConfig(v)
	return Config{
		Variant:   v,
		Version:   sc.Version,
		Poll:      50 * time.Millisecond,
		Broker:    "tcp://192.168.1.200:1883",
		Heartbeat: 15 * time.Minute,
		HTTP:      ":80",
		LogLevel:  "info",
		Scenario: Scenario{
			Period:         sc.Period,
			WindSpeedMax:   sc.WindSpeedMax,
			RainfallMax:    sc.RainfallMax,
			RainfallDelay:  sc.RainfallDelay,
			DebounceGuard:  sc.DebounceGuard,
			FaultThreshold: sc.FaultThreshold,
		},
		Pins: Pins{
			Chip:      "gpiochip0",
			Sync:      hw.DefaultLineSync,
			LogEnable: hw.DefaultLineLogEnable,
			LEDRun:    hw.DefaultLineLEDRun,
			LEDSync:   hw.DefaultLineLEDSync,
			LEDFault:  hw.DefaultLineLEDFault,
			Vane:      append([]int(nil), hw.DefaultBankLines...),
			Polarity:  waveform.ActiveLow,
			Speed:     hw.DefaultPinSpeed,
			Direction: hw.DefaultPinDirection,
			Rainfall:  hw.DefaultPinRainfall,
		},
	}
}

// Load reads the YAML file at path over the defaults of the variant it
// names (bank if absent). Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults of the variant it names.
func Parse(data []byte) (Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	variant := waveform.VariantBank
	if v, ok := raw["variant"].(string); ok {
		variant = waveform.Variant(v)
	}
	cfg := Default(variant)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first inconsistency found.
func (c Config) Validate() error {
	switch c.Variant {
	case waveform.VariantBank, waveform.VariantShared:
	default:
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	if c.Pins.Polarity != waveform.ActiveLow && c.Pins.Polarity != waveform.ActiveHigh {
		return fmt.Errorf("unknown polarity %q", c.Pins.Polarity)
	}
	if c.Variant == waveform.VariantBank && len(c.Pins.Vane) != len(waveform.Bearings) {
		return fmt.Errorf("vane needs %d lines, got %d", len(waveform.Bearings), len(c.Pins.Vane))
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	if c.Scenario.Period < time.Millisecond {
		return fmt.Errorf("scenario period must be at least 1ms, got %v", c.Scenario.Period)
	}
	if c.Scenario.DebounceGuard < 0 || c.Scenario.RainfallDelay < 0 || c.Scenario.FaultThreshold < 0 {
		return fmt.Errorf("scenario durations must not be negative")
	}
	if c.Scenario.WindSpeedMax == math.MaxUint32 || c.Scenario.RainfallMax == math.MaxUint32 {
		return fmt.Errorf("scenario maxima must be below %d", uint32(math.MaxUint32))
	}
	return nil
}

// Simulation returns the scheduler constants.
func (c Config) Simulation() simulation.Config {
	return simulation.Config{
		Period:         c.Scenario.Period,
		WindSpeedMax:   c.Scenario.WindSpeedMax,
		RainfallMax:    c.Scenario.RainfallMax,
		RainfallDelay:  c.Scenario.RainfallDelay,
		DebounceGuard:  c.Scenario.DebounceGuard,
		FaultThreshold: c.Scenario.FaultThreshold,
		Version:        c.Version,
	}
}

// Waveform returns the engine constants.
func (c Config) Waveform() waveform.Config {
	return waveform.DefaultConfig(c.Variant)
}

// YAML renders the configuration for -print-config.
func (c Config) YAML() ([]byte, error) {
	out := map[string]interface{}{}
	if err := mapstructure.Decode(c, &out); err != nil {
		return nil, err
	}
	stringifyDurations(out)
	return yaml.Marshal(out)
}

// stringifyDurations makes durations readable ("3.001s" rather than
// nanoseconds) so the output can be fed back to Load.
func stringifyDurations(m map[string]interface{}) {
	for k, v := range m {
		switch tv := v.(type) {
		case time.Duration:
			m[k] = tv.String()
		case map[string]interface{}:
			stringifyDurations(tv)
		}
	}
}
