package main

import (
	"fmt"
	"io"

	"github.com/sweeney/weather-emulator/internal/config"
	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/logsink"
	"github.com/sweeney/weather-emulator/internal/simulation"
	"github.com/sweeney/weather-emulator/internal/waveform"
)

// hardware is everything the scheduler drives. Once the scheduler owns
// it, Scheduler.DeInit releases it.
type hardware struct {
	engine *waveform.Engine
	io     simulation.Collaborators
}

// openHardware requests every line and channel named in cfg. On error
// whatever was already opened is released.
func openHardware(chip *hw.Chip, cfg config.Config) (rig *hardware, err error) {
	var opened []io.Closer
	defer func() {
		if err != nil {
			for i := len(opened) - 1; i >= 0; i-- {
				opened[i].Close()
			}
		}
	}()

	p := cfg.Pins
	sync, err := chip.RisingEdge(p.Sync)
	if err != nil {
		return nil, err
	}
	opened = append(opened, sync)

	logEnable, err := chip.Input(p.LogEnable)
	if err != nil {
		return nil, err
	}
	opened = append(opened, logEnable)

	leds := make([]*hw.Line, 0, 3)
	for _, offset := range []int{p.LEDRun, p.LEDSync, p.LEDFault} {
		l, err := chip.Output(offset, hw.PushPull, false)
		if err != nil {
			return nil, err
		}
		opened = append(opened, l)
		leds = append(leds, l)
	}

	speed, err := hw.NewPWM(p.Speed)
	if err != nil {
		return nil, err
	}
	opened = append(opened, speed)

	var direction waveform.DirectionEncoder
	switch cfg.Variant {
	case waveform.VariantShared:
		pwm, err := hw.NewPWM(p.Direction)
		if err != nil {
			return nil, err
		}
		opened = append(opened, pwm)
		direction = waveform.NewSharedDutyEncoder(pwm)
	default:
		// Start with every resistor deselected.
		idle := p.Polarity == waveform.ActiveLow
		lines := make([]hw.Output, 0, len(p.Vane))
		for _, offset := range p.Vane {
			l, err := chip.Output(offset, hw.OpenDrain, idle)
			if err != nil {
				return nil, fmt.Errorf("vane: %w", err)
			}
			opened = append(opened, l)
			lines = append(lines, l)
		}
		bank, err := waveform.NewBankEncoder(lines, p.Polarity)
		if err != nil {
			return nil, err
		}
		direction = bank
	}

	rain, err := hw.NewPulser(p.Rainfall)
	if err != nil {
		return nil, err
	}
	opened = append(opened, rain)

	rig = &hardware{
		engine: waveform.NewEngine(cfg.Waveform(), speed, direction, rain),
		io: simulation.Collaborators{
			Sync:      sync,
			Timer:     hw.NewTicker(),
			LogEnable: logEnable,
			LEDRun:    leds[0],
			LEDSync:   leds[1],
			LEDFault:  leds[2],
		},
	}
	if cfg.LogDevice != "" {
		rig.io.Log = logsink.NewDevice(cfg.LogDevice)
	}
	return rig, nil
}
