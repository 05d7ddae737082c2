package simulation

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/synchro"
	"github.com/sweeney/weather-emulator/internal/timebase"
)

// Scheduler runs the scenario: one step per period, one new scenario per
// accepted synchronization edge.
type Scheduler struct {
	cfg    Config
	engine Engine
	io     Collaborators

	clock *timebase.Clock
	gate  synchro.Gate

	ramp      RampState
	running   bool
	scenarios uint64
	steps     uint64

	// newScenario marks the first report after an accepted edge.
	newScenario bool
}

// NewScheduler creates a scheduler. Call Init before Start.
func NewScheduler(cfg Config, engine Engine, io Collaborators) *Scheduler {
	if io.Now == nil {
		io.Now = time.Now
	}
	return &Scheduler{
		cfg:    cfg,
		engine: engine,
		io:     io,
		clock:  timebase.New(cfg.Period),
	}
}

// Init resets the scenario state, turns the LEDs off and puts the
// waveform engine in its idle state.
func (s *Scheduler) Init() error {
	s.gate.Reset()
	s.clock.Reset()
	s.clock.TakePeriod()
	s.ramp = RampState{}
	if n := len(s.engine.Table()); n > 0 {
		// The first accepted edge wraps the index back to 0.
		s.ramp.PeakDirectionIndex = uint32(n - 1)
	}
	s.scenarios = 0
	s.steps = 0
	s.newScenario = false

	for name, led := range s.leds() {
		if err := led.Write(false); err != nil {
			return fmt.Errorf("led %s: %w", name, err)
		}
	}
	if err := s.engine.Init(); err != nil {
		return fmt.Errorf("init waveform engine: %w", err)
	}
	return nil
}

// DeInit stops the scenario and releases every collaborator, reporting
// all failures together.
func (s *Scheduler) DeInit() error {
	var errs []error
	if s.running {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.engine.DeInit(); err != nil {
		errs = append(errs, err)
	}
	for name, led := range s.leds() {
		if err := led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("led %s: %w", name, err))
		}
	}
	if s.io.LogEnable != nil {
		if err := s.io.LogEnable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log enable: %w", err))
		}
	}
	if s.io.Sync != nil {
		if err := s.io.Sync.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sync line: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Start enables the synchronization edge and the period timer.
func (s *Scheduler) Start() error {
	if s.running {
		return errors.New("scheduler already running")
	}
	s.clock.Reset()
	if err := s.gate.Attach(s.io.Sync); err != nil {
		return fmt.Errorf("enable sync edge: %w", err)
	}
	if err := s.clock.Start(s.io.Timer); err != nil {
		_ = s.gate.Detach(s.io.Sync)
		return fmt.Errorf("start period timer: %w", err)
	}
	s.running = true
	logger.Infof("scenario started: period %v, waiting for DUT synchronization", s.cfg.Period)
	return nil
}

// Stop disables the synchronization edge and the period timer.
func (s *Scheduler) Stop() error {
	if !s.running {
		return nil
	}
	s.running = false
	var errs []error
	if err := s.gate.Detach(s.io.Sync); err != nil {
		errs = append(errs, fmt.Errorf("disable sync edge: %w", err))
	}
	if err := s.clock.Stop(s.io.Timer); err != nil {
		errs = append(errs, fmt.Errorf("stop period timer: %w", err))
	}
	return errors.Join(errs...)
}

// Process performs one foreground evaluation. It returns a Report when a
// period step was executed and nil otherwise.
//
// A waveform error aborts the step and is returned with a nil Report;
// the scenario resumes on the next period. LED and log errors do not
// abort the step and are returned alongside the Report.
func (s *Scheduler) Process() (*Report, error) {
	var soft []error

	if err := s.writeLED("fault", s.io.LEDFault, s.clock.Elapsed() > ms(s.cfg.FaultThreshold)); err != nil {
		soft = append(soft, err)
	}

	if !s.gate.FirstSeen() {
		return nil, errors.Join(soft...)
	}

	if s.gate.TakePending() {
		s.startScenario()
		if err := s.writeLED("sync", s.io.LEDSync, true); err != nil {
			soft = append(soft, err)
		}
	}

	if s.running && s.clock.Elapsed() > ms(s.cfg.DebounceGuard) && !s.gate.Armed() {
		if err := s.writeLED("sync", s.io.LEDSync, false); err != nil {
			soft = append(soft, err)
		}
		s.gate.Arm()
	}

	if !s.clock.TakePeriod() {
		return nil, errors.Join(soft...)
	}

	if s.io.LEDRun != nil {
		if err := s.io.LEDRun.Toggle(); err != nil {
			soft = append(soft, fmt.Errorf("led run: %w", err))
		}
	}

	report, err := s.step()
	if err != nil {
		soft = append([]error{err}, soft...)
		return nil, errors.Join(soft...)
	}

	if err := s.logBurst(report); err != nil {
		soft = append(soft, err)
	}
	return report, errors.Join(soft...)
}

// startScenario rolls the peaks over to the next scenario and restarts
// the ramps.
func (s *Scheduler) startScenario() {
	s.clock.Reset()
	s.engine.ResetRainfall()

	r := &s.ramp
	r.Speed = 0
	r.Down = false
	r.Rainfall = 0
	r.PeakSpeed = nextPeak(r.PeakSpeed, s.cfg.WindSpeedMax)
	r.PeakRainfall = nextPeak(r.PeakRainfall, s.cfg.RainfallMax)
	if n := uint32(len(s.engine.Table())); n > 0 {
		r.PeakDirectionIndex = (r.PeakDirectionIndex + 1) % n
	}

	s.scenarios++
	s.newScenario = true
	logger.Infof("DUT synchronization: scenario %d, peak speed %d km/h, direction %d deg, peak rainfall %d mm",
		s.scenarios, r.PeakSpeed, s.direction(), r.PeakRainfall)
}

// step advances the ramps and drives the waveform engine.
func (s *Scheduler) step() (*Report, error) {
	s.stepSpeed()

	if err := s.engine.SetWindSpeed(s.ramp.Speed); err != nil {
		return nil, fmt.Errorf("scenario step: %w", err)
	}
	if err := s.engine.SetWindDirection(s.direction()); err != nil {
		return nil, fmt.Errorf("scenario step: %w", err)
	}
	if s.clock.Elapsed() >= ms(s.cfg.RainfallDelay) && s.ramp.Rainfall < s.ramp.PeakRainfall {
		if err := s.engine.AddRainfallMM(1); err != nil {
			return nil, fmt.Errorf("scenario step: %w", err)
		}
		s.ramp.Rainfall++
	}

	s.steps++
	r := &Report{
		Timestamp:   s.io.Now(),
		NewScenario: s.newScenario,
		Scenario:    s.scenarios,
		Step:        s.steps,
		Setpoint: ChannelSetpoint{
			SpeedKmh:         s.ramp.Speed,
			DirectionDegrees: s.direction(),
			RainfallMM:       s.ramp.Rainfall,
		},
		PeakSpeed:    s.ramp.PeakSpeed,
		PeakRainfall: s.ramp.PeakRainfall,
		ElapsedMs:    s.clock.Elapsed(),
	}
	s.newScenario = false
	return r, nil
}

// stepSpeed moves the speed one km/h along a triangle wave. Reaching the
// peak clamps to peak-1 and turns the ramp down; reaching 0 restarts it
// at 1.
func (s *Scheduler) stepSpeed() {
	r := &s.ramp
	switch {
	case r.PeakSpeed == 0:
		r.Speed = 0
	case r.Speed >= r.PeakSpeed:
		r.Speed = r.PeakSpeed - 1
		r.Down = true
	case r.Speed == 0:
		r.Speed = 1
		r.Down = false
	case r.Down:
		r.Speed--
	default:
		r.Speed++
	}
}

// nextPeak advances a peak through 0..limit, wrapping after limit.
func nextPeak(peak, limit uint32) uint32 {
	return uint32((uint64(peak) + 1) % (uint64(limit) + 1))
}

func (s *Scheduler) direction() uint32 {
	table := s.engine.Table()
	if len(table) == 0 {
		return 0
	}
	return table[int(s.ramp.PeakDirectionIndex)%len(table)]
}

// logBurst writes the report to the line sink while the log enable input
// is high.
func (s *Scheduler) logBurst(r *Report) error {
	if s.io.Log == nil || s.io.LogEnable == nil {
		return nil
	}
	on, err := s.io.LogEnable.Read()
	if err != nil {
		return fmt.Errorf("log enable: %w", err)
	}
	if !on {
		return nil
	}

	if err := s.io.Log.Open(); err != nil {
		return err
	}
	for _, line := range FormatReport(s.cfg.Version, r) {
		if err := s.io.Log.WriteLine(line); err != nil {
			_ = s.io.Log.Close()
			return err
		}
	}
	return s.io.Log.Close()
}

func (s *Scheduler) writeLED(name string, led hw.Output, on bool) error {
	if led == nil {
		return nil
	}
	if err := led.Write(on); err != nil {
		return fmt.Errorf("led %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) leds() map[string]hw.Output {
	m := make(map[string]hw.Output, 3)
	if s.io.LEDRun != nil {
		m["run"] = s.io.LEDRun
	}
	if s.io.LEDSync != nil {
		m["sync"] = s.io.LEDSync
	}
	if s.io.LEDFault != nil {
		m["fault"] = s.io.LEDFault
	}
	return m
}

// Snapshot returns the current scheduler state.
func (s *Scheduler) Snapshot() State {
	return State{
		Ramp:      s.ramp,
		Direction: s.direction(),
		ElapsedMs: s.clock.Elapsed(),
		Running:   s.running,
		FirstSync: s.gate.FirstSeen(),
		Armed:     s.gate.Armed(),
		Pending:   s.gate.Pending(),
		Scenarios: s.scenarios,
		Steps:     s.steps,
	}
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

func ms(d time.Duration) uint32 {
	return uint32(d.Milliseconds())
}
