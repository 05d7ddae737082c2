// Command weather-emulator emulates a weather sensor module for a device
// under test: it drives the anemometer, vane and rain gauge lines through
// a repeating scenario and publishes every step to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/sweeney/weather-emulator/internal/config"
	"github.com/sweeney/weather-emulator/internal/diag"
	"github.com/sweeney/weather-emulator/internal/history"
	"github.com/sweeney/weather-emulator/internal/hw"
	"github.com/sweeney/weather-emulator/internal/metrics"
	"github.com/sweeney/weather-emulator/internal/mqtt"
	"github.com/sweeney/weather-emulator/internal/simulation"
	"github.com/sweeney/weather-emulator/internal/status"
	"github.com/sweeney/weather-emulator/internal/waveform"
	"github.com/sweeney/weather-emulator/internal/web"
)

// historyTimeout bounds one history insert so a slow database cannot
// stall the scenario loop.
const historyTimeout = 2 * time.Second

func main() {
	cfg, printConfig, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Fatalf("fatal: %v", err)
	}

	if printConfig {
		out, err := cfg.YAML()
		if err != nil {
			logger.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if err := run(cfg); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the configuration from the optional -config file and
// the command line. Flags given explicitly win over the file.
func parseFlags(args []string) (config.Config, bool, error) {
	fs := flag.NewFlagSet("weather-emulator", flag.ContinueOnError)

	def := config.Default(waveform.VariantBank)
	configPath := fs.String("config", "", "YAML configuration file")
	variant := fs.String("variant", string(def.Variant), `Sensor module variant ("bank" or "shared")`)
	poll := fs.Duration("poll", def.Poll, "Foreground loop interval")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	logDevice := fs.String("log-device", def.LogDevice, "Serial device for the scenario log (empty to disable)")
	historyDSN := fs.String("history-dsn", def.HistoryDSN, "PostgreSQL DSN for step history (empty to disable)")
	verbose := fs.Bool("verbose", false, "Log every step")
	printConfig := fs.Bool("print-config", false, "Print the effective configuration and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	var cfg config.Config
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, false, err
		}
		cfg = c
	} else {
		cfg = config.Default(waveform.Variant(*variant))
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Variant = waveform.Variant(*variant)
		case "poll":
			cfg.Poll = *poll
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		case "log-device":
			cfg.LogDevice = *logDevice
		case "history-dsn":
			cfg.HistoryDSN = *historyDSN
		case "verbose":
			if *verbose {
				cfg.LogLevel = "debug"
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printConfig, nil
}

func run(cfg config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if err := hw.InitHost(); err != nil {
		return err
	}
	chip, err := hw.OpenChip(cfg.Pins.Chip)
	if err != nil {
		return err
	}
	defer chip.Close()

	rig, err := openHardware(chip, cfg)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}

	sched := simulation.NewScheduler(cfg.Simulation(), rig.engine, rig.io)
	defer func() {
		if err := sched.DeInit(); err != nil {
			logger.Errorf("deinit: %v", err)
		}
	}()
	if err := sched.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	publisher := mqtt.NewRealPublisher(cfg.Broker)
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(sched.Snapshot())

	m := metrics.New()

	var recorder stepRecorder
	if cfg.HistoryDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rec, err := history.Open(ctx, cfg.HistoryDSN)
		cancel()
		if err != nil {
			// History is telemetry; the scenario runs without it.
			logger.Errorf("step history disabled: %v", err)
		} else {
			defer rec.Close()
			recorder = rec
			logger.Infof("recording step history as run %s", rec.RunID())
		}
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warnf("failed to publish startup event: %v", err)
	} else {
		logger.Infof("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("http status server listening on %s", cfg.HTTP)
	}

	logger.Infof("started: variant=%s period=%v poll=%v broker=%s heartbeat=%v",
		cfg.Variant, cfg.Scenario.Period, cfg.Poll, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		sched:      sched,
		pulses:     rig.engine,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		history:    recorder,
		errs:       diag.NewStack(diag.DefaultDepth),
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,

		lastHeartbeat: time.Now(),
	}
	return d.runLoop(ticker.C, sigCh)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Variant:     string(cfg.Variant),
		PeriodMs:    cfg.Scenario.Period.Milliseconds(),
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTP,
		LogDevice:   cfg.LogDevice,
		Version:     cfg.Version,
	}
}

// stepRecorder persists completed steps.
type stepRecorder interface {
	Record(ctx context.Context, r simulation.Report) error
}

// pulseCounter reports the rainfall pulses emitted so far.
type pulseCounter interface {
	Pulses() uint64
}

// daemon is the foreground loop and everything it fans steps out to.
// The optional parts (mqttStatus, history, pulses) may be nil.
type daemon struct {
	sched      *simulation.Scheduler
	pulses     pulseCounter
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	history    stepRecorder
	errs       *diag.Stack
	heartbeat  time.Duration
	now        func() time.Time

	lastHeartbeat time.Time
}

func (d *daemon) runLoop(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			logger.Infof("received %v, shutting down", s)
			d.shutdown(signalName(s))
			if err := d.sched.Stop(); err != nil {
				logger.Errorf("stop scheduler: %v", err)
			}
			return nil

		case <-tick:
			d.poll(d.now())
		}
	}
}

// poll runs one foreground evaluation at t.
func (d *daemon) poll(t time.Time) {
	report, err := d.sched.Process()
	if err != nil {
		d.errs.Push(t, err)
		d.metrics.ObserveError()
	}
	if report != nil {
		d.fanOut(*report)
	}
	d.refresh()

	if d.heartbeat > 0 && t.Sub(d.lastHeartbeat) >= d.heartbeat {
		d.lastHeartbeat = t
		d.publishHeartbeat(t)
	}
}

// fanOut hands a completed step to every telemetry consumer. Failures
// are logged and never stop the scenario.
func (d *daemon) fanOut(r simulation.Report) {
	logger.Debugf("step %d: speed=%dkm/h direction=%dd rainfall=%dmm",
		r.Step, r.Setpoint.SpeedKmh, r.Setpoint.DirectionDegrees, r.Setpoint.RainfallMM)

	d.tracker.SetLastStep(r)
	d.metrics.ObserveStep(r)
	if err := d.publisher.Publish(r); err != nil {
		logger.Warnf("publish error: %v", err)
	}
	if d.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		if err := d.history.Record(ctx, r); err != nil {
			logger.Warnf("history: %v", err)
		}
		cancel()
	}
}

// refresh copies the scheduler state into the tracker and metrics.
func (d *daemon) refresh() {
	state := d.sched.Snapshot()
	d.tracker.Update(state)
	d.metrics.ObserveState(state)
	if d.pulses != nil {
		d.metrics.ObservePulses(d.pulses.Pulses())
	}
	d.tracker.SetErrors(errorInfo(d.errs))
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) publishHeartbeat(t time.Time) {
	state := d.sched.Snapshot()
	logger.Infof("heartbeat: scenarios=%d steps=%d synchronized=%v errors=%d",
		state.Scenarios, state.Steps, state.FirstSync, d.errs.Total())

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		logger.Warnf("heartbeat publish error: %v", err)
	}
}

func (d *daemon) shutdown(reason string) {
	d.refresh()
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		logger.Warnf("failed to publish shutdown event: %v", err)
	} else {
		logger.Infof("published shutdown event")
	}
}

func errorInfo(s *diag.Stack) status.ErrorInfo {
	info := status.ErrorInfo{Total: s.Total(), Held: s.Len()}
	if e, ok := s.Last(); ok {
		info.Last = e.Err.Error()
		info.LastTime = e.Time
	}
	return info
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
