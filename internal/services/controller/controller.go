// Package controller runs the watering device: the polling control loop,
// the per-trigger evaluation state machine and the bounded watering
// sequence. Thresholds come from the startup calibration and are read-only
// here.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/calibration"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/hardware"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/model"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/schedule"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/pkg/mqttbus"
)

const (
	DefaultWateringDuration = 5 * time.Second
	DefaultFaultCooldown    = 5 * time.Second
	DefaultFaultThreshold   = 1000
	DefaultPollInterval     = 2 * time.Second

	DefaultStatusTopicTmpl      = "watering/status/{device}"
	DefaultRunTopicTmpl         = "watering/run/{device}"
	DefaultCalibrationTopicTmpl = "watering/calibration/{device}"
)

type Config struct {
	DeviceID string
	Schedule []schedule.Entry

	// FaultThreshold is the raw reading at or above which the probe is
	// assumed disconnected. WateringDuration is a hard safety ceiling on
	// pump-on time, never sensor driven.
	FaultThreshold   int
	WateringDuration time.Duration
	FaultCooldown    time.Duration
	PollInterval     time.Duration

	StatusTopicTmpl      string
	RunTopicTmpl         string
	CalibrationTopicTmpl string
}

func (c *Config) applyDefaults() {
	if c.FaultThreshold <= 0 {
		c.FaultThreshold = DefaultFaultThreshold
	}
	if c.WateringDuration <= 0 {
		c.WateringDuration = DefaultWateringDuration
	}
	if c.FaultCooldown <= 0 {
		c.FaultCooldown = DefaultFaultCooldown
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StatusTopicTmpl == "" {
		c.StatusTopicTmpl = DefaultStatusTopicTmpl
	}
	if c.RunTopicTmpl == "" {
		c.RunTopicTmpl = DefaultRunTopicTmpl
	}
	if c.CalibrationTopicTmpl == "" {
		c.CalibrationTopicTmpl = DefaultCalibrationTopicTmpl
	}
}

// Controller owns the control loop. Single-threaded by construction:
// evaluation and watering run to completion before the next poll tick is
// looked at, so a second watering can never start while one is in progress.
type Controller struct {
	cfg        Config
	clock      hardware.Clock
	sensor     hardware.Sensor
	pump       hardware.Pump
	display    hardware.Display
	publisher  mqttbus.Publisher
	breaker    *gobreaker.CircuitBreaker
	thresholds calibration.Thresholds
	edge       schedule.Edge

	// sleep is injectable so tests run without real delays.
	sleep func(context.Context, time.Duration) error
}

// New wires a controller. publisher may be nil for broker-less operation;
// the device keeps watering either way.
func New(cfg Config, clock hardware.Clock, sensor hardware.Sensor, pump hardware.Pump,
	display hardware.Display, publisher mqttbus.Publisher, th calibration.Thresholds) *Controller {
	cfg.applyDefaults()
	return &Controller{
		cfg:       cfg,
		clock:     clock,
		sensor:    sensor,
		pump:      pump,
		display:   display,
		publisher: publisher,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "mqtt-publish",
			Interval: 30 * time.Second,
			Timeout:  15 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
		thresholds: th,
		sleep:      waitCtx,
	}
}

// Classify maps a raw reading onto a terminal outcome, first match wins.
// Fault is checked before the thresholds: a disconnected probe saturates
// near the sensor maximum and would otherwise read as extremely dry.
func Classify(reading int, th calibration.Thresholds, faultThreshold int) model.Outcome {
	switch {
	case reading >= faultThreshold:
		return model.OutcomeFault
	case reading < th.Wet:
		return model.OutcomeSkipWet
	case reading > th.Dry:
		return model.OutcomeWater
	default:
		return model.OutcomeOK
	}
}

// Run polls the clock until ctx is cancelled. Each qualifying trigger
// minute fires at most one evaluation; the pump is forced off on exit.
func (c *Controller) Run(ctx context.Context) error {
	if len(c.cfg.Schedule) == 0 {
		return fmt.Errorf("empty schedule")
	}
	defer func() {
		if err := c.pump.SetActive(false); err != nil {
			log.Printf("pump off on shutdown: %v", err)
		}
	}()

	if now, err := c.clock.Now(); err == nil {
		c.showIdle(now)
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now, err := c.clock.Now()
			if err != nil {
				log.Printf("clock read error: %v", err)
				c.display.Show("Clock error", "check RTC")
				continue
			}
			if c.edge.Fire(now, c.cfg.Schedule) {
				c.Evaluate(ctx, now)
				c.showIdle(now)
			}
		}
	}
}

// Evaluate is one pass of the state machine: sample once, classify, act,
// report. Always a fresh reading; nothing is cached across triggers.
func (c *Controller) Evaluate(ctx context.Context, now time.Time) model.Outcome {
	reading, err := c.sensor.Read()
	if err != nil {
		log.Printf("sensor read error: %v", err)
		c.forcePumpOff()
		c.display.Show("Sensor error", "read failed")
		evaluationsTotal.WithLabelValues(string(model.OutcomeFault)).Inc()
		return model.OutcomeFault
	}

	outcome := Classify(reading, c.thresholds, c.cfg.FaultThreshold)
	lastMoisture.Set(float64(reading))
	evaluationsTotal.WithLabelValues(string(outcome)).Inc()
	c.display.Log(fmt.Sprintf("check at %s: reading=%d outcome=%s (wet=%d dry=%d)",
		now.Format("15:04"), reading, outcome, c.thresholds.Wet, c.thresholds.Dry))

	switch outcome {
	case model.OutcomeFault:
		c.forcePumpOff()
		c.display.Show("Sensor error", fmt.Sprintf("raw %d", reading))
		if err := c.sleep(ctx, c.cfg.FaultCooldown); err != nil {
			return outcome
		}
	case model.OutcomeSkipWet:
		c.display.Show("Too wet", fmt.Sprintf("raw %d", reading))
	case model.OutcomeWater:
		c.water(ctx, now, reading)
	case model.OutcomeOK:
		c.display.Show("Moisture OK", fmt.Sprintf("raw %d", reading))
	}

	c.publish(c.cfg.StatusTopicTmpl, 0, model.StatusEvent{
		DeviceID:     c.cfg.DeviceID,
		Outcome:      outcome,
		Moisture:     reading,
		WetThreshold: c.thresholds.Wet,
		DryThreshold: c.thresholds.Dry,
		Timestamp:    now.UTC(),
	})
	return outcome
}

// water runs the bounded activation: force off, on, hold, off. The off in
// the defer runs on every exit path, including a cancelled hold.
func (c *Controller) water(ctx context.Context, now time.Time, reading int) {
	c.forcePumpOff()

	c.display.Show("Watering", fmt.Sprintf("%.0fs", c.cfg.WateringDuration.Seconds()))
	c.display.Log(fmt.Sprintf("watering: pump on for %s", c.cfg.WateringDuration))

	if err := c.pump.SetActive(true); err != nil {
		log.Printf("pump on error: %v", err)
		c.forcePumpOff()
		return
	}
	defer c.forcePumpOff()

	if err := c.sleep(ctx, c.cfg.WateringDuration); err != nil {
		log.Printf("watering hold interrupted: %v", err)
		return
	}

	wateringsTotal.Inc()
	pumpSecondsTotal.Add(c.cfg.WateringDuration.Seconds())
	c.display.Show("Watering done", "")
	c.display.Log("watering: pump off")

	completed := now.Add(c.cfg.WateringDuration)
	if t, err := c.clock.Now(); err == nil {
		completed = t
	}
	c.publish(c.cfg.RunTopicTmpl, 1, model.WateringEvent{
		ID:          uuid.NewString(),
		DeviceID:    c.cfg.DeviceID,
		Moisture:    reading,
		DurationMs:  c.cfg.WateringDuration.Milliseconds(),
		StartedAt:   now.UTC(),
		CompletedAt: completed.UTC(),
	})
}

// PublishCalibration reports the startup calibration result to the bus.
func (c *Controller) PublishCalibration(res calibration.Result, at time.Time) {
	c.publish(c.cfg.CalibrationTopicTmpl, 1, model.CalibrationEvent{
		DeviceID:     c.cfg.DeviceID,
		DryReading:   res.DryReading,
		WetReading:   res.WetReading,
		WetThreshold: res.Thresholds.Wet,
		DryThreshold: res.Thresholds.Dry,
		Clamped:      res.Clamped,
		Timestamp:    at.UTC(),
	})
}

func (c *Controller) forcePumpOff() {
	if err := c.pump.SetActive(false); err != nil {
		log.Printf("pump off error: %v", err)
	}
}

func (c *Controller) showIdle(now time.Time) {
	next := schedule.NextTrigger(now, c.cfg.Schedule)
	c.display.Show("Idle", "Next "+next.Format("15:04"))
}

// publish sends an event through the circuit breaker so a dead broker
// trips open instead of stalling the control loop on every cycle.
func (c *Controller) publish(tmpl string, qos byte, evt any) {
	if c.publisher == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("marshal event: %v", err)
		return
	}
	topic := strings.NewReplacer("{device}", c.cfg.DeviceID).Replace(tmpl)
	if _, err := c.breaker.Execute(func() (any, error) {
		return nil, c.publisher.Publish(topic, qos, false, payload)
	}); err != nil {
		log.Printf("publish %s: %v", topic, err)
		publishErrorsTotal.Inc()
	}
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
