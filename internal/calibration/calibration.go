// Package calibration implements the one-shot startup procedure that turns
// two guided probe samples (dry, then wet) into the wet/dry thresholds the
// evaluation loop runs against for the rest of the session.
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/hardware"
)

const (
	DefaultMargin      = 50
	DefaultFallbackGap = 100
	DefaultSettle      = 10 * time.Second
)

// Thresholds is the calibrated classification band. Invariant: Wet < Dry.
// Produced once at startup and passed by value; never mutated after.
type Thresholds struct {
	Wet int
	Dry int
}

// Result carries the raw samples alongside the derived thresholds so the
// operator (and the event recorder) can see what calibration actually saw.
type Result struct {
	DryReading int
	WetReading int
	Thresholds Thresholds
	Clamped    bool
}

// Calibrator runs the guided procedure. Sleep is injectable for tests; when
// nil the calibrator waits on the real clock.
type Calibrator struct {
	Sensor      hardware.Sensor
	Display     hardware.Display
	Settle      time.Duration
	Margin      int
	FallbackGap int
	Sleep       func(context.Context, time.Duration) error
}

// Run prompts for the dry probe position, settles, samples, then repeats
// for wet, and derives the thresholds. Progress on the display is required
// operator feedback, not optional logging.
func (c *Calibrator) Run(ctx context.Context) (Result, error) {
	settle := c.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	margin := c.Margin
	if margin <= 0 {
		margin = DefaultMargin
	}
	gap := c.FallbackGap
	if gap <= 0 {
		gap = DefaultFallbackGap
	}

	c.Display.Show("Calibrating", "Probe in dry air")
	c.Display.Log("calibration: settling for dry sample")
	if err := c.wait(ctx, settle); err != nil {
		return Result{}, err
	}
	dryReading, err := c.Sensor.Read()
	if err != nil {
		return Result{}, fmt.Errorf("dry sample: %w", err)
	}
	c.Display.Log(fmt.Sprintf("calibration: dry reading %d", dryReading))

	c.Display.Show("Calibrating", "Probe in water")
	c.Display.Log("calibration: settling for wet sample")
	if err := c.wait(ctx, settle); err != nil {
		return Result{}, err
	}
	wetReading, err := c.Sensor.Read()
	if err != nil {
		return Result{}, fmt.Errorf("wet sample: %w", err)
	}
	c.Display.Log(fmt.Sprintf("calibration: wet reading %d", wetReading))

	res := Derive(dryReading, wetReading, margin, gap)
	if res.Clamped {
		c.Display.Log(fmt.Sprintf("calibration: degenerate samples (dry=%d wet=%d), wet threshold clamped", dryReading, wetReading))
	}
	c.Display.Show("Calibrated", fmt.Sprintf("W:%d D:%d", res.Thresholds.Wet, res.Thresholds.Dry))
	c.Display.Log(fmt.Sprintf("calibration: thresholds wet=%d dry=%d", res.Thresholds.Wet, res.Thresholds.Dry))
	return res, nil
}

// Derive builds thresholds from raw samples: dry - margin above which the
// soil counts as dry, wet + margin below which it counts as wet. Noisy or
// inverted samples can collapse the band; the wet threshold is then clamped
// a fixed gap below dry so an OK band always exists and Wet < Dry holds for
// every input pair.
func Derive(dryReading, wetReading, margin, fallbackGap int) Result {
	dry := dryReading - margin
	wet := wetReading + margin
	clamped := false
	if wet >= dry {
		wet = dry - fallbackGap
		clamped = true
	}
	return Result{
		DryReading: dryReading,
		WetReading: wetReading,
		Thresholds: Thresholds{Wet: wet, Dry: dry},
		Clamped:    clamped,
	}
}

func (c *Calibrator) wait(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
