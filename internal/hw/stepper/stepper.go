package stepper

import (
	"context"
	"time"

	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// Config holds the hardware configuration for the carousel stepper.
type Config struct {
	StepPin   int
	DirPin    int
	EnablePin int           // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	StepDelay time.Duration // delay per half-cycle of STEP pulse. Total step = 2*StepDelay.
}

// BurstResult reports how a step burst ended.
type BurstResult int

const (
	BurstCompleted BurstResult = iota
	BurstAborted
)

func (r BurstResult) String() string {
	if r == BurstAborted {
		return "aborted"
	}
	return "completed"
}

// Stepper drives the carousel motor. The mechanism is one-way: the
// direction line is asserted clockwise at construction and never
// reversed. Callers track position themselves; the only feedback is
// the number of pulses a burst managed to emit.
type Stepper struct {
	gpio  gpio.Driver
	cfg   Config
	delay time.Duration // default delay between STEP pulse half-cycles
}

// NewStepper creates the carousel stepper controller.
// cfg.StepDelay: if 0, defaults to 2.5ms per half-cycle.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 2500 * time.Microsecond
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		delay: delay,
	}

	// Direction is fixed clockwise for the life of the device.
	_ = g.WritePin(cfg.DirPin, gpio.High)

	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
	}

	return s
}

// StepBurst emits count step pulses with the given half-cycle delay
// (0 = the configured default). ctx is consulted before every pulse,
// so cancellation latency is bounded by one pulse period. Returns how
// many pulses were actually emitted.
func (s *Stepper) StepBurst(ctx context.Context, count int, delay time.Duration) (BurstResult, int, error) {
	if delay <= 0 {
		delay = s.delay
	}
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			debug.Verbose("Stepper: burst aborted after %d/%d pulses", i, count)
			return BurstAborted, i, nil
		}
		if err := s.stepPulse(delay); err != nil {
			return BurstAborted, i, err
		}
	}
	return BurstCompleted, count, nil
}

func (s *Stepper) stepPulse(delay time.Duration) error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	time.Sleep(delay)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(delay)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). The motor holds position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). The motor
// freewheels with no holding torque. Safe to call at any time; this is
// the emergency stop primitive.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
