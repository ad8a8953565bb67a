package stepper

import (
	"context"
	"testing"
	"time"

	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls   []gpioCall
	onWrite func(c gpioCall)
}

type gpioCall struct {
	op    string // "setup", "write"
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	c := gpioCall{op: "write", pin: pin, level: level}
	d.calls = append(d.calls, c)
	if d.onWrite != nil {
		d.onWrite(c)
	}
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error {
	return nil
}

func (d *recordingDriver) writeCallsForPin(pin int) []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" && c.pin == pin {
			result = append(result, c)
		}
	}
	return result
}

func (d *recordingDriver) stepPulses(stepPin int) int {
	pulses := 0
	for _, c := range d.calls {
		if c.op == "write" && c.pin == stepPin && c.level == gpio.High {
			pulses++
		}
	}
	return pulses
}

func testConfig() Config {
	return Config{
		StepPin:   20,
		DirPin:    16,
		EnablePin: 21,
		StepDelay: 1 * time.Microsecond,
	}
}

func TestStepper_DirectionFixedClockwise(t *testing.T) {
	drv := &recordingDriver{}
	NewStepper(drv, testConfig())

	dirWrites := drv.writeCallsForPin(16)
	if len(dirWrites) != 1 || dirWrites[0].level != gpio.High {
		t.Errorf("construction should assert dir pin HIGH once, got %v", dirWrites)
	}
}

func TestStepper_StepBurstCompletes(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, testConfig())
	drv.calls = nil // reset after init

	res, n, err := s.StepBurst(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("StepBurst: %v", err)
	}
	if res != BurstCompleted {
		t.Errorf("result = %v, want completed", res)
	}
	if n != 10 {
		t.Errorf("emitted = %d, want 10", n)
	}
	if got := drv.stepPulses(20); got != 10 {
		t.Errorf("expected 10 step pulses, got %d", got)
	}
}

func TestStepper_StepBurstAbortedBeforeStart(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, testConfig())
	drv.calls = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, n, err := s.StepBurst(ctx, 100, 0)
	if err != nil {
		t.Fatalf("StepBurst: %v", err)
	}
	if res != BurstAborted {
		t.Errorf("result = %v, want aborted", res)
	}
	if n != 0 {
		t.Errorf("emitted = %d, want 0", n)
	}
	if got := drv.stepPulses(20); got != 0 {
		t.Errorf("expected no step pulses, got %d", got)
	}
}

func TestStepper_StepBurstAbortedMidBurst(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, testConfig())
	drv.calls = nil

	// Cancel after the 5th rising edge; the burst must stop within one
	// pulse, not run to completion.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	drv.onWrite = func(c gpioCall) {
		if c.pin == 20 && c.level == gpio.High && drv.stepPulses(20) == 5 {
			cancel()
		}
	}

	res, n, err := s.StepBurst(ctx, 100, 0)
	if err != nil {
		t.Fatalf("StepBurst: %v", err)
	}
	if res != BurstAborted {
		t.Errorf("result = %v, want aborted", res)
	}
	if n != 5 {
		t.Errorf("emitted = %d, want 5", n)
	}
	if got := drv.stepPulses(20); got != 5 {
		t.Errorf("expected 5 step pulses, got %d", got)
	}
}

func TestStepper_StepPulsePattern(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, testConfig())
	drv.calls = nil

	s.StepBurst(context.Background(), 1, 0) // single step

	stepCalls := drv.writeCallsForPin(20)
	// Should be HIGH then LOW
	if len(stepCalls) != 2 {
		t.Fatalf("single step should produce 2 writes on step pin, got %d", len(stepCalls))
	}
	if stepCalls[0].level != gpio.High {
		t.Error("first pulse should be HIGH")
	}
	if stepCalls[1].level != gpio.Low {
		t.Error("second pulse should be LOW")
	}
}

func TestStepper_EnableDisable(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, testConfig())
	drv.calls = nil

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	enableCalls := drv.writeCallsForPin(21)
	if len(enableCalls) != 1 || enableCalls[0].level != gpio.Low {
		t.Errorf("Enable should write LOW to enable pin, got %v", enableCalls)
	}

	drv.calls = nil
	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	disableCalls := drv.writeCallsForPin(21)
	if len(disableCalls) != 1 || disableCalls[0].level != gpio.High {
		t.Errorf("Disable should write HIGH to enable pin, got %v", disableCalls)
	}
}

func TestStepper_EnableDisable_NoEnablePin(t *testing.T) {
	drv := &recordingDriver{}
	cfg := testConfig()
	cfg.EnablePin = 0
	s := NewStepper(drv, cfg)
	drv.calls = nil

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if len(drv.calls) != 0 {
		t.Errorf("with EnablePin=0, Enable/Disable should produce no GPIO calls, got %d", len(drv.calls))
	}
}

func TestStepper_DefaultStepDelay(t *testing.T) {
	drv := &recordingDriver{}
	cfg := testConfig()
	cfg.StepDelay = 0
	s := NewStepper(drv, cfg)
	if s.delay != 2500*time.Microsecond {
		t.Errorf("default delay = %v, want 2.5ms", s.delay)
	}
}
