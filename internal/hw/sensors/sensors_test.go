package sensors

import (
	"errors"
	"testing"

	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// pinDriver serves reads from a fixed pin->level map.
type pinDriver struct {
	levels map[int]gpio.Level
	modes  map[int]gpio.PinMode
	err    error
}

func (d *pinDriver) SetupPin(pin int, mode gpio.PinMode) error {
	if d.modes == nil {
		d.modes = make(map[int]gpio.PinMode)
	}
	d.modes[pin] = mode
	return nil
}

func (d *pinDriver) WritePin(pin int, level gpio.Level) error { return nil }

func (d *pinDriver) ReadPin(pin int) (gpio.Level, error) {
	if d.err != nil {
		return gpio.Low, d.err
	}
	return d.levels[pin], nil
}

func (d *pinDriver) Close() error { return nil }

const (
	hallPin    = 26
	opticalPin = 19
)

func TestGate_PullUpInputs(t *testing.T) {
	drv := &pinDriver{levels: map[int]gpio.Level{}}
	NewGate(drv, Config{HallPin: hallPin, OpticalPin: opticalPin})

	for _, pin := range []int{hallPin, opticalPin} {
		if drv.modes[pin] != gpio.InputPullUp {
			t.Errorf("pin %d mode = %v, want input pull-up", pin, drv.modes[pin])
		}
	}
}

func TestGate_ActiveLowSensing(t *testing.T) {
	// Pulled-up lines read HIGH until the sensor shorts them to ground.
	drv := &pinDriver{levels: map[int]gpio.Level{
		hallPin:    gpio.High,
		opticalPin: gpio.High,
	}}
	g := NewGate(drv, Config{HallPin: hallPin, OpticalPin: opticalPin})

	if active, err := g.HomeSwitchActive(); err != nil || !active {
		t.Errorf("hall high: active=%v err=%v, want true (not triggered)", active, err)
	}
	if active, err := g.OpticalIndexActive(); err != nil || !active {
		t.Errorf("optical high: active=%v err=%v, want true (not triggered)", active, err)
	}

	drv.levels[hallPin] = gpio.Low
	drv.levels[opticalPin] = gpio.Low

	if active, err := g.HomeSwitchActive(); err != nil || active {
		t.Errorf("hall low: active=%v err=%v, want false (triggered)", active, err)
	}
	if active, err := g.OpticalIndexActive(); err != nil || active {
		t.Errorf("optical low: active=%v err=%v, want false (triggered)", active, err)
	}
}

func TestGate_ReadError(t *testing.T) {
	drv := &pinDriver{err: errors.New("gpio unavailable")}
	g := NewGate(drv, Config{HallPin: hallPin, OpticalPin: opticalPin})

	if _, err := g.HomeSwitchActive(); err == nil {
		t.Error("expected error from hall read")
	}
	if _, err := g.OpticalIndexActive(); err == nil {
		t.Error("expected error from optical read")
	}
}
