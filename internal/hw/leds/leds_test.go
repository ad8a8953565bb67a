package leds

import (
	"testing"

	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// levelDriver tracks the last level written per pin.
type levelDriver struct {
	levels map[int]gpio.Level
}

func newLevelDriver() *levelDriver {
	return &levelDriver{levels: make(map[int]gpio.Level)}
}

func (d *levelDriver) SetupPin(pin int, mode gpio.PinMode) error { return nil }

func (d *levelDriver) WritePin(pin int, level gpio.Level) error {
	d.levels[pin] = level
	return nil
}

func (d *levelDriver) ReadPin(pin int) (gpio.Level, error) { return gpio.Low, nil }
func (d *levelDriver) Close() error                        { return nil }

const (
	greenPin = 12
	irPin    = 13
)

func newTestPanel() (*Panel, *levelDriver) {
	drv := newLevelDriver()
	p := NewPanel(drv, Config{GreenPin: greenPin, InfraredPin: irPin})
	return p, drv
}

func TestPanel_StartsDark(t *testing.T) {
	_, drv := newTestPanel()
	if drv.levels[greenPin] != gpio.Low || drv.levels[irPin] != gpio.Low {
		t.Errorf("both banks should start low, got green=%v ir=%v", drv.levels[greenPin], drv.levels[irPin])
	}
}

func TestPanel_SingleBankLit(t *testing.T) {
	p, drv := newTestPanel()

	if err := p.Set(true, ModeGreen); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if drv.levels[greenPin] != gpio.High || drv.levels[irPin] != gpio.Low {
		t.Errorf("green on: green=%v ir=%v", drv.levels[greenPin], drv.levels[irPin])
	}

	// Switching modes must never leave both banks lit.
	if err := p.Set(true, ModeInfrared); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if drv.levels[greenPin] != gpio.Low || drv.levels[irPin] != gpio.High {
		t.Errorf("ir on: green=%v ir=%v", drv.levels[greenPin], drv.levels[irPin])
	}
}

func TestPanel_SetOffIdempotent(t *testing.T) {
	p, drv := newTestPanel()

	p.Set(true, ModeGreen)
	for i := 0; i < 3; i++ {
		if err := p.Set(false, ModeGreen); err != nil {
			t.Fatalf("Set off %d: %v", i, err)
		}
		if drv.levels[greenPin] != gpio.Low || drv.levels[irPin] != gpio.Low {
			t.Errorf("off %d: green=%v ir=%v", i, drv.levels[greenPin], drv.levels[irPin])
		}
	}
}

func TestPanel_AllOff(t *testing.T) {
	p, drv := newTestPanel()

	p.Set(true, ModeInfrared)
	if err := p.AllOff(); err != nil {
		t.Fatalf("AllOff: %v", err)
	}
	if drv.levels[greenPin] != gpio.Low || drv.levels[irPin] != gpio.Low {
		t.Errorf("green=%v ir=%v, want both low", drv.levels[greenPin], drv.levels[irPin])
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"green", ModeGreen, false},
		{"Green", ModeGreen, false},
		{" GREEN ", ModeGreen, false},
		{"infrared", ModeInfrared, false},
		{"ir", ModeInfrared, false},
		{"IR", ModeInfrared, false},
		{"uv", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseMode(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
		}
	}
}
