package leds

import (
	"fmt"
	"strings"

	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// Mode selects which illumination bank to drive.
type Mode string

const (
	ModeGreen    Mode = "Green"
	ModeInfrared Mode = "Infrared"
)

// ParseMode accepts "green"/"infrared" (case-insensitive, "ir" allowed).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return ModeGreen, nil
	case "infrared", "ir":
		return ModeInfrared, nil
	default:
		return "", fmt.Errorf("unknown illumination mode: %q", s)
	}
}

// Config holds the illumination output pins.
type Config struct {
	GreenPin    int
	InfraredPin int
}

// Panel drives the green and infrared LED banks. At most one bank is
// ever lit; Set always writes both lines, so repeated calls with the
// same arguments are idempotent and Set(false, ...) is safe even when
// everything is already off.
type Panel struct {
	gpio gpio.Driver
	cfg  Config
}

func NewPanel(g gpio.Driver, cfg Config) *Panel {
	_ = g.SetupPin(cfg.GreenPin, gpio.Output)
	_ = g.SetupPin(cfg.InfraredPin, gpio.Output)
	_ = g.WritePin(cfg.GreenPin, gpio.Low)
	_ = g.WritePin(cfg.InfraredPin, gpio.Low)
	return &Panel{gpio: g, cfg: cfg}
}

// Set turns the bank for mode on or off. The other bank is always
// driven low.
func (p *Panel) Set(on bool, mode Mode) error {
	debug.Verbose("LEDs: mode=%s on=%v", mode, on)

	lvl := gpio.Low
	if on {
		lvl = gpio.High
	}

	if mode == ModeInfrared {
		if err := p.gpio.WritePin(p.cfg.GreenPin, gpio.Low); err != nil {
			return err
		}
		return p.gpio.WritePin(p.cfg.InfraredPin, lvl)
	}
	if err := p.gpio.WritePin(p.cfg.InfraredPin, gpio.Low); err != nil {
		return err
	}
	return p.gpio.WritePin(p.cfg.GreenPin, lvl)
}

// AllOff drives both banks low unconditionally.
func (p *Panel) AllOff() error {
	if err := p.gpio.WritePin(p.cfg.GreenPin, gpio.Low); err != nil {
		return err
	}
	return p.gpio.WritePin(p.cfg.InfraredPin, gpio.Low)
}
