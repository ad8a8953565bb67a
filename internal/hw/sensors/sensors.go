package sensors

import (
	"github.com/sybednar/seedling-imager/internal/hw/gpio"
)

// Config holds the input pins for the two position sensors.
type Config struct {
	HallPin    int // coarse home switch (hall effect)
	OpticalPin int // fine index (ITR20001 optical)
}

// Gate reads the two carousel position sensors. Both are wired with
// pull-ups and pull the line LOW when triggered, so a HIGH read means
// "not yet there, keep moving". Reads are pure and cheap enough to
// poll every pulse.
type Gate struct {
	gpio gpio.Driver
	cfg  Config
}

func NewGate(g gpio.Driver, cfg Config) *Gate {
	_ = g.SetupPin(cfg.HallPin, gpio.InputPullUp)
	_ = g.SetupPin(cfg.OpticalPin, gpio.InputPullUp)
	return &Gate{gpio: g, cfg: cfg}
}

// HomeSwitchActive returns true while the hall sensor has NOT triggered.
func (s *Gate) HomeSwitchActive() (bool, error) {
	lvl, err := s.gpio.ReadPin(s.cfg.HallPin)
	if err != nil {
		return false, err
	}
	return lvl == gpio.High, nil
}

// OpticalIndexActive returns true while the optical index has NOT triggered.
func (s *Gate) OpticalIndexActive() (bool, error) {
	lvl, err := s.gpio.ReadPin(s.cfg.OpticalPin)
	if err != nil {
		return false, err
	}
	return lvl == gpio.High, nil
}
