package estop

import (
	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/event"
)

// MotorDisabler cuts the output stage. Disable removes holding current
// immediately and is safe at any time.
type MotorDisabler interface {
	Disable() error
}

// LightsOff forces all illumination off.
type LightsOff interface {
	AllOff() error
}

// PositionInvalidator drops trust in the carousel's plate index.
type PositionInvalidator interface {
	Invalidate()
}

// KillSwitch is the out-of-band emergency stop. It writes the enable
// line directly, bypassing the carousel's normal ownership of the
// motion lines: it must work even if the motion worker is unresponsive
// or has not yet observed a cooperative abort. It is handed only to
// the top-level control surface, never to the experiment runner.
type KillSwitch struct {
	motor  MotorDisabler
	lights LightsOff
	pos    PositionInvalidator
	bus    *event.Bus
}

func NewKillSwitch(motor MotorDisabler, lights LightsOff, pos PositionInvalidator, bus *event.Bus) *KillSwitch {
	return &KillSwitch{motor: motor, lights: lights, pos: pos, bus: bus}
}

// Trigger de-energizes the motor and illumination and invalidates the
// plate index. The system refuses to assume a known position after an
// emergency stop; the next motion must begin with homing.
func (k *KillSwitch) Trigger() error {
	debug.Info("EMERGENCY STOP")
	k.bus.Fault("Emergency stop: motor de-energized, homing required")

	err := k.motor.Disable()
	if lerr := k.lights.AllOff(); err == nil {
		err = lerr
	}
	k.pos.Invalidate()
	return err
}
