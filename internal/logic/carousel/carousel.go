package carousel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/event"
	"github.com/sybednar/seedling-imager/internal/hw/stepper"
)

// NumPlates is the number of slots on the carousel.
const NumPlates = 6

// State is the carousel controller state.
type State int

const (
	Uninitialized State = iota
	Homing
	Idle
	Advancing
	DriftCorrecting
	Aborted
	Fault
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Homing:
		return "homing"
	case Idle:
		return "idle"
	case Advancing:
		return "advancing"
	case DriftCorrecting:
		return "drift-correcting"
	case Aborted:
		return "aborted"
	case Fault:
		return "fault"
	default:
		return "unknown"
	}
}

var (
	// ErrHomingTimeout means the coarse search never saw the hall
	// switch within the wall-clock limit. Recoverable by a fresh Home.
	ErrHomingTimeout = errors.New("homing timeout: hall switch not detected")
	// ErrAborted means the operation was cancelled cooperatively.
	ErrAborted = errors.New("motion aborted")
	// ErrNotHomed means the plate index cannot be trusted yet.
	ErrNotHomed = errors.New("carousel not homed")
	// ErrInvalidTarget means the requested plate is outside 1..6.
	ErrInvalidTarget = errors.New("invalid target plate")
	// ErrBusy means another motion operation is in progress.
	ErrBusy = errors.New("motion operation already in progress")
)

// Motor is the slice of the stepper the carousel drives.
type Motor interface {
	Enable() error
	Disable() error
	StepBurst(ctx context.Context, count int, delay time.Duration) (stepper.BurstResult, int, error)
}

// Sensors reads the two position sensors. Both report true while the
// sensor has NOT triggered (the keep-moving condition).
type Sensors interface {
	HomeSwitchActive() (bool, error)
	OpticalIndexActive() (bool, error)
}

// Params are the motion constants, fixed for the life of the carousel.
type Params struct {
	StepsPer60Deg    int
	StepDelay        time.Duration // half-cycle for normal moves
	SeekDelay        time.Duration // faster half-cycle for coarse homing
	SeekChunkSteps   int           // burst size during coarse homing
	HomingTimeout    time.Duration
	OpticalStepLimit int // fine homing cap, warning only
	DriftStepLimit   int // drift correction cap, warning only
}

// Carousel sequences homing, single-slot advances with per-revolution
// drift correction, and multi-slot goto. It owns the motion line group
// and the sensor lines exclusively; the plate index is only meaningful
// after a successful homing.
type Carousel struct {
	motor   Motor
	sensors Sensors
	params  Params
	bus     *event.Bus

	opMu sync.Mutex // serializes motion operations

	mu    sync.Mutex // guards state/plate/homed
	state State
	plate int
	homed bool
}

func New(motor Motor, sensors Sensors, params Params, bus *event.Bus) *Carousel {
	return &Carousel{
		motor:   motor,
		sensors: sensors,
		params:  params,
		bus:     bus,
		state:   Uninitialized,
	}
}

// State returns the current controller state.
func (c *Carousel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Plate returns the current plate index and whether it is trustworthy.
// ok is false until a homing has succeeded.
func (c *Carousel) Plate() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plate, c.homed
}

// Invalidate drops trust in the plate index. Called by the kill switch
// after an emergency stop: the motor may have lost steps while
// de-energized, so any further motion must start with a fresh Home.
func (c *Carousel) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homed = false
	c.state = Uninitialized
	debug.Info("Carousel position invalidated; homing required")
}

func (c *Carousel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Home runs the two-phase homing search and aligns plate 1.
// Phase 1 bursts short step groups at fast cadence until the hall
// switch triggers, bounded by a wall-clock timeout. Phase 2 single-
// steps at normal cadence until the optical index triggers, bounded by
// a step cap; exceeding the cap is a warning, the hall switch is
// authoritative. Returns the plate index (always 1) on success.
func (c *Carousel) Home(ctx context.Context) (int, error) {
	if !c.opMu.TryLock() {
		return 0, ErrBusy
	}
	defer c.opMu.Unlock()

	c.setState(Homing)
	c.bus.Status("Starting homing... Fast rotation")
	debug.Section("Homing")

	if err := c.motor.Enable(); err != nil {
		c.setState(Fault)
		return 0, fmt.Errorf("enable motor: %w", err)
	}

	deadline := time.Now().Add(c.params.HomingTimeout)

	// Phase 1: coarse seek until the hall switch triggers.
	for {
		active, err := c.sensors.HomeSwitchActive()
		if err != nil {
			c.setState(Fault)
			return 0, fmt.Errorf("read hall switch: %w", err)
		}
		if !active {
			break
		}
		if time.Now().After(deadline) {
			c.setState(Fault)
			c.bus.Fault("Homing timeout! Switch not detected.")
			return 0, ErrHomingTimeout
		}
		res, _, err := c.motor.StepBurst(ctx, c.params.SeekChunkSteps, c.params.SeekDelay)
		if err != nil {
			c.setState(Fault)
			return 0, fmt.Errorf("homing step burst: %w", err)
		}
		if res == stepper.BurstAborted {
			c.setState(Aborted)
			c.bus.Status("Homing aborted.")
			return 0, ErrAborted
		}
	}

	c.bus.Status("Hall sensor triggered! Checking optical sensor...")
	debug.Verbose("Hall switch triggered, starting fine seek")

	// Phase 2: fine seek until the optical index triggers.
	steps := 0
	for {
		active, err := c.sensors.OpticalIndexActive()
		if err != nil {
			c.setState(Fault)
			return 0, fmt.Errorf("read optical index: %w", err)
		}
		if !active {
			c.bus.Status(fmt.Sprintf("Optical sensor triggered after %d steps", steps))
			break
		}
		if steps >= c.params.OpticalStepLimit {
			// Best effort only; the hall switch already established home.
			c.bus.Status("Optical sensor NOT detected within limit")
			debug.Info("Optical index not found within %d steps", c.params.OpticalStepLimit)
			break
		}
		res, _, err := c.motor.StepBurst(ctx, 1, c.params.StepDelay)
		if err != nil {
			c.setState(Fault)
			return 0, fmt.Errorf("homing fine step: %w", err)
		}
		if res == stepper.BurstAborted {
			c.setState(Aborted)
			c.bus.Status("Homing aborted.")
			return 0, ErrAborted
		}
		steps++
	}

	c.mu.Lock()
	c.state = Idle
	c.plate = 1
	c.homed = true
	c.mu.Unlock()

	c.bus.Status("Homing complete. Plate #1 aligned.")
	c.bus.Plate(1)
	debug.Plate(1)
	return 1, nil
}

// Advance rotates exactly one slot clockwise. The plate index is
// committed only after the full burst completes; an abort mid-burst
// leaves it at its previous value. Landing on plate 1 (a completed
// revolution) triggers drift correction against the optical index.
func (c *Carousel) Advance(ctx context.Context) (int, error) {
	if !c.opMu.TryLock() {
		return 0, ErrBusy
	}
	defer c.opMu.Unlock()
	return c.advanceLocked(ctx)
}

func (c *Carousel) advanceLocked(ctx context.Context) (int, error) {
	c.mu.Lock()
	if !c.homed {
		c.mu.Unlock()
		return 0, ErrNotHomed
	}
	prev := c.plate
	c.state = Advancing
	c.mu.Unlock()

	res, _, err := c.motor.StepBurst(ctx, c.params.StepsPer60Deg, c.params.StepDelay)
	if err != nil {
		c.setState(Fault)
		return prev, fmt.Errorf("advance step burst: %w", err)
	}
	if res == stepper.BurstAborted {
		c.setState(Aborted)
		return prev, ErrAborted
	}

	next := prev%NumPlates + 1
	c.mu.Lock()
	c.plate = next
	c.mu.Unlock()

	c.bus.Status(fmt.Sprintf("Moved to Plate #%d", next))
	c.bus.Plate(next)
	debug.Plate(next)

	if next == 1 {
		if err := c.driftCorrect(ctx); err != nil {
			return next, err
		}
	}

	c.setState(Idle)
	return next, nil
}

// driftCorrect cancels accumulated open-loop slip once per revolution:
// single steps forward until the optical index triggers or the safety
// cap is hit. Zero steps and N steps are both success outcomes and are
// reported distinctly.
func (c *Carousel) driftCorrect(ctx context.Context) error {
	c.setState(DriftCorrecting)
	c.bus.Status("Checking optical sensor for drift correction...")

	extra := 0
	for {
		active, err := c.sensors.OpticalIndexActive()
		if err != nil {
			c.setState(Fault)
			return fmt.Errorf("read optical index: %w", err)
		}
		if !active {
			break
		}
		if extra >= c.params.DriftStepLimit {
			c.bus.Status("Optical sensor not detected within limit!")
			debug.Info("Drift correction cap reached (%d steps)", c.params.DriftStepLimit)
			break
		}
		res, _, err := c.motor.StepBurst(ctx, 1, c.params.StepDelay)
		if err != nil {
			c.setState(Fault)
			return fmt.Errorf("drift correction step: %w", err)
		}
		if res == stepper.BurstAborted {
			// Plate 1 is already committed; only the fine alignment is lost.
			c.setState(Aborted)
			return ErrAborted
		}
		extra++
	}

	if extra == 0 {
		c.bus.Status("Drift correction: already aligned at Plate #1 (0 extra steps)")
	} else {
		c.bus.Status(fmt.Sprintf("Drift correction applied with %d extra steps. Plate reset to #1", extra))
	}
	debug.Verbose("Drift correction: %d extra steps", extra)
	return nil
}

// Goto advances slot by slot until the carousel reaches target.
// Bounded by one full revolution so it terminates even if the index
// is inconsistent.
func (c *Carousel) Goto(ctx context.Context, target int) (int, error) {
	if target < 1 || target > NumPlates {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	if !c.opMu.TryLock() {
		return 0, ErrBusy
	}
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.homed {
		c.mu.Unlock()
		return 0, ErrNotHomed
	}
	current := c.plate
	c.mu.Unlock()

	if current != target {
		c.bus.Status(fmt.Sprintf("Moving to Plate #%d from #%d", target, current))
	}

	for i := 0; i < NumPlates && current != target; i++ {
		var err error
		current, err = c.advanceLocked(ctx)
		if err != nil {
			return current, err
		}
	}
	return current, nil
}
