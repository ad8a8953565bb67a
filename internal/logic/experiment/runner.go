package experiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/event"
	"github.com/sybednar/seedling-imager/internal/hw/camera"
	"github.com/sybednar/seedling-imager/internal/hw/leds"
	"github.com/sybednar/seedling-imager/internal/logic/carousel"
	"github.com/sybednar/seedling-imager/internal/runlog"
)

// Termination reports how a run ended. Homing and camera-start
// failures happen before any cycle and are distinct from a mid-run
// abort.
type Termination int

const (
	Completed Termination = iota
	Aborted
	HomingFailed
	CameraStartFailed
)

func (t Termination) String() string {
	switch t {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case HomingFailed:
		return "homing failed"
	case CameraStartFailed:
		return "camera start failed"
	default:
		return "unknown"
	}
}

// Plan is the operator's experiment description. Immutable for the
// lifetime of a run.
type Plan struct {
	Plates   []int         // subset of 1..6, capture targets
	Duration time.Duration // total run length (days * 24h from the UI)
	Cadence  time.Duration // between cycle starts
	Mode     leds.Mode
	Settle   time.Duration // wait after illumination before capture; 0 = 10s
}

// Validate rejects plans that could never produce an image.
func (p Plan) Validate() error {
	if len(p.Plates) == 0 {
		return fmt.Errorf("no plates selected")
	}
	for _, n := range p.Plates {
		if n < 1 || n > carousel.NumPlates {
			return fmt.Errorf("invalid plate %d", n)
		}
	}
	if p.Duration < 0 {
		return fmt.Errorf("negative duration")
	}
	if p.Cadence <= 0 {
		return fmt.Errorf("cadence must be positive")
	}
	if p.Mode != leds.ModeGreen && p.Mode != leds.ModeInfrared {
		return fmt.Errorf("unknown illumination mode %q", p.Mode)
	}
	return nil
}

func (p Plan) selected(plate int) bool {
	for _, n := range p.Plates {
		if n == plate {
			return true
		}
	}
	return false
}

func (p Plan) settle() time.Duration {
	if p.Settle > 0 {
		return p.Settle
	}
	return 10 * time.Second
}

// Mover is the slice of the carousel the runner drives. The runner
// never touches the motor lines directly.
type Mover interface {
	Home(ctx context.Context) (int, error)
	Goto(ctx context.Context, target int) (int, error)
	Advance(ctx context.Context) (int, error)
}

// Illumination is the LED collaborator. Set must be idempotent and
// safe with on=false even when already off.
type Illumination interface {
	Set(on bool, mode leds.Mode) error
}

// RunLog receives the per-image metadata records.
type RunLog interface {
	ImagePath(plate int, t time.Time) string
	Append(rec runlog.ImageRecord) error
	Close() error
}

// Runner executes one experiment: repeated acquisition cycles across
// all six plates until the plan duration elapses or the context is
// cancelled. One Runner handles one run.
type Runner struct {
	plan   Plan
	car    Mover
	cam    camera.Camera
	lights Illumination
	log    RunLog
	bus    *event.Bus
}

func NewRunner(plan Plan, car Mover, cam camera.Camera, lights Illumination, log RunLog, bus *event.Bus) *Runner {
	return &Runner{
		plan:   plan,
		car:    car,
		cam:    cam,
		lights: lights,
		log:    log,
		bus:    bus,
	}
}

// Run drives the whole experiment and reports how it ended. Whatever
// the exit path, the camera is stopped, illumination is forced off,
// and the metadata stream is closed.
func (r *Runner) Run(ctx context.Context) Termination {
	reason := r.run(ctx)

	// Guaranteed finalization, idempotent.
	if err := r.lights.Set(false, r.plan.Mode); err != nil {
		debug.Error(fmt.Errorf("illumination off: %w", err))
	}
	if err := r.log.Close(); err != nil {
		debug.Error(fmt.Errorf("close run log: %w", err))
	}

	r.bus.Status(fmt.Sprintf("Experiment %s.", reason))
	r.bus.RunFinished(reason.String())
	return reason
}

func (r *Runner) run(ctx context.Context) Termination {
	if _, err := r.car.Home(ctx); err != nil {
		if errors.Is(err, carousel.ErrAborted) {
			return Aborted
		}
		r.bus.Status("Homing failed; experiment aborted.")
		debug.Error(err)
		return HomingFailed
	}

	if err := r.cam.Start(); err != nil {
		r.bus.Status(fmt.Sprintf("Camera start error: %v", err))
		debug.Error(err)
		return CameraStartFailed
	}
	defer func() {
		if err := r.cam.Stop(); err != nil {
			debug.Error(fmt.Errorf("camera stop: %w", err))
		}
	}()

	r.bus.Status(fmt.Sprintf(
		"Experiment started: %s, every %s. Illumination: %s",
		r.plan.Duration, r.plan.Cadence, r.plan.Mode,
	))

	end := time.Now().Add(r.plan.Duration)
	cycle := 0

	for time.Now().Before(end) && ctx.Err() == nil {
		// Every cycle begins at plate 1, no full homing in between.
		if term, ok := r.move(func() error {
			_, err := r.car.Goto(ctx, 1)
			return err
		}); !ok {
			return term
		}

		cycle++
		debug.Cycle(cycle)

		for plate := 1; plate <= carousel.NumPlates; plate++ {
			if ctx.Err() != nil {
				return Aborted
			}

			if err := r.lights.Set(true, r.plan.Mode); err != nil {
				debug.Error(fmt.Errorf("illumination on: %w", err))
			}

			r.bus.SettleStart(plate)
			r.bus.Status(fmt.Sprintf("Plate #%d: %s LED ON, waiting %s...",
				plate, r.plan.Mode, r.plan.settle()))
			settled := waitAbortable(ctx, r.plan.settle())
			r.bus.SettleEnd(plate)
			if !settled {
				return Aborted
			}

			if r.plan.selected(plate) {
				r.capture(ctx, cycle, plate)
			} else {
				r.bus.Status(fmt.Sprintf("Plate #%d: skipped (not selected).", plate))
			}

			if err := r.lights.Set(false, r.plan.Mode); err != nil {
				debug.Error(fmt.Errorf("illumination off: %w", err))
			}

			if term, ok := r.move(func() error {
				_, err := r.car.Advance(ctx)
				return err
			}); !ok {
				return term
			}

			if plate == carousel.NumPlates {
				r.bus.Status(fmt.Sprintf("Cycle complete. Waiting %s before next cycle...", r.plan.Cadence))
				if !waitAbortable(ctx, r.plan.Cadence) {
					return Aborted
				}
			}
		}
	}

	if ctx.Err() != nil {
		return Aborted
	}
	return Completed
}

// move runs one motion step and classifies its failure. A cooperative
// abort and a hardware fault both end the run as Aborted; the fault is
// additionally reported on the bus.
func (r *Runner) move(op func() error) (Termination, bool) {
	err := op()
	if err == nil {
		return Completed, true
	}
	if !errors.Is(err, carousel.ErrAborted) {
		r.bus.Fault(fmt.Sprintf("Motion fault: %v", err))
		debug.Error(err)
	}
	return Aborted, false
}

// capture stores one image and its metadata record. Failure is logged
// and the run continues.
func (r *Runner) capture(ctx context.Context, cycle, plate int) {
	now := time.Now()
	path := r.log.ImagePath(plate, now)

	if err := r.cam.Capture(ctx, path); err != nil {
		r.bus.Status(fmt.Sprintf("Capture failed on plate %d: %v", plate, err))
		debug.Error(err)
		return
	}

	rec := runlog.ImageRecord{
		Timestamp: now,
		Cycle:     cycle,
		Plate:     plate,
		Mode:      string(r.plan.Mode),
		Path:      path,
	}
	if w, h, ok := r.cam.LastDimensions(); ok {
		rec.WidthPx, rec.HeightPx = w, h
	}
	if fi, err := os.Stat(path); err == nil {
		rec.SizeBytes = fi.Size()
	}
	snap := r.cam.Snapshot()
	rec.AutoExposure = snap.AutoExposure
	rec.ExposureTimeUs = snap.ExposureTimeUs
	rec.AnalogueGain = snap.AnalogueGain
	rec.AutoWhiteBalance = snap.AutoWhiteBalance

	if err := r.log.Append(rec); err != nil {
		debug.Error(fmt.Errorf("append image record: %w", err))
	}

	r.bus.ImageSaved(path)
	r.bus.Status("Saved: " + path)
	debug.Capture(plate, path)
}

// waitAbortable blocks for d or until ctx is cancelled; it returns
// false on cancellation. Cancellation latency is not bounded by d.
func waitAbortable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
