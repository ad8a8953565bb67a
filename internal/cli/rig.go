package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sybednar/seedling-imager/internal/config"
	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/estop"
	"github.com/sybednar/seedling-imager/internal/event"
	"github.com/sybednar/seedling-imager/internal/hw/camera"
	"github.com/sybednar/seedling-imager/internal/hw/gpio"
	"github.com/sybednar/seedling-imager/internal/hw/leds"
	"github.com/sybednar/seedling-imager/internal/hw/sensors"
	"github.com/sybednar/seedling-imager/internal/hw/stepper"
	"github.com/sybednar/seedling-imager/internal/logic/carousel"
	"github.com/sybednar/seedling-imager/internal/logic/experiment"
	"github.com/sybednar/seedling-imager/internal/runlog"
)

// rig is the assembled hardware stack shared by all commands.
type rig struct {
	cfg    *config.Config
	gpio   gpio.Driver
	motor  *stepper.Stepper
	car    *carousel.Carousel
	lights *leds.Panel
	bus    *event.Bus
	kill   *estop.KillSwitch
}

// buildRig loads configuration and wires the hardware stack.
func buildRig(cfgPath string) (*rig, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO: %w", err)
	}

	motor := stepper.NewStepper(drv, stepper.Config{
		StepPin:   cfg.Motor.StepPin,
		DirPin:    cfg.Motor.DirPin,
		EnablePin: cfg.Motor.EnablePin,
		StepDelay: cfg.StepDelay(),
	})
	debug.PrintStruct("Motor config", cfg.Motor)

	gate := sensors.NewGate(drv, sensors.Config{
		HallPin:    cfg.Sensors.HallPin,
		OpticalPin: cfg.Sensors.OpticalPin,
	})

	lights := leds.NewPanel(drv, leds.Config{
		GreenPin:    cfg.LEDs.GreenPin,
		InfraredPin: cfg.LEDs.InfraredPin,
	})

	bus := event.NewBus()

	car := carousel.New(motor, gate, carousel.Params{
		StepsPer60Deg:    cfg.Motor.StepsPer60Deg,
		StepDelay:        cfg.StepDelay(),
		SeekDelay:        cfg.SeekDelay(),
		SeekChunkSteps:   cfg.Homing.SeekChunkSteps,
		HomingTimeout:    cfg.HomingTimeout(),
		OpticalStepLimit: cfg.Homing.OpticalStepLimit,
		DriftStepLimit:   cfg.Drift.StepLimit,
	}, bus)

	kill := estop.NewKillSwitch(motor, lights, car, bus)

	return &rig{
		cfg:    cfg,
		gpio:   drv,
		motor:  motor,
		car:    car,
		lights: lights,
		bus:    bus,
		kill:   kill,
	}, nil
}

// close releases the GPIO handle, leaving pins in a safe state.
func (r *rig) close() {
	if err := r.gpio.Close(); err != nil {
		debug.Error(fmt.Errorf("closing GPIO driver: %w", err))
	}
}

// newCamera selects a camera implementation based on configuration.
func (r *rig) newCamera() (camera.Camera, error) {
	controls := camera.Snapshot{
		AutoExposure:     r.cfg.Camera.AutoExposure,
		ExposureTimeUs:   r.cfg.Camera.ExposureTimeUs,
		AnalogueGain:     r.cfg.Camera.AnalogueGain,
		AutoWhiteBalance: r.cfg.Camera.AutoWhiteBalance,
	}
	switch r.cfg.Camera.Type {
	case "rpicam-still":
		return camera.NewRpicamStill(camera.RpicamOptions{
			Command:        r.cfg.Camera.Command,
			WidthPx:        r.cfg.Camera.WidthPx,
			HeightPx:       r.cfg.Camera.HeightPx,
			CaptureTimeout: r.cfg.CaptureTimeout(),
			Controls:       controls,
		}), nil
	case "mock":
		return camera.NewMock(r.cfg.Camera.WidthPx, r.cfg.Camera.HeightPx, controls), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", r.cfg.Camera.Type)
	}
}

// runExperiment creates the run directory and executes the plan.
func (r *rig) runExperiment(ctx context.Context, plan experiment.Plan) (experiment.Termination, error) {
	if err := plan.Validate(); err != nil {
		return experiment.Aborted, fmt.Errorf("invalid plan: %w", err)
	}

	cam, err := r.newCamera()
	if err != nil {
		return experiment.CameraStartFailed, err
	}

	log, err := runlog.Create(r.cfg.Experiment.ImagesRoot, runlog.RunInfo{
		StartedAt:      time.Now(),
		Plates:         plan.Plates,
		DurationDays:   int(plan.Duration / (24 * time.Hour)),
		CadenceMinutes: int(plan.Cadence / time.Minute),
		Mode:           string(plan.Mode),
		SettleSeconds:  int(plan.Settle / time.Second),
	})
	if err != nil {
		return experiment.Aborted, fmt.Errorf("create run log: %w", err)
	}

	runner := experiment.NewRunner(plan, r.car, cam, r.lights, log, r.bus)
	return runner.Run(ctx), nil
}
