package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorConfig holds the carousel stepper wiring and motion constants.
// These are loaded once at startup and never mutated at runtime.
type MotorConfig struct {
	StepPin       int `yaml:"step_pin"`
	DirPin        int `yaml:"dir_pin"`
	EnablePin     int `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPer60Deg int `yaml:"steps_per_60_deg"`
	StepDelayUs   int `yaml:"step_delay_us"` // per half-cycle of the STEP pulse
}

// SensorsConfig holds the two position sensor input pins.
type SensorsConfig struct {
	HallPin    int `yaml:"hall_pin"`    // coarse home switch
	OpticalPin int `yaml:"optical_pin"` // fine index
}

// HomingConfig bounds the two-phase homing search.
type HomingConfig struct {
	TimeoutS         int `yaml:"timeout_s"`          // coarse search wall-clock timeout
	SeekChunkSteps   int `yaml:"seek_chunk_steps"`   // burst size during coarse search
	SeekDelayUs      int `yaml:"seek_delay_us"`      // faster cadence for coarse search
	OpticalStepLimit int `yaml:"optical_step_limit"` // fine search cap (warning only)
}

// DriftConfig bounds the per-revolution drift correction.
type DriftConfig struct {
	StepLimit int `yaml:"step_limit"` // safety cap on correction steps
}

// LEDConfig holds the illumination output pins.
type LEDConfig struct {
	GreenPin    int `yaml:"green_pin"`
	InfraredPin int `yaml:"infrared_pin"`
}

// CameraConfig describes the capture backend and its exposure controls.
// Type selects a concrete implementation ("rpicam-still" or "mock").
type CameraConfig struct {
	Type             string  `yaml:"type"`
	Command          string  `yaml:"command"` // capture binary, default "rpicam-still"
	WidthPx          int     `yaml:"width_px"`
	HeightPx         int     `yaml:"height_px"`
	AutoExposure     bool    `yaml:"auto_exposure"`
	ExposureTimeUs   int     `yaml:"exposure_time_us"` // used only when auto_exposure is false
	AnalogueGain     float64 `yaml:"analogue_gain"`
	AutoWhiteBalance bool    `yaml:"auto_white_balance"`
	CaptureTimeoutS  int     `yaml:"capture_timeout_s"`
}

// ExperimentConfig contains acquisition-cycle parameters.
type ExperimentConfig struct {
	ImagesRoot    string  `yaml:"images_root"`
	SettleSeconds int     `yaml:"settle_seconds"` // wait after illumination before capture
	AvgImageMB    float64 `yaml:"avg_image_mb"`   // for storage estimates
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // 0=off, 1=info, 2=live, 3=verbose, 4=trace
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Motor      MotorConfig      `yaml:"motor"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Homing     HomingConfig     `yaml:"homing"`
	Drift      DriftConfig      `yaml:"drift"`
	LEDs       LEDConfig        `yaml:"leds"`
	Camera     CameraConfig     `yaml:"camera"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults validates required fields and fills defaults. The
// motion constants default to the carousel's measured values.
func (c *Config) applyDefaults() error {
	if c.Motor.StepPin <= 0 || c.Motor.DirPin <= 0 {
		return fmt.Errorf("motor.step_pin and motor.dir_pin are required")
	}
	if c.Sensors.HallPin <= 0 || c.Sensors.OpticalPin <= 0 {
		return fmt.Errorf("sensors.hall_pin and sensors.optical_pin are required")
	}
	if c.Motor.StepsPer60Deg <= 0 {
		c.Motor.StepsPer60Deg = 800
	}
	if c.Motor.StepDelayUs <= 0 {
		c.Motor.StepDelayUs = 2500
	}
	if c.Homing.TimeoutS <= 0 {
		c.Homing.TimeoutS = 60
	}
	if c.Homing.SeekChunkSteps <= 0 {
		c.Homing.SeekChunkSteps = 10
	}
	if c.Homing.SeekDelayUs <= 0 {
		c.Homing.SeekDelayUs = 1000
	}
	if c.Homing.OpticalStepLimit <= 0 {
		c.Homing.OpticalStepLimit = 2000
	}
	if c.Drift.StepLimit <= 0 {
		c.Drift.StepLimit = 500
	}

	if c.Camera.Type == "" {
		return fmt.Errorf("camera.type is required")
	}
	if c.Camera.Command == "" {
		c.Camera.Command = "rpicam-still"
	}
	if c.Camera.WidthPx <= 0 {
		c.Camera.WidthPx = 4608
	}
	if c.Camera.HeightPx <= 0 {
		c.Camera.HeightPx = 2592
	}
	if c.Camera.AnalogueGain <= 0 {
		c.Camera.AnalogueGain = 1.0
	}
	if c.Camera.ExposureTimeUs <= 0 {
		c.Camera.ExposureTimeUs = 20000
	}
	if c.Camera.CaptureTimeoutS <= 0 {
		c.Camera.CaptureTimeoutS = 30
	}

	if c.Experiment.ImagesRoot == "" {
		return fmt.Errorf("experiment.images_root is required")
	}
	if c.Experiment.SettleSeconds <= 0 {
		c.Experiment.SettleSeconds = 10
	}
	if c.Experiment.AvgImageMB <= 0 {
		c.Experiment.AvgImageMB = 15.0
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be 0-4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// StepDelay returns the STEP pulse half-cycle duration for normal moves.
func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Motor.StepDelayUs) * time.Microsecond
}

// SeekDelay returns the faster half-cycle duration for the coarse homing search.
func (c *Config) SeekDelay() time.Duration {
	return time.Duration(c.Homing.SeekDelayUs) * time.Microsecond
}

// HomingTimeout returns the wall-clock limit for the coarse homing search.
func (c *Config) HomingTimeout() time.Duration {
	return time.Duration(c.Homing.TimeoutS) * time.Second
}

// SettleWait returns the illumination settle interval before capture.
func (c *Config) SettleWait() time.Duration {
	return time.Duration(c.Experiment.SettleSeconds) * time.Second
}

// CaptureTimeout returns the per-image capture deadline.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Camera.CaptureTimeoutS) * time.Second
}
