package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sybednar/seedling-imager/internal/debug"
)

// RpicamOptions configures the rpicam-still backend.
type RpicamOptions struct {
	Command        string // capture binary, e.g. "rpicam-still"
	WidthPx        int
	HeightPx       int
	CaptureTimeout time.Duration
	Controls       Snapshot
}

// RpicamStill captures by shelling out to rpicam-still (libcamera).
// Each Capture is one process invocation; the pipeline warm-up cost is
// acceptable at this cadence (minutes between cycles).
type RpicamStill struct {
	opts     RpicamOptions
	lastW    int
	lastH    int
	captured bool
}

func NewRpicamStill(opts RpicamOptions) *RpicamStill {
	if opts.Command == "" {
		opts.Command = "rpicam-still"
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 30 * time.Second
	}
	return &RpicamStill{opts: opts}
}

// Start verifies the capture binary is available. Failing here aborts
// the run before any cycle begins.
func (c *RpicamStill) Start() error {
	if _, err := exec.LookPath(c.opts.Command); err != nil {
		return fmt.Errorf("capture command %q not found: %w", c.opts.Command, err)
	}
	debug.Info("Camera: %s ready (%dx%d)", c.opts.Command, c.opts.WidthPx, c.opts.HeightPx)
	return nil
}

func (c *RpicamStill) Stop() error {
	return nil
}

// Capture runs one rpicam-still invocation writing to path.
func (c *RpicamStill) Capture(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.CaptureTimeout)
	defer cancel()

	args := []string{
		"--nopreview",
		"--immediate",
		"--width", strconv.Itoa(c.opts.WidthPx),
		"--height", strconv.Itoa(c.opts.HeightPx),
		"-o", path,
	}
	ctrl := c.opts.Controls
	if !ctrl.AutoExposure {
		args = append(args,
			"--shutter", strconv.Itoa(ctrl.ExposureTimeUs),
			"--gain", strconv.FormatFloat(ctrl.AnalogueGain, 'f', -1, 64),
		)
	}
	if !ctrl.AutoWhiteBalance {
		// Fixed unity gains instead of the AWB loop.
		args = append(args, "--awbgains", "1.0,1.0")
	}

	debug.Verbose("Camera: %s %v", c.opts.Command, args)
	cmd := exec.CommandContext(ctx, c.opts.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", c.opts.Command, err, out)
	}

	c.lastW, c.lastH = c.opts.WidthPx, c.opts.HeightPx
	c.captured = true
	return nil
}

func (c *RpicamStill) LastDimensions() (int, int, bool) {
	return c.lastW, c.lastH, c.captured
}

func (c *RpicamStill) Snapshot() Snapshot {
	return c.opts.Controls
}
