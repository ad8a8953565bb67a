package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sybednar/seedling-imager/internal/hw/camera"
	"github.com/sybednar/seedling-imager/internal/hw/leds"
	"github.com/sybednar/seedling-imager/internal/logic/experiment"
)

func writeRigConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
motor:
  step_pin: 20
  dir_pin: 16
  enable_pin: 21
sensors:
  hall_pin: 26
  optical_pin: 19
leds:
  green_pin: 12
  infrared_pin: 13
camera:
  type: mock
  width_px: 32
  height_px: 18
experiment:
  images_root: %s
  settle_seconds: 1
defaults:
  mock_gpio: true
`, filepath.Join(dir, "images"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuildRig(t *testing.T) {
	r, err := buildRig(writeRigConfig(t))
	if err != nil {
		t.Fatalf("buildRig: %v", err)
	}
	defer r.close()

	cam, err := r.newCamera()
	if err != nil {
		t.Fatalf("newCamera: %v", err)
	}
	if _, ok := cam.(*camera.Mock); !ok {
		t.Errorf("camera = %T, want *camera.Mock", cam)
	}

	// The mock driver reads every input as triggered, so homing
	// completes without motion.
	plate, err := r.car.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if plate != 1 {
		t.Errorf("plate = %d, want 1", plate)
	}
}

func TestNewCamera_UnsupportedType(t *testing.T) {
	r, err := buildRig(writeRigConfig(t))
	if err != nil {
		t.Fatalf("buildRig: %v", err)
	}
	defer r.close()

	r.cfg.Camera.Type = "webcam"
	if _, err := r.newCamera(); err == nil {
		t.Error("expected an error for an unsupported camera type")
	}
}

func TestRunExperiment_ZeroDuration(t *testing.T) {
	r, err := buildRig(writeRigConfig(t))
	if err != nil {
		t.Fatalf("buildRig: %v", err)
	}
	defer r.close()

	term, err := r.runExperiment(context.Background(), experiment.Plan{
		Plates:  []int{1},
		Cadence: time.Minute,
		Mode:    leds.ModeGreen,
		Settle:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("runExperiment: %v", err)
	}
	if term != experiment.Completed {
		t.Errorf("termination = %v, want completed", term)
	}

	// The run directory exists even for an empty run.
	entries, err := os.ReadDir(r.cfg.Experiment.ImagesRoot)
	if err != nil || len(entries) != 1 {
		t.Fatalf("images root entries = %v, err = %v", entries, err)
	}
}

func TestRunExperiment_InvalidPlan(t *testing.T) {
	r, err := buildRig(writeRigConfig(t))
	if err != nil {
		t.Fatalf("buildRig: %v", err)
	}
	defer r.close()

	if _, err := r.runExperiment(context.Background(), experiment.Plan{}); err == nil {
		t.Error("expected a validation error for an empty plan")
	}
}
