package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/sybednar/seedling-imager/internal/debug"
)

// Mock is a Camera for development machines without a camera stack.
// Capture writes a small flat PNG so the rest of the pipeline (paths,
// metadata records, file sizes) behaves as in production.
type Mock struct {
	WidthPx  int
	HeightPx int
	Controls Snapshot

	started  bool
	captured bool
}

func NewMock(width, height int, controls Snapshot) *Mock {
	if width <= 0 {
		width = 64
	}
	if height <= 0 {
		height = 36
	}
	return &Mock{WidthPx: width, HeightPx: height, Controls: controls}
}

func (m *Mock) Start() error {
	debug.Info("Camera: using MOCK backend (%dx%d)", m.WidthPx, m.HeightPx)
	m.started = true
	return nil
}

func (m *Mock) Stop() error {
	m.started = false
	return nil
}

func (m *Mock) Capture(ctx context.Context, path string) error {
	if !m.started {
		return fmt.Errorf("mock camera not started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, m.WidthPx, m.HeightPx))
	for y := 0; y < m.HeightPx; y++ {
		for x := 0; x < m.WidthPx; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 60, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return err
	}
	m.captured = true
	return nil
}

func (m *Mock) LastDimensions() (int, int, bool) {
	return m.WidthPx, m.HeightPx, m.captured
}

func (m *Mock) Snapshot() Snapshot {
	return m.Controls
}
