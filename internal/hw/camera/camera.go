package camera

import "context"

// Snapshot reports the exposure controls in effect for a capture.
// The values are recorded with every image for downstream analysis.
type Snapshot struct {
	AutoExposure     bool    `json:"auto_exposure"`
	ExposureTimeUs   int     `json:"exposure_time_us"`
	AnalogueGain     float64 `json:"analogue_gain"`
	AutoWhiteBalance bool    `json:"auto_white_balance"`
}

// Camera is the capture collaborator used by the experiment runner.
// Start is called once per run and Stop once at the end; Capture
// stores a full-resolution image at path.
type Camera interface {
	Start() error
	Stop() error
	Capture(ctx context.Context, path string) error
	// LastDimensions returns the pixel size of the most recent capture,
	// or ok=false if nothing has been captured yet.
	LastDimensions() (width, height int, ok bool)
	Snapshot() Snapshot
}
