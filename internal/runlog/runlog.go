package runlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sybednar/seedling-imager/internal/debug"
)

// RunInfo is the one-per-run record stored as metadata.json in the
// run directory.
type RunInfo struct {
	StartedAt      time.Time `json:"started_at"`
	Plates         []int     `json:"plates"`
	DurationDays   int       `json:"duration_days"`
	CadenceMinutes int       `json:"cadence_minutes"`
	Mode           string    `json:"illumination_mode"`
	SettleSeconds  int       `json:"settle_seconds"`
}

// ImageRecord is one appended row of metadata.csv per captured image.
type ImageRecord struct {
	Timestamp        time.Time
	Cycle            int
	Plate            int
	Mode             string
	Path             string
	WidthPx          int
	HeightPx         int
	SizeBytes        int64
	AutoExposure     bool
	ExposureTimeUs   int
	AnalogueGain     float64
	AutoWhiteBalance bool
}

var csvHeader = []string{
	"timestamp", "cycle", "plate", "mode", "path",
	"width_px", "height_px", "file_size_bytes",
	"auto_exposure", "exposure_time_us", "analogue_gain", "auto_white_balance",
}

// Log owns one run directory: experiment_<timestamp>/ with plate1..6
// subdirectories, metadata.json, and an append-only metadata.csv.
// The layout is fixed; downstream tooling reads these files by name.
type Log struct {
	Dir string

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// Create builds the run directory under root and writes the run record.
func Create(root string, info RunInfo) (*Log, error) {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	dir := filepath.Join(root, "experiment_"+info.StartedAt.Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	for p := 1; p <= 6; p++ {
		if err := os.MkdirAll(filepath.Join(dir, fmt.Sprintf("plate%d", p)), 0o755); err != nil {
			return nil, fmt.Errorf("create plate dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write run record: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "metadata.csv"))
	if err != nil {
		return nil, fmt.Errorf("create metadata.csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()

	debug.Info("Run directory: %s", dir)
	return &Log{Dir: dir, file: f, w: w}, nil
}

// ImagePath returns the storage path for a capture on the given
// plate: plateN/plateN_<timestamp>.png.
func (l *Log) ImagePath(plate int, t time.Time) string {
	name := fmt.Sprintf("plate%d_%s.png", plate, t.Format("20060102_150405"))
	return filepath.Join(l.Dir, fmt.Sprintf("plate%d", plate), name)
}

// Append writes one image record and flushes it to disk.
func (l *Log) Append(rec ImageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return fmt.Errorf("run log closed")
	}

	row := []string{
		rec.Timestamp.Format(time.RFC3339),
		strconv.Itoa(rec.Cycle),
		strconv.Itoa(rec.Plate),
		rec.Mode,
		rec.Path,
		strconv.Itoa(rec.WidthPx),
		strconv.Itoa(rec.HeightPx),
		strconv.FormatInt(rec.SizeBytes, 10),
		strconv.FormatBool(rec.AutoExposure),
		strconv.Itoa(rec.ExposureTimeUs),
		strconv.FormatFloat(rec.AnalogueGain, 'f', -1, 64),
		strconv.FormatBool(rec.AutoWhiteBalance),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("append image record: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the metadata stream. Safe to call twice.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.file.Close()
	l.file = nil
	l.w = nil
	return err
}
