package runlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testInfo() RunInfo {
	return RunInfo{
		StartedAt:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Plates:         []int{1, 3, 5},
		DurationDays:   2,
		CadenceMinutes: 30,
		Mode:           "Green",
		SettleSeconds:  10,
	}
}

func TestCreate_Layout(t *testing.T) {
	root := t.TempDir()
	l, err := Create(root, testInfo())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Close()

	want := filepath.Join(root, "experiment_20260314_092653")
	if l.Dir != want {
		t.Errorf("Dir = %q, want %q", l.Dir, want)
	}
	for p := 1; p <= 6; p++ {
		sub := filepath.Join(l.Dir, fmt.Sprintf("plate%d", p))
		if fi, err := os.Stat(sub); err != nil || !fi.IsDir() {
			t.Errorf("plate dir %s missing", sub)
		}
	}

	data, err := os.ReadFile(filepath.Join(l.Dir, "metadata.json"))
	if err != nil {
		t.Fatalf("read metadata.json: %v", err)
	}
	var got RunInfo
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal metadata.json: %v", err)
	}
	if got.DurationDays != 2 || got.CadenceMinutes != 30 || got.Mode != "Green" {
		t.Errorf("run record = %+v", got)
	}
	if len(got.Plates) != 3 || got.Plates[1] != 3 {
		t.Errorf("plates = %v, want [1 3 5]", got.Plates)
	}
}

func TestImagePath(t *testing.T) {
	root := t.TempDir()
	l, err := Create(root, testInfo())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Close()

	ts := time.Date(2026, 3, 14, 10, 0, 7, 0, time.UTC)
	got := l.ImagePath(4, ts)
	want := filepath.Join(l.Dir, "plate4", "plate4_20260314_100007.png")
	if got != want {
		t.Errorf("ImagePath = %q, want %q", got, want)
	}
}

func TestAppend_CSVRows(t *testing.T) {
	root := t.TempDir()
	l, err := Create(root, testInfo())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := ImageRecord{
		Timestamp:        time.Date(2026, 3, 14, 10, 0, 7, 0, time.UTC),
		Cycle:            1,
		Plate:            3,
		Mode:             "Green",
		Path:             "plate3/plate3_20260314_100007.png",
		WidthPx:          4608,
		HeightPx:         2592,
		SizeBytes:        15728640,
		AutoExposure:     false,
		ExposureTimeUs:   20000,
		AnalogueGain:     1.5,
		AutoWhiteBalance: false,
	}
	if err := l.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(l.Dir, "metadata.csv"))
	if err != nil {
		t.Fatalf("open metadata.csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 record", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	row := rows[1]
	wantRow := []string{
		"2026-03-14T10:00:07Z", "1", "3", "Green",
		"plate3/plate3_20260314_100007.png",
		"4608", "2592", "15728640",
		"false", "20000", "1.5", "false",
	}
	for i := range wantRow {
		if row[i] != wantRow[i] {
			t.Errorf("column %s = %q, want %q", csvHeader[i], row[i], wantRow[i])
		}
	}
}

func TestAppend_AfterCloseFails(t *testing.T) {
	l, err := Create(t.TempDir(), testInfo())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close twice is fine.
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := l.Append(ImageRecord{Plate: 1}); err == nil {
		t.Error("Append after Close should fail")
	}
}

func TestEstimateStorage(t *testing.T) {
	// 1 day at 30 min cadence = 48 cycles; 3 plates = 144 images.
	est := EstimateStorage(t.TempDir(), 3, 1, 30, 15.0)
	if est.Cycles != 48 {
		t.Errorf("cycles = %d, want 48", est.Cycles)
	}
	if est.Images != 144 {
		t.Errorf("images = %d, want 144", est.Images)
	}
	wantGB := 144 * 15.0 / 1024.0
	if est.EstGB < wantGB-0.001 || est.EstGB > wantGB+0.001 {
		t.Errorf("EstGB = %v, want %v", est.EstGB, wantGB)
	}
	if !est.HaveFree {
		t.Error("statfs on an existing dir should report free space")
	}
	if est.FreeGB <= 0 {
		t.Errorf("FreeGB = %v, want > 0", est.FreeGB)
	}
}

func TestEstimateStorage_ZeroDays(t *testing.T) {
	est := EstimateStorage(t.TempDir(), 6, 0, 30, 15.0)
	if est.Cycles != 0 || est.Images != 0 || est.EstGB != 0 {
		t.Errorf("zero-day estimate = %+v, want all zero", est)
	}
}
