package debug

import (
	"bytes"
	"strings"
	"testing"
)

func capture(t *testing.T, debugLevel int, fn func()) string {
	t.Helper()
	Init(debugLevel)
	var buf bytes.Buffer
	SetOutput(&buf)
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	out := capture(t, LevelInfo, func() {
		Info("homing done")
		Live("at plate")
		Verbose("step counts")
		Trace("gpio write")
	})
	if !strings.Contains(out, "[INFO] homing done") {
		t.Errorf("info missing from %q", out)
	}
	for _, tag := range []string{"[LIVE]", "[VERBOSE]", "[TRACE]"} {
		if strings.Contains(out, tag) {
			t.Errorf("%s should be filtered at level 1, got %q", tag, out)
		}
	}
}

func TestTraceEnablesEverything(t *testing.T) {
	out := capture(t, LevelTrace, func() {
		Info("a")
		Live("b")
		Verbose("c")
		GPIO("WritePin", 20, true)
	})
	for _, want := range []string{"[INFO] a", "[LIVE] b", "[VERBOSE] c", "[GPIO] WritePin pin=20 value=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLevelOffIsSilent(t *testing.T) {
	Init(LevelOff)
	// No logger is created at level 0; these must not panic.
	Info("nothing")
	Plate(3)
	Error(nil)
}

func TestDomainHelpers(t *testing.T) {
	out := capture(t, LevelLive, func() {
		Plate(4)
		Cycle(2)
		Capture(4, "/data/plate4/plate4_20260314_100007.png")
	})
	for _, want := range []string{"At plate #4", "Starting cycle 2", "Plate #4 captured"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestFmt(t *testing.T) {
	Init(LevelInfo)
	if got := Fmt("plate %d", 3); got != "plate 3" {
		t.Errorf("Fmt = %q", got)
	}
	Init(LevelOff)
	if got := Fmt("plate %d", 3); got != "" {
		t.Errorf("Fmt at level 0 = %q, want empty", got)
	}
}
