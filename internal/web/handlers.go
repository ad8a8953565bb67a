package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sybednar/seedling-imager/internal/event"
	"github.com/sybednar/seedling-imager/internal/runlog"
)

// RunRequest is the experiment plan as posted by the control page.
type RunRequest struct {
	Plates         []int  `json:"plates"`
	DurationDays   int    `json:"duration_days"`
	CadenceMinutes int    `json:"cadence_minutes"`
	Mode           string `json:"mode"`
}

// StateInfo is the carousel snapshot returned by GET /state.
type StateInfo struct {
	State   string `json:"state"`
	Plate   int    `json:"plate"`
	Homed   bool   `json:"homed"`
	Running bool   `json:"running"`
}

// FormConfig holds default values for the run form (from config).
type FormConfig struct {
	DurationDays   int    `json:"duration_days"`
	CadenceMinutes int    `json:"cadence_minutes"`
	Mode           string `json:"mode"`
	SettleSeconds  int    `json:"settle_seconds"`
}

// RunFunc executes a whole experiment; it is called in a goroutine
// from POST /run. JogFunc executes one manual motion ("home",
// "advance", "goto"); target is used only for "goto".
type (
	RunFunc      func(ctx context.Context, req RunRequest) error
	JogFunc      func(ctx context.Context, action string, target int) error
	StateFunc    func() StateInfo
	EstimateFunc func(req RunRequest) runlog.Estimate
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Bus          *event.Bus
	RunFn        RunFunc
	JogFn        JogFunc
	EStopFn      func() error // the kill switch; out-of-band, always served
	StateFn      StateFunc
	EstimateFn   EstimateFunc
	FormDefaults FormConfig
	staticFS     fs.FS

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc // active run or jog
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(bus *event.Bus, runFn RunFunc, jogFn JogFunc, estopFn func() error, stateFn StateFunc, estimateFn EstimateFunc, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Bus:          bus,
		RunFn:        runFn,
		JogFn:        jogFn,
		EStopFn:      estopFn,
		StateFn:      stateFn,
		EstimateFn:   estimateFn,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.FormDefaults)
}

// HandleState returns the carousel snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	st := h.StateFn()
	h.mu.Lock()
	st.Running = h.running
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// HandleEstimate returns the storage projection for a posted plan.
func (h *Handlers) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.EstimateFn(req))
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// claim marks a motion operation active. Only one run or jog at a time.
func (h *Handlers) claim(cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	h.cancel = cancel
	return true
}

func (h *Handlers) release() {
	h.mu.Lock()
	h.running = false
	h.cancel = nil
	h.mu.Unlock()
}

// HandleRun handles POST /run to start an experiment.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if len(req.Plates) == 0 {
		http.Error(w, "at least one plate must be selected", http.StatusBadRequest)
		return
	}
	for _, p := range req.Plates {
		if p < 1 || p > 6 {
			http.Error(w, "plates must be between 1 and 6", http.StatusBadRequest)
			return
		}
	}
	if req.DurationDays < 0 || req.DurationDays > 7 {
		http.Error(w, "duration_days must be between 0 and 7", http.StatusBadRequest)
		return
	}
	if req.CadenceMinutes < 1 || req.CadenceMinutes > 360 {
		http.Error(w, "cadence_minutes must be between 1 and 360", http.StatusBadRequest)
		return
	}

	if h.RunFn == nil {
		http.Error(w, "experiment not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !h.claim(cancel) {
		cancel()
		http.Error(w, "operation already in progress", http.StatusConflict)
		return
	}

	// Run in goroutine; clear running when done
	go func() {
		defer h.release()
		if err := h.RunFn(ctx, req); err != nil {
			h.Bus.Status("Experiment failed: " + err.Error())
			log.Printf("experiment failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleAbort handles POST /abort: cooperative cancellation of the
// active run or jog.
func (h *Handlers) HandleAbort(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()

	if cancel == nil {
		http.Error(w, "no operation running", http.StatusConflict)
		return
	}
	cancel()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "aborting"})
}

// HandleEStop handles POST /stop: the out-of-band emergency stop. It
// cuts the enable line immediately and also cancels any active worker.
func (h *Handlers) HandleEStop(w http.ResponseWriter, r *http.Request) {
	if h.EStopFn == nil {
		http.Error(w, "emergency stop not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.EStopFn(); err != nil {
		http.Error(w, "emergency stop error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
}

// HandleJog handles POST /motion/{home,advance,goto} for manual moves
// outside a run.
func (h *Handlers) HandleJog(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := 0
		if action == "goto" {
			var body struct {
				Target int `json:"target"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
			if body.Target < 1 || body.Target > 6 {
				http.Error(w, "target must be between 1 and 6", http.StatusBadRequest)
				return
			}
			target = body.Target
		}

		if h.JogFn == nil {
			http.Error(w, "motion not configured", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		if !h.claim(cancel) {
			cancel()
			http.Error(w, "operation already in progress", http.StatusConflict)
			return
		}

		go func() {
			defer h.release()
			if err := h.JogFn(ctx, action, target); err != nil {
				h.Bus.Status("Motion failed: " + err.Error())
				log.Printf("motion %s failed: %v", action, err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "started"})
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Bus.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			w.Write([]byte("data: " + string(data) + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
