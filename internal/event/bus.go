package event

import (
	"strings"
	"sync"
	"time"
)

// Kind classifies a status event.
type Kind string

const (
	KindStatus      Kind = "status"
	KindPlate       Kind = "plate"
	KindSettleStart Kind = "settle_start"
	KindSettleEnd   Kind = "settle_end"
	KindImageSaved  Kind = "image_saved"
	KindRunFinished Kind = "run_finished"
	KindFault       Kind = "fault"
)

// Event is a single notification from the motion or experiment workers.
// The control surface (CLI printer, web SSE) consumes these; workers
// never wait on consumers.
type Event struct {
	Time  string `json:"t"`
	Kind  Kind   `json:"kind"`
	Plate int    `json:"plate,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// Bus distributes events to multiple subscribers. Slow subscribers may
// miss events (non-blocking, buffered), which is acceptable for status
// notification: the abort signal travels through context, not here.
type Bus struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{
		clients: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events and a cleanup
// function. The caller must call the returned cleanup when done.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish sends evt to all subscribers. Safe on a nil bus, so
// components can run unwired in tests.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.Time == "" {
		evt.Time = time.Now().Format(time.RFC3339)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- evt:
		default:
			// channel full, skip
		}
	}
}

// Status publishes a human-readable progress message.
func (b *Bus) Status(msg string) {
	b.Publish(Event{Kind: KindStatus, Msg: msg})
}

// Plate publishes a slot-index change.
func (b *Bus) Plate(idx int) {
	b.Publish(Event{Kind: KindPlate, Plate: idx})
}

// SettleStart announces the settle wait before capture on a plate.
func (b *Bus) SettleStart(idx int) {
	b.Publish(Event{Kind: KindSettleStart, Plate: idx})
}

// SettleEnd announces the settle wait is over.
func (b *Bus) SettleEnd(idx int) {
	b.Publish(Event{Kind: KindSettleEnd, Plate: idx})
}

// ImageSaved announces a stored capture.
func (b *Bus) ImageSaved(path string) {
	b.Publish(Event{Kind: KindImageSaved, Msg: path})
}

// RunFinished announces the end of a run with its termination reason.
func (b *Bus) RunFinished(reason string) {
	b.Publish(Event{Kind: KindRunFinished, Msg: reason})
}

// Fault announces a hardware or homing fault.
func (b *Bus) Fault(msg string) {
	b.Publish(Event{Kind: KindFault, Msg: msg})
}

// BusWriter wraps a Bus as io.Writer; each Write becomes a status
// event. Used to tee the debug logger into the broadcast stream.
func BusWriter(b *Bus) *busWriter {
	return &busWriter{b: b}
}

type busWriter struct {
	b *Bus
}

func (w *busWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.Status(msg)
	}
	return len(p), nil
}
