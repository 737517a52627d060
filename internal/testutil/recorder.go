package testutil

import (
	"sync"

	"github.com/hupe1980/modelmesh/core"
)

// Recorder is a core.Observer that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// OnEvent implements core.Observer.
func (r *Recorder) OnEvent(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// Finished returns the recorded call-finished events.
func (r *Recorder) Finished() []core.Event {
	var out []core.Event
	for _, ev := range r.Events() {
		if ev.Type == core.EventCallFinished {
			out = append(out, ev)
		}
	}
	return out
}

// Types returns the event types in arrival order.
func (r *Recorder) Types() []core.EventType {
	evs := r.Events()
	out := make([]core.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
