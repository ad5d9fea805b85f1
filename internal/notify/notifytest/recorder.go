// Package notifytest provides publishers for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

// Recorder is a Publisher that remembers every event. Set Err to make
// publishing fail after recording.
type Recorder struct {
	mu     sync.Mutex
	events []model.ChangeEvent
	Err    error
}

// Ensure Recorder implements Publisher
var _ notify.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(ctx context.Context, event model.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []model.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Subjects returns the subject of every recorded event in order
func (r *Recorder) Subjects() []model.Subject {
	events := r.Events()
	out := make([]model.Subject, len(events))
	for i, e := range events {
		out[i] = e.Subject
	}
	return out
}
