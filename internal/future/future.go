// Package future provides the completion handles returned by asynchronous
// device execution.
//
// An Event is created by a device runtime when work is enqueued and is
// completed exactly once by the runtime. A Future is owned by the caller and
// populated by operators that enqueue work; host operators leave it empty,
// which reads as already complete.
package future

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallStats records when a device command moved through the queue.
type CallStats struct {
	Enqueued time.Time
	Started  time.Time
	Finished time.Time
}

// Duration returns the device execution time (start to finish).
func (s CallStats) Duration() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// QueueDelay returns how long the command waited before starting.
func (s CallStats) QueueDelay() time.Duration {
	if s.Enqueued.IsZero() || s.Started.IsZero() {
		return 0
	}
	return s.Started.Sub(s.Enqueued)
}

// Event is the completion handle of one enqueued device command.
type Event struct {
	ID    uuid.UUID
	Label string

	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	err   error
	stats CallStats
}

// NewEvent returns a pending event stamped with its enqueue time.
func NewEvent(label string) *Event {
	return &Event{
		ID:    uuid.New(),
		Label: label,
		done:  make(chan struct{}),
		stats: CallStats{Enqueued: time.Now()},
	}
}

// Start records the moment the device picked the command up.
func (e *Event) Start() {
	e.mu.Lock()
	e.stats.Started = time.Now()
	e.mu.Unlock()
}

// Complete marks the event finished with err. Only the first call has effect.
func (e *Event) Complete(err error) {
	e.once.Do(func() {
		e.mu.Lock()
		e.err = err
		e.stats.Finished = time.Now()
		if e.stats.Started.IsZero() {
			e.stats.Started = e.stats.Finished
		}
		e.mu.Unlock()
		close(e.done)
	})
}

// Done returns a channel closed when the event completes.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// Poll reports whether the event completed, and its error if so.
func (e *Event) Poll() (bool, error) {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return true, e.err
	default:
		return false, nil
	}
}

// Wait blocks until the event completes or ctx is done.
// Abandoning the wait does not cancel the device command.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the timing recorded so far.
func (e *Event) Stats() CallStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Future is a caller-owned handle an operator populates when its work
// completes asynchronously. The zero value is a completed future.
type Future struct {
	mu    sync.Mutex
	event *Event
}

// Set attaches the event that completes this future. Nil futures ignore it.
func (f *Future) Set(e *Event) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.event = e
	f.mu.Unlock()
}

// Event returns the attached event, or nil if the work ran synchronously.
func (f *Future) Event() *Event {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event
}

// Wait blocks until the attached work finishes.
func (f *Future) Wait(ctx context.Context) error {
	if e := f.Event(); e != nil {
		return e.Wait(ctx)
	}
	return nil
}

// Done reports whether the attached work has finished.
func (f *Future) Done() bool {
	e := f.Event()
	if e == nil {
		return true
	}
	done, _ := e.Poll()
	return done
}

// Stats returns the device timing, if the work ran on a device.
func (f *Future) Stats() (CallStats, bool) {
	e := f.Event()
	if e == nil {
		return CallStats{}, false
	}
	return e.Stats(), true
}
