package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/born-ml/opengine/internal/future"
	"github.com/sirupsen/logrus"
)

const defaultQueueDepth = 64

type command struct {
	dispatch Dispatch
	event    *future.Event
	barrier  bool
}

// commandQueue is an in-order queue drained by a single worker goroutine.
// Both runtimes use it so that Enqueue never waits for device work.
type commandQueue struct {
	mu     sync.RWMutex
	closed bool
	ch     chan command
	wg     sync.WaitGroup
	exec   func(d *Dispatch) error
	log    *logrus.Entry
}

func newCommandQueue(depth int, exec func(d *Dispatch) error, log *logrus.Entry) *commandQueue {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	q := &commandQueue{
		ch:   make(chan command, depth),
		exec: exec,
		log:  log,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *commandQueue) run() {
	defer q.wg.Done()
	for cmd := range q.ch {
		cmd.event.Start()
		if cmd.barrier {
			cmd.event.Complete(nil)
			continue
		}
		err := q.execute(&cmd.dispatch)
		if err != nil {
			q.log.WithError(err).WithField("event", cmd.event.ID).Error("command failed")
		}
		cmd.event.Complete(err)
	}
}

func (q *commandQueue) execute(d *Dispatch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrDeviceFailure, d.Label, r)
		}
	}()
	if err := q.exec(d); err != nil {
		if errors.Is(err, ErrDeviceFailure) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrDeviceFailure, d.Label, err)
	}
	return nil
}

func (q *commandQueue) submit(d Dispatch) (*future.Event, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, fmt.Errorf("%w: enqueue %q on closed queue", ErrDeviceFailure, d.Label)
	}
	ev := future.NewEvent(d.Label)
	q.ch <- command{dispatch: d, event: ev}
	return ev, nil
}

// finish enqueues a barrier and waits for it, which drains earlier commands.
func (q *commandQueue) finish(ctx context.Context) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil
	}
	ev := future.NewEvent("barrier")
	q.ch <- command{event: ev, barrier: true}
	q.mu.RUnlock()
	return ev.Wait(ctx)
}

// close stops accepting commands and waits for queued ones to run.
func (q *commandQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
