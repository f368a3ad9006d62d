package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Lifecycle(t *testing.T) {
	e := NewEvent("activation")
	assert.NotEqual(t, uuid.Nil, e.ID)

	done, err := e.Poll()
	assert.False(t, done)
	assert.NoError(t, err)

	e.Start()
	e.Complete(nil)

	done, err = e.Poll()
	assert.True(t, done)
	assert.NoError(t, err)

	stats := e.Stats()
	assert.False(t, stats.Enqueued.IsZero())
	assert.False(t, stats.Finished.Before(stats.Started))
	assert.GreaterOrEqual(t, stats.Duration(), time.Duration(0))
	assert.GreaterOrEqual(t, stats.QueueDelay(), time.Duration(0))
}

func TestEvent_CompleteOnce(t *testing.T) {
	boom := errors.New("boom")
	e := NewEvent("lstm")
	e.Complete(boom)
	e.Complete(nil)

	assert.ErrorIs(t, e.Wait(context.Background()), boom)
}

func TestEvent_WaitContext(t *testing.T) {
	e := NewEvent("slow")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
}

func TestFuture_Empty(t *testing.T) {
	var f Future
	assert.True(t, f.Done())
	assert.NoError(t, f.Wait(context.Background()))
	_, ok := f.Stats()
	assert.False(t, ok)

	var nilFuture *Future
	nilFuture.Set(NewEvent("ignored"))
	assert.Nil(t, nilFuture.Event())
	assert.NoError(t, nilFuture.Wait(context.Background()))
}

func TestFuture_WithEvent(t *testing.T) {
	var f Future
	e := NewEvent("activation")
	f.Set(e)
	assert.False(t, f.Done())

	go func() {
		e.Start()
		e.Complete(nil)
	}()

	require.NoError(t, f.Wait(context.Background()))
	assert.True(t, f.Done())
	stats, ok := f.Stats()
	assert.True(t, ok)
	assert.False(t, stats.Finished.IsZero())
}
