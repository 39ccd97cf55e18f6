package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_FulfilOnce(t *testing.T) {
	o := newOutcome[int](nil)
	assert.Equal(t, Pending, o.State())

	assert.True(t, o.fulfil(1))
	assert.False(t, o.fulfil(2), "second settlement is ignored")
	assert.False(t, o.reject(ErrTimedOut))

	v, err := o.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Fulfilled, o.State())
}

func TestOutcome_Reject(t *testing.T) {
	o := newOutcome[string](nil)
	assert.True(t, o.reject(cancelWith(ErrSuperseded, "/a/", nil)))

	_, err := o.Result()
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, Cancelled, o.State())
}

func TestOutcome_ResultPending(t *testing.T) {
	o := newOutcome[int](nil)
	_, err := o.Result()
	assert.ErrorIs(t, err, ErrPending)
}

func TestOutcome_WaitContext(t *testing.T) {
	o := newOutcome[int](nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := o.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Pending, o.State(), "a wait timeout leaves the outcome pending")
}

func TestOutcome_DoneClosedOnSettle(t *testing.T) {
	o := newOutcome[int](nil)
	go o.fulfil(7)

	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
	v, err := o.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestOutcome_ConcurrentSettle(t *testing.T) {
	o := newOutcome[int](nil)

	var wg sync.WaitGroup
	wins := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				wins <- o.fulfil(i)
			} else {
				wins <- o.reject(ErrCancelled)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	n := 0
	for w := range wins {
		if w {
			n++
		}
	}
	assert.Equal(t, 1, n, "exactly one settlement wins")
}

func TestOutcome_CancelCallsHook(t *testing.T) {
	calls := 0
	o := newOutcome[int](func() { calls++ })

	o.Cancel()
	assert.Equal(t, 1, calls)

	o.fulfil(1)
	o.Cancel()
	assert.Equal(t, 1, calls, "settled outcomes ignore Cancel")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "fulfilled", Fulfilled.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "unknown", State(9).String())
}
