package eventloop_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/controller/eventloop"
	"github.com/meshweave/fabric-go/utils/unittest"
)

func TestLoop_StartStop(t *testing.T) {
	loop := eventloop.New(unittest.Logger())
	require.False(t, loop.IsRunning())

	require.NoError(t, loop.Start())
	require.True(t, loop.IsRunning())

	// repeated starts are no-ops
	require.NoError(t, loop.Start())
	require.True(t, loop.IsRunning())

	loop.Stop()
	require.False(t, loop.IsRunning())
	loop.Stop()
	require.False(t, loop.IsRunning())

	// the loop can be activated again after a full stop
	require.NoError(t, loop.Start())
	require.True(t, loop.IsRunning())
	loop.Stop()
}

func TestLoop_SyncResult(t *testing.T) {
	loop := eventloop.New(unittest.Logger())
	require.NoError(t, loop.Start())
	defer loop.Stop()

	require.NoError(t, loop.Sync(func() error { return nil }))

	expected := errors.New("work failed")
	require.ErrorIs(t, loop.Sync(func() error { return expected }), expected)
}

func TestLoop_SyncWhileStopped(t *testing.T) {
	loop := eventloop.New(unittest.Logger())
	err := loop.Sync(func() error { return nil })
	require.ErrorIs(t, err, eventloop.ErrNotRunning)

	err = loop.Schedule(time.Millisecond, func() error { return nil })
	require.ErrorIs(t, err, eventloop.ErrNotRunning)
}

// TestLoop_SyncSerialized checks the sequential-rendezvous guarantee:
// work submitted by concurrent callers never interleaves.
func TestLoop_SyncSerialized(t *testing.T) {
	loop := eventloop.New(unittest.Logger())
	require.NoError(t, loop.Start())
	defer loop.Stop()

	const workers = 8
	const rounds = 50

	var inFlight int
	var maxInFlight int
	var total int

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				err := loop.Sync(func() error {
					// only the loop worker touches these
					inFlight++
					if inFlight > maxInFlight {
						maxInFlight = inFlight
					}
					total++
					inFlight--
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "serialized work must never interleave")
	assert.Equal(t, workers*rounds, total)
}

func TestLoop_ScheduleFires(t *testing.T) {
	loop := eventloop.New(unittest.Logger())
	require.NoError(t, loop.Start())
	defer loop.Stop()

	fired := make(chan struct{})
	require.NoError(t, loop.Schedule(5*time.Millisecond, func() error {
		close(fired)
		return nil
	}))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled work never fired")
	}
}
