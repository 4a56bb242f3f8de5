package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/controller/eventloop"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage/inmem"
	"github.com/meshweave/fabric-go/utils/unittest"
)

func testRegistry(t *testing.T) (*Registry, *eventloop.Loop, *inmem.GroupKeys) {
	log := unittest.Logger()
	loop := eventloop.New(log)
	groups := inmem.NewGroupKeys()
	require.NoError(t, groups.Open())
	return NewRegistry(log, loop, groups), loop, groups
}

// TestRegistry_LoopActivation checks the core invariant: the event
// loop is active exactly while the registry is non-empty, across
// arbitrary register/unregister interleavings.
func TestRegistry_LoopActivation(t *testing.T) {
	registry, loop, _ := testRegistry(t)
	log := unittest.Logger()

	a := newController(log, nil)
	b := newController(log, nil)
	c := newController(log, nil)

	assert.False(t, loop.IsRunning())

	require.NoError(t, registry.Register(a))
	assert.True(t, loop.IsRunning(), "first registration activates the loop")
	assert.Equal(t, StateRegistered, a.State())

	require.NoError(t, registry.Register(b))
	assert.True(t, loop.IsRunning())

	require.NoError(t, registry.Unregister(a))
	assert.True(t, loop.IsRunning(), "loop stays up while controllers remain")

	require.NoError(t, registry.Register(c))
	require.NoError(t, registry.Unregister(c))
	require.NoError(t, registry.Unregister(b))
	assert.False(t, loop.IsRunning(), "last removal deactivates the loop")
	assert.Zero(t, registry.Size())

	// the cycle can repeat
	require.NoError(t, registry.Register(a))
	assert.True(t, loop.IsRunning())
	require.NoError(t, registry.Unregister(a))
	assert.False(t, loop.IsRunning())
}

// TestRegistry_GroupKeyCleanup checks that unregistering a
// fabric-bound controller erases the group keys of its fabric, while
// unbound controllers skip the erasure.
func TestRegistry_GroupKeyCleanup(t *testing.T) {
	registry, _, groups := testRegistry(t)
	log := unittest.Logger()

	bound := newController(log, nil)
	unbound := newController(log, nil)

	require.NoError(t, registry.Register(bound))
	require.NoError(t, registry.Register(unbound))

	bound.bind(fabric.FabricIndex(7))
	require.NoError(t, groups.SetGroupKey(7, []byte("ipk-material-0000")))
	require.NoError(t, groups.SetGroupKey(9, []byte("other-fabric-key0")))

	require.NoError(t, registry.Unregister(bound))
	keys, err := groups.GroupKeys(7)
	require.NoError(t, err)
	assert.Empty(t, keys, "group keys of the bound fabric must be erased")

	keys, err = groups.GroupKeys(9)
	require.NoError(t, err)
	assert.Len(t, keys, 1, "other fabrics are untouched")

	require.NoError(t, registry.Unregister(unbound))
}

func TestRegistry_AnyOtherActiveOnFabric(t *testing.T) {
	registry, _, _ := testRegistry(t)
	log := unittest.Logger()

	active := newController(log, nil)
	idle := newController(log, nil)
	require.NoError(t, registry.Register(active))
	require.NoError(t, registry.Register(idle))

	active.bind(fabric.FabricIndex(4))
	active.state.Store(int32(StateRunning))

	assert.True(t, registry.AnyOtherActiveOnFabric(4, idle))
	assert.False(t, registry.AnyOtherActiveOnFabric(5, idle))
	assert.False(t, registry.AnyOtherActiveOnFabric(4, active), "a controller is not its own rival")

	require.NoError(t, registry.Unregister(active))
	require.NoError(t, registry.Unregister(idle))
}
