package controller

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/meshweave/fabric-go/model/fabric"
)

// State is the lifecycle state of a controller.
type State int32

const (
	StateCreated State = iota
	StateRegistered
	StateRunning
	StateShuttingDown
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRegistered:
		return "registered"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// FabricOccupant is the capability to ask a controller whether it is
// currently active on a fabric. Implementations that cannot answer
// should return an error; callers treat failure conservatively as
// "active".
type FabricOccupant interface {
	IsActiveOnFabric(index fabric.FabricIndex) (bool, error)
}

// Controller is a handle to one controller identity, bound to at most
// one fabric index at a time. Instances are created by the factory and
// held by the registry for their entire Registered to Removed
// lifetime.
type Controller struct {
	log     zerolog.Logger
	factory *Factory
	state   *atomic.Int32

	mu          sync.Mutex
	fabricIndex fabric.FabricIndex
	params      *fabric.StartupParameters
}

var _ FabricOccupant = (*Controller)(nil)

func newController(log zerolog.Logger, factory *Factory) *Controller {
	return &Controller{
		log:         log.With().Str("component", "controller").Logger(),
		factory:     factory,
		state:       atomic.NewInt32(int32(StateCreated)),
		fabricIndex: fabric.EmptyFabricIndex,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// FabricIndex returns the fabric index the controller is bound to, or
// EmptyFabricIndex if fabric resolution has not completed.
func (c *Controller) FabricIndex() fabric.FabricIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fabricIndex
}

// Params returns the resolved startup parameters: the complete
// identity material after fabric resolution. It returns nil before the
// controller reaches Running.
func (c *Controller) Params() *fabric.StartupParameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// IsActiveOnFabric reports whether the controller is currently running
// on the given fabric index.
func (c *Controller) IsActiveOnFabric(index fabric.FabricIndex) (bool, error) {
	if c.State() != StateRunning {
		return false, nil
	}
	return c.FabricIndex() == index, nil
}

// Shutdown tears the controller down and removes it from the factory's
// registry. It is a no-op if the controller was already removed.
// Failed startups route through the same path, so the registry and
// event-loop invariants hold on partial failure too.
func (c *Controller) Shutdown() error {
	for {
		current := c.state.Load()
		if State(current) == StateShuttingDown || State(current) == StateRemoved {
			return nil
		}
		if c.state.CAS(current, int32(StateShuttingDown)) {
			break
		}
	}
	err := c.factory.controllerShuttingDown(c)
	c.state.Store(int32(StateRemoved))
	if err != nil {
		return fmt.Errorf("controller teardown incomplete: %w", err)
	}
	return nil
}

// bind records the fabric index assigned during fabric resolution.
func (c *Controller) bind(index fabric.FabricIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fabricIndex = index
}

// registered marks the controller as held by the registry.
func (c *Controller) registered() {
	c.state.Store(int32(StateRegistered))
}

// start completes the controller's own startup after successful fabric
// resolution: the group key material is installed for its fabric and
// the controller becomes Running.
func (c *Controller) start(params *fabric.StartupParameters) error {
	index := c.FabricIndex()
	err := c.factory.loop.Sync(func() error {
		return c.factory.groups.SetGroupKey(index, params.IPK)
	})
	if err != nil {
		return fmt.Errorf("could not install group key: %w", err)
	}
	c.mu.Lock()
	c.params = params
	c.mu.Unlock()
	c.state.Store(int32(StateRunning))
	c.log.Info().
		Uint8("fabric_index", uint8(index)).
		Str("fabric_id", params.FabricID.String()).
		Msg("controller running")
	return nil
}
