package controller

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meshweave/fabric-go/controller/eventloop"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
)

// Registry tracks the set of live controllers and ties the shared
// event loop's activation to it: the loop is active exactly while the
// registry is non-empty. The loop state is always derived from the
// collection size, never counted separately, so the two cannot drift.
type Registry struct {
	log    zerolog.Logger
	loop   *eventloop.Loop
	groups storage.GroupDataProvider

	mu          sync.Mutex
	controllers []*Controller
}

func NewRegistry(log zerolog.Logger, loop *eventloop.Loop, groups storage.GroupDataProvider) *Registry {
	return &Registry{
		log:    log.With().Str("component", "controller_registry").Logger(),
		loop:   loop,
		groups: groups,
	}
}

// Register adds a controller to the registry. If the registry was
// empty, the shared event loop is activated first, so that a failure
// during the controller's own startup can safely deactivate it again.
func (r *Registry) Register(c *Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.controllers) == 0 {
		err := r.loop.Start()
		if err != nil {
			return fmt.Errorf("could not activate event loop: %w", err)
		}
	}
	r.controllers = append(r.controllers, c)
	c.registered()
	return nil
}

// Unregister removes a controller. For a fabric-bound controller, the
// group keys of its fabric are first erased inside the serialized work
// context. If the registry becomes empty, the event loop is
// deactivated.
//
// A group-key erasure failure is reported but does not prevent
// removal; the registry/event-loop invariant takes precedence.
func (r *Registry) Unregister(c *Controller) error {
	var eraseErr error
	index := c.FabricIndex()
	if index != fabric.EmptyFabricIndex {
		eraseErr = r.loop.Sync(func() error {
			return r.groups.RemoveGroupKeys(index)
		})
		if eraseErr != nil {
			eraseErr = fmt.Errorf("could not erase group keys for fabric %d: %w", index, eraseErr)
			r.log.Err(eraseErr).Msg("group key cleanup failed")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, candidate := range r.controllers {
		if candidate == c {
			r.controllers = append(r.controllers[:i], r.controllers[i+1:]...)
			break
		}
	}
	if len(r.controllers) == 0 {
		r.loop.Stop()
	}
	return eraseErr
}

// Size returns the number of live controllers.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Controllers returns a snapshot of the live controllers.
func (r *Registry) Controllers() []*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Controller, len(r.controllers))
	copy(snapshot, r.controllers)
	return snapshot
}

// AnyOtherActiveOnFabric reports whether any live controller other
// than the given one is active on the fabric index. A controller that
// fails to answer counts as active.
func (r *Registry) AnyOtherActiveOnFabric(index fabric.FabricIndex, except *Controller) bool {
	for _, c := range r.Controllers() {
		if c == except {
			continue
		}
		active, err := c.IsActiveOnFabric(index)
		if err != nil {
			r.log.Err(err).
				Uint8("fabric_index", uint8(index)).
				Msg("controller did not answer fabric occupancy query, treating as active")
			return true
		}
		if active {
			return true
		}
	}
	return false
}
