// Package inmem provides in-memory implementations of the storage
// interfaces. The group-key store here is the factory default: group
// keys are init-time state that does not live in the caller's
// persistent storage delegate.
package inmem

import (
	"bytes"
	"errors"
	"sync"

	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
)

// GroupKeys is a map-backed group-data provider.
type GroupKeys struct {
	mu   sync.Mutex
	open bool
	keys map[fabric.FabricIndex][][]byte
}

var _ storage.GroupDataProvider = (*GroupKeys)(nil)

var errProviderClosed = errors.New("group data provider is not open")

func NewGroupKeys() *GroupKeys {
	return &GroupKeys{}
}

func (g *GroupKeys) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys == nil {
		g.keys = make(map[fabric.FabricIndex][][]byte)
	}
	g.open = true
	return nil
}

func (g *GroupKeys) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	return nil
}

func (g *GroupKeys) SetGroupKey(index fabric.FabricIndex, key []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return errProviderClosed
	}
	for _, existing := range g.keys[index] {
		if bytes.Equal(existing, key) {
			return nil
		}
	}
	dup := make([]byte, len(key))
	copy(dup, key)
	g.keys[index] = append(g.keys[index], dup)
	return nil
}

func (g *GroupKeys) GroupKeys(index fabric.FabricIndex) ([][]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil, errProviderClosed
	}
	keys := make([][]byte, 0, len(g.keys[index]))
	for _, key := range g.keys[index] {
		dup := make([]byte, len(key))
		copy(dup, key)
		keys = append(keys, dup)
	}
	return keys, nil
}

func (g *GroupKeys) RemoveGroupKeys(index fabric.FabricIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return errProviderClosed
	}
	delete(g.keys, index)
	return nil
}
