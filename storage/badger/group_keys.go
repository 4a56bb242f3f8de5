package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v2"

	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
	"github.com/meshweave/fabric-go/storage/badger/operation"
)

// GroupKeys is the badger-backed group-data provider. Keys persist
// across Open/Close cycles.
type GroupKeys struct {
	db   *badger.DB
	open bool
}

var _ storage.GroupDataProvider = (*GroupKeys)(nil)

var errProviderClosed = errors.New("group data provider is not open")

func NewGroupKeys(db *badger.DB) *GroupKeys {
	return &GroupKeys{db: db}
}

func (g *GroupKeys) Open() error {
	g.open = true
	return nil
}

func (g *GroupKeys) Close() error {
	g.open = false
	return nil
}

func (g *GroupKeys) SetGroupKey(index fabric.FabricIndex, key []byte) error {
	if !g.open {
		return errProviderClosed
	}
	return g.db.Update(operation.UpsertGroupKey(index, key))
}

func (g *GroupKeys) GroupKeys(index fabric.FabricIndex) ([][]byte, error) {
	if !g.open {
		return nil, errProviderClosed
	}
	keys := make([][]byte, 0)
	err := g.db.View(operation.TraverseGroupKeys(index, func(key []byte) error {
		keys = append(keys, key)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (g *GroupKeys) RemoveGroupKeys(index fabric.FabricIndex) error {
	if !g.open {
		return errProviderClosed
	}
	return g.db.Update(operation.RemoveGroupKeys(index))
}
