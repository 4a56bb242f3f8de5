// Package badger implements the storage interfaces on top of a badger
// key-value database.
package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
	"github.com/meshweave/fabric-go/storage/badger/operation"
)

// Fabrics is the badger-backed fabric table. Fabric indexes are
// assigned from a monotonic boundary counter and are never reused,
// even after a fabric is removed.
type Fabrics struct {
	db *badger.DB
}

var _ storage.FabricTable = (*Fabrics)(nil)

func NewFabrics(db *badger.DB) *Fabrics {
	return &Fabrics{db: db}
}

func (f *Fabrics) Lookup(rootPublicKey []byte, fabricID fabric.FabricID) (*fabric.Fabric, error) {
	var entry operation.StoredFabric
	err := f.db.View(func(tx *badger.Txn) error {
		var index fabric.FabricIndex
		err := operation.LookupFabricIdentity(rootPublicKey, fabricID, &index)(tx)
		if err != nil {
			return err
		}
		return operation.RetrieveFabric(index, &entry)(tx)
	})
	if err != nil {
		return nil, err
	}
	return decodeFabric(&entry)
}

func (f *Fabrics) ByIndex(index fabric.FabricIndex) (*fabric.Fabric, error) {
	var entry operation.StoredFabric
	err := f.db.View(operation.RetrieveFabric(index, &entry))
	if err != nil {
		return nil, err
	}
	return decodeFabric(&entry)
}

func (f *Fabrics) Insert(fab *fabric.Fabric) (fabric.FabricIndex, error) {
	entry, err := encodeFabric(fab)
	if err != nil {
		return fabric.EmptyFabricIndex, err
	}
	var assigned fabric.FabricIndex
	err = f.db.Update(func(tx *badger.Txn) error {

		// refuse a second fabric with the same identity
		var existing fabric.FabricIndex
		err := operation.LookupFabricIdentity(fab.RootPublicKey, fab.FabricID, &existing)(tx)
		if err == nil {
			return storage.ErrAlreadyExists
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not check fabric identity: %w", err)
		}

		// assign the next index from the boundary counter
		var bound fabric.FabricIndex
		err = operation.RetrieveFabricBoundary(&bound)(tx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not read fabric boundary: %w", err)
		}
		if bound == ^fabric.FabricIndex(0) {
			return fmt.Errorf("fabric table is full")
		}
		assigned = bound + 1
		entry.Index = uint8(assigned)

		err = operation.InsertFabric(assigned, entry)(tx)
		if err != nil {
			return fmt.Errorf("could not insert fabric: %w", err)
		}
		err = operation.IndexFabricIdentity(fab.RootPublicKey, fab.FabricID, assigned)(tx)
		if err != nil {
			return fmt.Errorf("could not index fabric identity: %w", err)
		}
		err = operation.UpsertFabricBoundary(assigned)(tx)
		if err != nil {
			return fmt.Errorf("could not advance fabric boundary: %w", err)
		}
		return nil
	})
	if err != nil {
		return fabric.EmptyFabricIndex, err
	}
	fab.Index = assigned
	return assigned, nil
}

func (f *Fabrics) Update(fab *fabric.Fabric) error {
	entry, err := encodeFabric(fab)
	if err != nil {
		return err
	}
	return f.db.Update(operation.UpdateFabric(fab.Index, entry))
}

func (f *Fabrics) Remove(index fabric.FabricIndex) error {
	return f.db.Update(func(tx *badger.Txn) error {
		var entry operation.StoredFabric
		err := operation.RetrieveFabric(index, &entry)(tx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		err = operation.RemoveFabricIdentity(entry.RootPublicKey, fabric.FabricID(entry.FabricID))(tx)
		if err != nil {
			return err
		}
		return operation.RemoveFabric(index)(tx)
	})
}

func (f *Fabrics) Indexes() ([]fabric.FabricIndex, error) {
	var indexes []fabric.FabricIndex
	err := f.db.View(operation.TraverseFabrics(func(index fabric.FabricIndex, _ *operation.StoredFabric) error {
		indexes = append(indexes, index)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return indexes, nil
}

func encodeFabric(fab *fabric.Fabric) (*operation.StoredFabric, error) {
	entry := &operation.StoredFabric{
		Index:                   uint8(fab.Index),
		FabricID:                uint64(fab.FabricID),
		NodeID:                  uint64(fab.NodeID),
		VendorID:                uint16(fab.VendorID),
		RootPublicKey:           fab.RootPublicKey,
		RootCertificate:         fab.RootCertificate,
		IntermediateCertificate: fab.IntermediateCertificate,
		OperationalCertificate:  fab.OperationalCertificate,
	}
	if fab.OperationalKey != nil {
		material, err := fab.OperationalKey.Serialize()
		if err != nil {
			return nil, fmt.Errorf("could not serialize operational key: %w", err)
		}
		entry.OperationalKey = material
	}
	return entry, nil
}

func decodeFabric(entry *operation.StoredFabric) (*fabric.Fabric, error) {
	fab := &fabric.Fabric{
		Index:                   fabric.FabricIndex(entry.Index),
		FabricID:                fabric.FabricID(entry.FabricID),
		NodeID:                  fabric.NodeID(entry.NodeID),
		VendorID:                fabric.VendorID(entry.VendorID),
		RootPublicKey:           entry.RootPublicKey,
		RootCertificate:         entry.RootCertificate,
		IntermediateCertificate: entry.IntermediateCertificate,
		OperationalCertificate:  entry.OperationalCertificate,
	}
	if len(entry.OperationalKey) > 0 {
		signer, err := crypto.DeserializeSigner(entry.OperationalKey)
		if err != nil {
			return nil, fmt.Errorf("could not rebuild operational key: %w", err)
		}
		fab.OperationalKey = signer
	}
	return fab, nil
}
