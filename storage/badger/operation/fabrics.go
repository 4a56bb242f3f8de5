package operation

import (
	"crypto/sha256"

	"github.com/dgraph-io/badger/v2"

	"github.com/meshweave/fabric-go/model/fabric"
)

// StoredFabric is the encodable form of a fabric table entry. The
// operational key handle is flattened into its serialized material.
type StoredFabric struct {
	Index                   uint8
	FabricID                uint64
	NodeID                  uint64
	VendorID                uint16
	RootPublicKey           []byte
	RootCertificate         []byte
	IntermediateCertificate []byte
	OperationalCertificate  []byte
	OperationalKey          []byte
}

func InsertFabric(index fabric.FabricIndex, entry *StoredFabric) func(*badger.Txn) error {
	return insert(makePrefix(codeFabric, index), entry)
}

func UpdateFabric(index fabric.FabricIndex, entry *StoredFabric) func(*badger.Txn) error {
	return update(makePrefix(codeFabric, index), entry)
}

func RetrieveFabric(index fabric.FabricIndex, entry *StoredFabric) func(*badger.Txn) error {
	return retrieve(makePrefix(codeFabric, index), entry)
}

func RemoveFabric(index fabric.FabricIndex) func(*badger.Txn) error {
	return remove(makePrefix(codeFabric, index))
}

// IndexFabricIdentity indexes a fabric's index under its identity, the
// pair (root public key, fabric id). The public key is hashed to keep
// the key length fixed.
func IndexFabricIdentity(rootPublicKey []byte, fabricID fabric.FabricID, index fabric.FabricIndex) func(*badger.Txn) error {
	return insert(identityKey(rootPublicKey, fabricID), index)
}

// LookupFabricIdentity resolves the fabric index stored under the
// given identity pair.
func LookupFabricIdentity(rootPublicKey []byte, fabricID fabric.FabricID, index *fabric.FabricIndex) func(*badger.Txn) error {
	return retrieve(identityKey(rootPublicKey, fabricID), index)
}

func RemoveFabricIdentity(rootPublicKey []byte, fabricID fabric.FabricID) func(*badger.Txn) error {
	return remove(identityKey(rootPublicKey, fabricID))
}

// RetrieveFabricBoundary reads the highest fabric index assigned so
// far.
func RetrieveFabricBoundary(index *fabric.FabricIndex) func(*badger.Txn) error {
	return retrieve(makePrefix(codeFabricBound), index)
}

// UpsertFabricBoundary records the highest fabric index assigned so
// far.
func UpsertFabricBoundary(index fabric.FabricIndex) func(*badger.Txn) error {
	return upsert(makePrefix(codeFabricBound), index)
}

// TraverseFabrics iterates over all stored fabrics in index order.
func TraverseFabrics(iterate func(index fabric.FabricIndex, entry *StoredFabric) error) func(*badger.Txn) error {
	return traverse(makePrefix(codeFabric), func(key []byte, val []byte) error {
		var entry StoredFabric
		err := decodeValue(val, &entry)
		if err != nil {
			return err
		}
		return iterate(fabric.FabricIndex(key[0]), &entry)
	})
}

func identityKey(rootPublicKey []byte, fabricID fabric.FabricID) []byte {
	hash := sha256.Sum256(rootPublicKey)
	return makePrefix(codeFabricLookup, hash[:], fabricID)
}
