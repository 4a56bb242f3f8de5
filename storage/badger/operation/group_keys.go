package operation

import (
	"crypto/sha256"

	"github.com/dgraph-io/badger/v2"

	"github.com/meshweave/fabric-go/model/fabric"
)

// UpsertGroupKey stores key material for a fabric index. The material
// is keyed by its own hash, so installing the same key twice is
// idempotent.
func UpsertGroupKey(index fabric.FabricIndex, key []byte) func(*badger.Txn) error {
	hash := sha256.Sum256(key)
	return upsert(makePrefix(codeGroupKey, index, hash[:]), key)
}

// TraverseGroupKeys iterates over all key material stored for the
// given fabric index.
func TraverseGroupKeys(index fabric.FabricIndex, iterate func(key []byte) error) func(*badger.Txn) error {
	return traverse(makePrefix(codeGroupKey, index), func(_ []byte, val []byte) error {
		var key []byte
		err := decodeValue(val, &key)
		if err != nil {
			return err
		}
		return iterate(key)
	})
}

// RemoveGroupKeys erases all key material stored for the given fabric
// index.
func RemoveGroupKeys(index fabric.FabricIndex) func(*badger.Txn) error {
	return removeByPrefix(makePrefix(codeGroupKey, index))
}
