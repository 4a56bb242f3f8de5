package badger_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
	bstorage "github.com/meshweave/fabric-go/storage/badger"
	"github.com/meshweave/fabric-go/utils/unittest"
)

func TestFabrics_InsertRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		table := bstorage.NewFabrics(db)

		signer := unittest.SignerFixture(t)
		fab := unittest.FabricFixture(t, signer, 0xfab5)

		index, err := table.Insert(fab)
		require.NoError(t, err)
		require.NotEqual(t, fabric.EmptyFabricIndex, index)

		byIndex, err := table.ByIndex(index)
		require.NoError(t, err)
		assert.Equal(t, fab.FabricID, byIndex.FabricID)
		assert.Equal(t, fab.NodeID, byIndex.NodeID)
		assert.Equal(t, fab.RootCertificate, byIndex.RootCertificate)
		assert.Equal(t, fab.OperationalCertificate, byIndex.OperationalCertificate)

		// the operational key handle survives the round trip
		require.NotNil(t, byIndex.OperationalKey)
		assert.Equal(t, fab.OperationalKey.PublicKey(), byIndex.OperationalKey.PublicKey())

		byIdentity, err := table.Lookup(signer.PublicKey(), 0xfab5)
		require.NoError(t, err)
		assert.Equal(t, index, byIdentity.Index)
	})
}

func TestFabrics_LookupMisses(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		table := bstorage.NewFabrics(db)

		signer := unittest.SignerFixture(t)
		_, err := table.Insert(unittest.FabricFixture(t, signer, 0xfab5))
		require.NoError(t, err)

		// same key, different fabric id
		_, err = table.Lookup(signer.PublicKey(), 0xfab6)
		require.ErrorIs(t, err, storage.ErrNotFound)

		// different key, same fabric id
		other := unittest.SignerFixture(t)
		_, err = table.Lookup(other.PublicKey(), 0xfab5)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestFabrics_DuplicateIdentity(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		table := bstorage.NewFabrics(db)

		signer := unittest.SignerFixture(t)
		_, err := table.Insert(unittest.FabricFixture(t, signer, 0xfab5))
		require.NoError(t, err)

		_, err = table.Insert(unittest.FabricFixture(t, signer, 0xfab5))
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		indexes, err := table.Indexes()
		require.NoError(t, err)
		assert.Len(t, indexes, 1)
	})
}

// TestFabrics_IndexesNeverReused checks that removing a fabric does
// not free its index for the next insertion.
func TestFabrics_IndexesNeverReused(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		table := bstorage.NewFabrics(db)

		first, err := table.Insert(unittest.FabricFixture(t, unittest.SignerFixture(t), 0xfab5))
		require.NoError(t, err)
		require.NoError(t, table.Remove(first))

		_, err = table.ByIndex(first)
		require.ErrorIs(t, err, storage.ErrNotFound)

		second, err := table.Insert(unittest.FabricFixture(t, unittest.SignerFixture(t), 0xfab6))
		require.NoError(t, err)
		assert.Greater(t, uint8(second), uint8(first))
	})
}

func TestFabrics_Update(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		table := bstorage.NewFabrics(db)

		fab := unittest.FabricFixture(t, unittest.SignerFixture(t), 0xfab5)
		index, err := table.Insert(fab)
		require.NoError(t, err)

		fab.NodeID = 0x7777
		require.NoError(t, table.Update(fab))

		reloaded, err := table.ByIndex(index)
		require.NoError(t, err)
		assert.Equal(t, fabric.NodeID(0x7777), reloaded.NodeID)
	})
}
