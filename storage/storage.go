// Package storage defines the persistence interfaces the controller
// core consumes: the fabric table and the group-key store. The
// concrete engines live in the subpackages.
package storage

import (
	"github.com/meshweave/fabric-go/model/fabric"
)

// FabricTable provides access to the persisted fabric entries. Within
// one table, (root public key, fabric id) identifies at most one
// fabric, and fabric indexes are assigned by the table and never
// reused within its lifetime.
type FabricTable interface {
	// Lookup returns the fabric identified by the given root public
	// key and fabric id. Expected errors: ErrNotFound when no fabric
	// matches.
	Lookup(rootPublicKey []byte, fabricID fabric.FabricID) (*fabric.Fabric, error)

	// ByIndex returns the fabric with the given index. Expected
	// errors: ErrNotFound.
	ByIndex(index fabric.FabricIndex) (*fabric.Fabric, error)

	// Insert adds a new fabric under a fresh index and returns the
	// assigned index. Expected errors: ErrAlreadyExists when a fabric
	// with the same (root public key, fabric id) is already stored.
	Insert(f *fabric.Fabric) (fabric.FabricIndex, error)

	// Update replaces the stored entry for the fabric's index.
	// Expected errors: ErrNotFound.
	Update(f *fabric.Fabric) error

	// Remove deletes the fabric with the given index. Removing an
	// absent index is a no-op.
	Remove(index fabric.FabricIndex) error

	// Indexes lists the indexes of all stored fabrics.
	Indexes() ([]fabric.FabricIndex, error)
}

// GroupDataProvider stores the group-encryption keys of each fabric,
// keyed by fabric index.
type GroupDataProvider interface {
	// Open prepares the provider for use. It must be called before any
	// other method.
	Open() error

	// Close releases the provider. Stored keys survive Close for
	// persistent implementations.
	Close() error

	// SetGroupKey installs key material for the given fabric index,
	// replacing any previous key with the same material.
	SetGroupKey(index fabric.FabricIndex, key []byte) error

	// GroupKeys returns all key material stored for the given fabric
	// index. A fabric with no keys yields an empty slice, not an error.
	GroupKeys(index fabric.FabricIndex) ([][]byte, error)

	// RemoveGroupKeys erases all key material for the given fabric
	// index.
	RemoveGroupKeys(index fabric.FabricIndex) error
}
