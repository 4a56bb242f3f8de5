package fabric

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// FabricID is the 64-bit identifier of a fabric. Together with the root
// public key it uniquely identifies a fabric within one fabric table.
type FabricID uint64

// NodeID is the 64-bit identifier of an operational identity within a
// fabric. Operational node ids occupy the lower half of the id space:
// the most-significant bit is always clear.
type NodeID uint64

// FabricIndex is the local index of a fabric within one fabric table.
// It has no meaning outside the table that assigned it.
type FabricIndex uint8

// VendorID identifies the vendor operating a controller.
type VendorID uint16

const (
	// EmptyFabricIndex marks a controller that has not been bound to a
	// fabric yet.
	EmptyFabricIndex FabricIndex = 0

	// operationalNodeIDMask clears the most-significant bit, keeping a
	// generated id inside the operational node id range.
	operationalNodeIDMask = uint64(1<<63) - 1
)

// IsOperational reports whether the node id lies in the operational
// range (most-significant bit clear).
func (n NodeID) IsOperational() bool {
	return uint64(n)&^operationalNodeIDMask == 0
}

func (n NodeID) String() string {
	return fmt.Sprintf("%016x", uint64(n))
}

func (f FabricID) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// GenerateNodeID produces a random operational node id. The low and
// high halves are filled from two independent random draws, and the
// most-significant bit is cleared so the result always stays inside
// the operational range.
func GenerateNodeID() (NodeID, error) {
	var low, high [4]byte
	if _, err := rand.Read(low[:]); err != nil {
		return 0, fmt.Errorf("could not draw low half: %w", err)
	}
	if _, err := rand.Read(high[:]); err != nil {
		return 0, fmt.Errorf("could not draw high half: %w", err)
	}
	id := uint64(binary.BigEndian.Uint32(high[:]))<<32 | uint64(binary.BigEndian.Uint32(low[:]))
	return NodeID(id & operationalNodeIDMask), nil
}
