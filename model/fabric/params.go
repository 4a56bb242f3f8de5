package fabric

import (
	"errors"

	"github.com/meshweave/fabric-go/crypto"
)

// IPKLength is the length of the group-encryption key material shared
// within a fabric.
const IPKLength = 16

var (
	ErrMissingSigner   = errors.New("startup parameters require a signing key")
	ErrMissingFabricID = errors.New("startup parameters require a fabric id")
	ErrInvalidIPK      = errors.New("startup parameters require 16 bytes of group key material")
)

// StartupParameters carries the identity material a caller supplies
// when starting a controller. Optional fields left nil are filled in
// during fabric resolution: from the fabric table on a restart, or by
// provisioning on a new fabric.
//
// Callers retain ownership of the value they pass in; the factory
// operates on a deep copy and never mutates the original.
type StartupParameters struct {
	// Signer is the keypair the controller will sign operational
	// certificates with (the "NOC signer").
	Signer crypto.Signer

	// FabricID identifies the fabric, scoped by the root public key.
	FabricID FabricID

	// IPK is the group-encryption key material for the fabric.
	IPK []byte

	VendorID *VendorID
	NodeID   *NodeID

	// RootCertificate is the fabric root certificate in portable form,
	// or nil to adopt (restart) or generate (new fabric) one.
	RootCertificate []byte

	// IntermediateCertificate is the ICA certificate in portable form,
	// or nil if the signer operates directly under the root.
	IntermediateCertificate []byte

	// OperationalCertificate and OperationalKey are outputs of fabric
	// resolution: the NOC in portable form and the serialized
	// operational key material. A nil OperationalCertificate after a
	// successful resolution means a new NOC must be issued.
	OperationalCertificate []byte
	OperationalKey         []byte
}

// Validate checks the fields every start path requires. Path-specific
// requirements (e.g. vendor id on a new fabric) are checked by the
// respective resolver.
func (p *StartupParameters) Validate() error {
	if p.Signer == nil {
		return ErrMissingSigner
	}
	if p.FabricID == 0 {
		return ErrMissingFabricID
	}
	if len(p.IPK) != IPKLength {
		return ErrInvalidIPK
	}
	return nil
}

// Copy returns a deep copy of the parameters. The signer handle is
// shared; all byte slices and optional scalars are duplicated so the
// copy can be filled in freely.
func (p *StartupParameters) Copy() *StartupParameters {
	dup := &StartupParameters{
		Signer:                  p.Signer,
		FabricID:                p.FabricID,
		IPK:                     copyBytes(p.IPK),
		RootCertificate:         copyBytes(p.RootCertificate),
		IntermediateCertificate: copyBytes(p.IntermediateCertificate),
		OperationalCertificate:  copyBytes(p.OperationalCertificate),
		OperationalKey:          copyBytes(p.OperationalKey),
	}
	if p.VendorID != nil {
		vendorID := *p.VendorID
		dup.VendorID = &vendorID
	}
	if p.NodeID != nil {
		nodeID := *p.NodeID
		dup.NodeID = &nodeID
	}
	return dup
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup
}
