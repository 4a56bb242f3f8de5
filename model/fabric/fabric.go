package fabric

import (
	"bytes"

	"github.com/meshweave/fabric-go/crypto"
)

// Fabric is one entry of the fabric table: the persisted identity
// material of a single trust domain. Certificates are held in their
// native (storage) encoding; conversion to the portable form exposed
// to callers happens at the boundary.
//
// Within one fabric table the pair (RootPublicKey, FabricID) uniquely
// identifies at most one fabric.
type Fabric struct {
	Index    FabricIndex
	FabricID FabricID
	NodeID   NodeID
	VendorID VendorID

	// RootPublicKey is the public key of the root of trust, in
	// uncompressed point encoding.
	RootPublicKey []byte

	// RootCertificate is the self-signed root certificate, native form.
	RootCertificate []byte

	// IntermediateCertificate is the ICA certificate in native form,
	// or nil if the fabric was commissioned directly under the root.
	IntermediateCertificate []byte

	// OperationalCertificate is the NOC in native form.
	OperationalCertificate []byte

	// OperationalKey is the handle to the node's operational keypair,
	// or nil if no key material was stored for this fabric.
	OperationalKey crypto.Signer
}

// HasIntermediate reports whether the fabric was commissioned with an
// intermediate certificate authority between root and NOC.
func (f *Fabric) HasIntermediate() bool {
	return len(f.IntermediateCertificate) > 0
}

// Matches reports whether the fabric is identified by the given root
// public key and fabric id.
func (f *Fabric) Matches(rootPublicKey []byte, fabricID FabricID) bool {
	return f.FabricID == fabricID && bytes.Equal(f.RootPublicKey, rootPublicKey)
}
