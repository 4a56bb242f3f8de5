package unittest

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
)

// SignerFixture returns a fresh P-256 keypair handle.
func SignerFixture(t testing.TB) crypto.Signer {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)
	return signer
}

// IPKFixture returns random group key material of the required length.
func IPKFixture(t testing.TB) []byte {
	ipk := make([]byte, fabric.IPKLength)
	_, err := rand.Read(ipk)
	require.NoError(t, err)
	return ipk
}

// FabricIDFixture returns a non-zero fabric id.
func FabricIDFixture(t testing.TB) fabric.FabricID {
	id, err := fabric.GenerateNodeID()
	require.NoError(t, err)
	return fabric.FabricID(uint64(id) | 1)
}

// VendorIDFixture returns an arbitrary vendor id.
func VendorIDFixture() *fabric.VendorID {
	vendorID := fabric.VendorID(0xfff1)
	return &vendorID
}

// StartupParametersFixture returns the minimal valid parameters for a
// new fabric: signer, fabric id, IPK and vendor id.
func StartupParametersFixture(t testing.TB) *fabric.StartupParameters {
	return &fabric.StartupParameters{
		Signer:   SignerFixture(t),
		FabricID: FabricIDFixture(t),
		IPK:      IPKFixture(t),
		VendorID: VendorIDFixture(),
	}
}

// RootCertificateFixture returns a self-signed root certificate in
// portable form for the given signer and fabric id.
func RootCertificateFixture(t testing.TB, signer crypto.Signer, fabricID fabric.FabricID) []byte {
	root, err := certificates.NewRootCertificate(signer, fabricID)
	require.NoError(t, err)
	return root
}

// FabricFixture returns a complete fabric entry with a stored
// operational identity, ready for table insertion. The root of trust
// is the given signer's key.
func FabricFixture(t testing.TB, signer crypto.Signer, fabricID fabric.FabricID) *fabric.Fabric {
	nodeID, err := fabric.GenerateNodeID()
	require.NoError(t, err)

	root := RootCertificateFixture(t, signer, fabricID)
	rootNative, err := certificates.NativeFromPortable(root)
	require.NoError(t, err)

	opSigner := SignerFixture(t)
	noc, err := certificates.NewOperationalCertificate(signer, fabricID, nodeID, opSigner.PublicKey())
	require.NoError(t, err)
	nocNative, err := certificates.NativeFromPortable(noc)
	require.NoError(t, err)

	return &fabric.Fabric{
		FabricID:               fabricID,
		NodeID:                 nodeID,
		VendorID:               *VendorIDFixture(),
		RootPublicKey:          signer.PublicKey(),
		RootCertificate:        rootNative,
		OperationalCertificate: nocNative,
		OperationalKey:         opSigner,
	}
}
