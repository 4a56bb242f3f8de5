package fabric_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/model/fabric"
)

func validParams(t *testing.T) *fabric.StartupParameters {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)
	return &fabric.StartupParameters{
		Signer:   signer,
		FabricID: 0xfab5,
		IPK:      make([]byte, fabric.IPKLength),
	}
}

func TestStartupParameters_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validParams(t).Validate())
	})
	t.Run("missing signer", func(t *testing.T) {
		params := validParams(t)
		params.Signer = nil
		require.ErrorIs(t, params.Validate(), fabric.ErrMissingSigner)
	})
	t.Run("missing fabric id", func(t *testing.T) {
		params := validParams(t)
		params.FabricID = 0
		require.ErrorIs(t, params.Validate(), fabric.ErrMissingFabricID)
	})
	t.Run("short ipk", func(t *testing.T) {
		params := validParams(t)
		params.IPK = params.IPK[:8]
		require.ErrorIs(t, params.Validate(), fabric.ErrInvalidIPK)
	})
}

// TestStartupParameters_Copy checks that filling in a copy leaves the
// caller's original untouched.
func TestStartupParameters_Copy(t *testing.T) {
	original := validParams(t)
	nodeID := fabric.NodeID(42)
	original.NodeID = &nodeID
	original.RootCertificate = []byte{1, 2, 3}

	dup := original.Copy()
	require.Equal(t, original.FabricID, dup.FabricID)
	require.Equal(t, original.RootCertificate, dup.RootCertificate)

	// mutate the copy every way the resolvers do
	*dup.NodeID = 7
	dup.IPK[0] = 0xff
	dup.RootCertificate[0] = 0xff
	vendorID := fabric.VendorID(1)
	dup.VendorID = &vendorID
	dup.OperationalCertificate = []byte{9}

	assert.Equal(t, fabric.NodeID(42), *original.NodeID)
	assert.Equal(t, byte(0), original.IPK[0])
	assert.Equal(t, byte(1), original.RootCertificate[0])
	assert.Nil(t, original.VendorID)
	assert.Nil(t, original.OperationalCertificate)
}
