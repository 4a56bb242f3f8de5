package controller_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/controller"
	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/utils/unittest"
)

func TestProvision_FillsDefaults(t *testing.T) {
	provisioner := controller.NewProvisioner(unittest.Logger())

	params := unittest.StartupParametersFixture(t)
	require.NoError(t, provisioner.ValidateInputs(params))
	require.NoError(t, provisioner.Provision(params))

	require.NotNil(t, params.NodeID)
	assert.True(t, params.NodeID.IsOperational())

	require.NotNil(t, params.RootCertificate)
	key, err := certificates.ExtractPublicKey(params.RootCertificate)
	require.NoError(t, err)
	assert.Equal(t, params.Signer.PublicKey(), key)
}

func TestProvision_KeepsCallerValues(t *testing.T) {
	provisioner := controller.NewProvisioner(unittest.Logger())

	params := unittest.StartupParametersFixture(t)
	nodeID, err := fabric.GenerateNodeID()
	require.NoError(t, err)
	params.NodeID = &nodeID
	params.RootCertificate = unittest.RootCertificateFixture(t, params.Signer, params.FabricID)
	root := append([]byte(nil), params.RootCertificate...)

	require.NoError(t, provisioner.Provision(params))
	assert.Equal(t, nodeID, *params.NodeID)
	assert.Equal(t, root, params.RootCertificate)
}
