package controller_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/controller"
	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage/inmem"
	"github.com/meshweave/fabric-go/utils/unittest"
)

// runWithFactory spins up a running factory over a fresh badger store
// and an observable group-key store.
func runWithFactory(t *testing.T, f func(factory *controller.Factory, groups *inmem.GroupKeys)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		groups := inmem.NewGroupKeys()
		factory, err := controller.NewFactory(unittest.Logger(),
			controller.WithGroupDataProvider(groups),
		)
		require.NoError(t, err)
		require.NoError(t, factory.Startup(controller.Config{DB: db}))
		defer factory.Destroy()

		f(factory, groups)
	})
}

func TestFactory_StartupLifecycle(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		factory, err := controller.NewFactory(unittest.Logger())
		require.NoError(t, err)
		defer factory.Destroy()

		// startup requires a storage delegate
		err = factory.Startup(controller.Config{})
		require.ErrorIs(t, err, controller.ErrMissingStorage)
		require.False(t, factory.IsRunning())

		require.NoError(t, factory.Startup(controller.Config{DB: db}))
		require.True(t, factory.IsRunning())
		assert.NotNil(t, factory.Verifier(), "default test anchors must be installed")

		// the loop is only kept alive once a controller registers
		assert.False(t, factory.EventLoop().IsRunning())

		// repeated startups are no-ops
		require.NoError(t, factory.Startup(controller.Config{DB: db}))

		require.NoError(t, factory.Shutdown())
		require.False(t, factory.IsRunning())
		assert.Nil(t, factory.Verifier(), "startup-time objects are released")

		// the factory can be started again after shutdown
		require.NoError(t, factory.Startup(controller.Config{DB: db}))
		require.True(t, factory.IsRunning())

		require.NoError(t, factory.Destroy())
		err = factory.Startup(controller.Config{DB: db})
		require.ErrorIs(t, err, controller.ErrFactoryDestroyed)
	})
}

func TestFactory_StartControllerRequiresRunning(t *testing.T) {
	factory, err := controller.NewFactory(unittest.Logger())
	require.NoError(t, err)
	defer factory.Destroy()

	_, err = factory.StartControllerOnNewFabric(unittest.StartupParametersFixture(t))
	require.ErrorIs(t, err, controller.ErrNotRunning)
}

func TestFactory_NewFabric(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, groups *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		ctrl, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		require.Equal(t, controller.StateRunning, ctrl.State())
		require.NotEqual(t, fabric.EmptyFabricIndex, ctrl.FabricIndex())

		// provisioning filled in the full identity
		resolved := ctrl.Params()
		require.NotNil(t, resolved.NodeID)
		assert.True(t, resolved.NodeID.IsOperational())
		assert.NotNil(t, resolved.RootCertificate)
		assert.NotNil(t, resolved.OperationalCertificate)
		assert.NotNil(t, resolved.OperationalKey)

		// the caller's original parameters were not touched
		assert.Nil(t, params.NodeID)
		assert.Nil(t, params.RootCertificate)

		// the IPK was installed for the fabric
		keys, err := groups.GroupKeys(ctrl.FabricIndex())
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, params.IPK, keys[0])

		// the event loop runs while the controller lives
		assert.True(t, factory.EventLoop().IsRunning())

		require.NoError(t, ctrl.Shutdown())
		assert.Equal(t, controller.StateRemoved, ctrl.State())
		assert.False(t, factory.EventLoop().IsRunning())

		// group keys were erased on shutdown
		keys, err = groups.GroupKeys(ctrl.FabricIndex())
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestFactory_NewFabricInputValidation(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		t.Run("missing vendor id", func(t *testing.T) {
			params := unittest.StartupParametersFixture(t)
			params.VendorID = nil
			_, err := factory.StartControllerOnNewFabric(params)
			require.ErrorIs(t, err, controller.ErrMissingVendorID)
		})

		t.Run("intermediate without root", func(t *testing.T) {
			params := unittest.StartupParametersFixture(t)
			ica, err := certificates.NewIntermediateCertificate(
				params.Signer, params.FabricID, unittest.SignerFixture(t).PublicKey())
			require.NoError(t, err)
			params.IntermediateCertificate = ica
			_, err = factory.StartControllerOnNewFabric(params)
			require.ErrorIs(t, err, controller.ErrIntermediateWithoutRoot)
		})

		// failed starts must leave the registry empty and the loop down
		assert.Zero(t, factory.Registry().Size())
		assert.False(t, factory.EventLoop().IsRunning())
	})
}

func TestFactory_NewFabricDuplicate(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		ctrl, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		require.NoError(t, ctrl.Shutdown())

		// same signer and fabric id identify the same fabric
		_, err = factory.StartControllerOnNewFabric(params.Copy())
		require.ErrorIs(t, err, controller.ErrFabricExists)
		assert.Zero(t, factory.Registry().Size())
	})
}

// TestFactory_RestartReproducesIdentity covers the restart scenario:
// a controller started on an existing fabric with no optional fields
// gets back the byte-identical node id, NOC and operational key of the
// prior run.
func TestFactory_RestartReproducesIdentity(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		first, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		prior := first.Params()
		require.NoError(t, first.Shutdown())

		restart := &fabric.StartupParameters{
			Signer:   params.Signer,
			FabricID: params.FabricID,
			IPK:      params.IPK,
		}
		second, err := factory.StartControllerOnExistingFabric(restart)
		require.NoError(t, err)
		defer second.Shutdown()

		resolved := second.Params()
		assert.Equal(t, *prior.NodeID, *resolved.NodeID)
		assert.Equal(t, prior.OperationalCertificate, resolved.OperationalCertificate)
		assert.Equal(t, prior.OperationalKey, resolved.OperationalKey)
		assert.Equal(t, prior.RootCertificate, resolved.RootCertificate)
		assert.Equal(t, first.FabricIndex(), second.FabricIndex())
	})
}

// TestFactory_RestartWithNewIntermediate covers the follow-up
// scenario: restarting with a freshly supplied intermediate clears the
// operational certificate while node id and key remain.
func TestFactory_RestartWithNewIntermediate(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		first, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		prior := first.Params()
		require.NoError(t, first.Shutdown())

		ica, err := certificates.NewIntermediateCertificate(
			params.Signer, params.FabricID, unittest.SignerFixture(t).PublicKey())
		require.NoError(t, err)

		restart := &fabric.StartupParameters{
			Signer:                  params.Signer,
			FabricID:                params.FabricID,
			IPK:                     params.IPK,
			IntermediateCertificate: ica,
		}
		second, err := factory.StartControllerOnExistingFabric(restart)
		require.NoError(t, err)
		defer second.Shutdown()

		resolved := second.Params()
		assert.Nil(t, resolved.OperationalCertificate, "NOC must be reissued")
		assert.Equal(t, *prior.NodeID, *resolved.NodeID)
		assert.Equal(t, prior.OperationalKey, resolved.OperationalKey)
		assert.Equal(t, prior.RootCertificate, resolved.RootCertificate)
	})
}

func TestFactory_RestartRootMismatch(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		first, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		require.NoError(t, first.Shutdown())

		// a different root certificate for the same key and fabric id
		restart := &fabric.StartupParameters{
			Signer:          params.Signer,
			FabricID:        params.FabricID,
			IPK:             params.IPK,
			RootCertificate: unittest.RootCertificateFixture(t, params.Signer, params.FabricID),
		}
		_, err = factory.StartControllerOnExistingFabric(restart)
		require.ErrorIs(t, err, controller.ErrRootCertificateMismatch)
		assert.Zero(t, factory.Registry().Size())
	})
}

func TestFactory_ExistingFabricNotFound(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		_, err := factory.StartControllerOnExistingFabric(unittest.StartupParametersFixture(t))
		require.ErrorIs(t, err, controller.ErrFabricNotFound)
		assert.Zero(t, factory.Registry().Size())
		assert.False(t, factory.EventLoop().IsRunning())
	})
}

// TestFactory_OneControllerPerFabric checks that at most one
// controller may be active per fabric at a time.
func TestFactory_OneControllerPerFabric(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		params := unittest.StartupParametersFixture(t)

		first, err := factory.StartControllerOnNewFabric(params)
		require.NoError(t, err)
		defer first.Shutdown()

		restart := &fabric.StartupParameters{
			Signer:   params.Signer,
			FabricID: params.FabricID,
			IPK:      params.IPK,
		}
		_, err = factory.StartControllerOnExistingFabric(restart)
		require.ErrorIs(t, err, controller.ErrFabricInUse)

		// the first controller is unaffected
		assert.Equal(t, controller.StateRunning, first.State())
		assert.Equal(t, 1, factory.Registry().Size())
	})
}

// TestFactory_ShutdownDrainsControllers checks that factory shutdown
// tears down every live controller and deactivates the loop.
func TestFactory_ShutdownDrainsControllers(t *testing.T) {
	runWithFactory(t, func(factory *controller.Factory, _ *inmem.GroupKeys) {
		a, err := factory.StartControllerOnNewFabric(unittest.StartupParametersFixture(t))
		require.NoError(t, err)
		b, err := factory.StartControllerOnNewFabric(unittest.StartupParametersFixture(t))
		require.NoError(t, err)
		require.Equal(t, 2, factory.Registry().Size())

		require.NoError(t, factory.Shutdown())
		assert.Equal(t, controller.StateRemoved, a.State())
		assert.Equal(t, controller.StateRemoved, b.State())
		assert.False(t, factory.IsRunning())
	})
}

// TestFactory_CustomTrustAnchors checks that caller-supplied anchors
// replace the test default.
func TestFactory_CustomTrustAnchors(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		factory, err := controller.NewFactory(unittest.Logger())
		require.NoError(t, err)
		defer factory.Destroy()

		anchorSigner := unittest.SignerFixture(t)
		anchor, err := certificates.NewRootCertificate(anchorSigner, 0)
		require.NoError(t, err)

		require.NoError(t, factory.Startup(controller.Config{
			DB:           db,
			TrustAnchors: [][]byte{anchor},
		}))

		verifier := factory.Verifier()
		require.NotNil(t, verifier)
		assert.True(t, verifier.TrustStore().Trusts(anchorSigner.PublicKey()))
	})
}
