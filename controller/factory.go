package controller

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/meshweave/fabric-go/attestation"
	"github.com/meshweave/fabric-go/controller/eventloop"
	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
)

type factoryState int32

const (
	factoryIdle factoryState = iota
	factoryRunning
	factoryDestroyed
)

// Factory is the process-wide controller factory. It owns the shared
// group-data provider, the controller registry and the shared event
// loop, and orchestrates fabric resolution for controller startups.
//
// Lifecycle: NewFactory -> (Startup -> Shutdown)* -> Destroy. Startup
// and Shutdown are expected to be called from a single control
// goroutine; controller handles may be used from any goroutine.
type Factory struct {
	log  zerolog.Logger
	opts options

	// init-time objects: survive startup/shutdown cycles, released
	// only by Destroy
	loop     *eventloop.Loop
	groups   storage.GroupDataProvider
	registry *Registry

	matcher     *Matcher
	reconciler  *Reconciler
	provisioner *Provisioner

	state *atomic.Int32

	// startup-time objects: released again on Shutdown
	db         *badger.DB
	listenPort uint16
	serverMode bool
	verifier   *attestation.Verifier
}

// NewFactory builds a factory and its init-time objects. On failure
// the partially built init objects are released and the factory is
// unusable.
func NewFactory(log zerolog.Logger, opts ...Option) (*Factory, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f := &Factory{
		log:    log.With().Str("component", "controller_factory").Logger(),
		opts:   o,
		groups: o.groups,
		state:  atomic.NewInt32(int32(factoryIdle)),
	}

	err := f.groups.Open()
	if err != nil {
		f.cleanupInitObjects()
		return nil, fmt.Errorf("could not open group data provider: %w", err)
	}

	f.loop = eventloop.New(f.log)
	f.registry = NewRegistry(f.log, f.loop, f.groups)
	f.matcher = NewMatcher(f.log)
	f.reconciler = NewReconciler(f.log)
	f.provisioner = NewProvisioner(f.log)

	return f, nil
}

// Startup brings the factory into the running state. It is idempotent:
// calling it while already running succeeds without side effects.
//
// The event loop is activated for the duration of the startup work and
// stopped again before Startup returns, regardless of outcome; it is
// only kept alive once a controller is actually registered.
func (f *Factory) Startup(cfg Config) error {
	switch factoryState(f.state.Load()) {
	case factoryDestroyed:
		return ErrFactoryDestroyed
	case factoryRunning:
		return nil
	}
	if cfg.DB == nil {
		return ErrMissingStorage
	}

	err := f.loop.Start()
	if err != nil {
		return fmt.Errorf("could not activate event loop: %w", err)
	}
	err = f.startup(cfg)
	f.loop.Stop()
	if err != nil {
		f.cleanupStartupObjects()
		f.log.Err(err).Msg("factory startup failed")
		return err
	}

	f.state.Store(int32(factoryRunning))
	f.log.Info().Uint16("listen_port", f.listenPort).Msg("controller factory running")
	return nil
}

// startup builds the startup-time objects while the event loop is
// active.
func (f *Factory) startup(cfg Config) error {

	// install the attestation verifier, defaulting to the well-known
	// test anchors when the caller supplies none
	anchors := cfg.TrustAnchors
	if len(anchors) == 0 {
		defaults, err := attestation.DefaultTestAnchors()
		if err != nil {
			return fmt.Errorf("could not build default trust anchors: %w", err)
		}
		anchors = defaults
	}
	trustStore, err := attestation.NewTrustStore(anchors)
	if err != nil {
		return fmt.Errorf("could not build attestation trust store: %w", err)
	}
	f.verifier = attestation.NewVerifier(trustStore)

	f.db = cfg.DB
	f.listenPort = cfg.ListenPort
	if f.listenPort == 0 {
		f.listenPort = DefaultListenPort
	}
	f.serverMode = cfg.EnableServerInteractions

	// initialize the underlying service: probe the fabric table
	// through the storage delegate inside the serialized context
	return f.loop.Sync(func() error {
		table := f.opts.newFabricTable(f.db)
		indexes, err := table.Indexes()
		if err != nil {
			return fmt.Errorf("could not read fabric table: %w", err)
		}
		f.log.Debug().Int("fabrics", len(indexes)).Msg("fabric table bound")
		return nil
	})
}

// Shutdown stops the factory: every registered controller is shut
// down, draining the registry to empty (which deactivates the event
// loop), and the startup-time objects are released. Init-time objects
// survive, so Startup may be called again afterwards.
func (f *Factory) Shutdown() error {
	if factoryState(f.state.Load()) != factoryRunning {
		return nil
	}

	var errs *multierror.Error
	for _, c := range f.registry.Controllers() {
		err := c.Shutdown()
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	f.cleanupStartupObjects()
	f.state.Store(int32(factoryIdle))
	f.log.Info().Msg("controller factory stopped")
	return errs.ErrorOrNil()
}

// Destroy shuts the factory down and releases its init-time objects.
// The factory cannot be started again afterwards.
func (f *Factory) Destroy() error {
	var errs *multierror.Error
	err := f.Shutdown()
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	f.cleanupInitObjects()
	f.state.Store(int32(factoryDestroyed))
	return errs.ErrorOrNil()
}

// IsRunning reports whether the factory is in the running state.
func (f *Factory) IsRunning() bool {
	return factoryState(f.state.Load()) == factoryRunning
}

// Registry exposes the controller registry.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// EventLoop exposes the shared event-processing loop.
func (f *Factory) EventLoop() *eventloop.Loop {
	return f.loop
}

// Verifier returns the installed attestation verifier, or nil while
// the factory is not running.
func (f *Factory) Verifier() *attestation.Verifier {
	return f.verifier
}

// cleanupStartupObjects releases the objects built during Startup.
// Init-time objects are deliberately left alone: they must survive a
// subsequent Startup call.
func (f *Factory) cleanupStartupObjects() {
	f.verifier = nil
	f.db = nil
	f.listenPort = 0
	f.serverMode = false
}

// cleanupInitObjects releases the objects built during construction.
func (f *Factory) cleanupInitObjects() {
	if f.groups != nil {
		err := f.groups.Close()
		if err != nil {
			f.log.Err(err).Msg("could not close group data provider")
		}
		f.groups = nil
	}
	f.registry = nil
	f.loop = nil
}

// StartControllerOnExistingFabric starts a controller on a fabric that
// must already exist in the fabric table. Missing identity fields in
// params are reconciled from the stored fabric; identity is never
// silently rotated.
func (f *Factory) StartControllerOnExistingFabric(params *fabric.StartupParameters) (*Controller, error) {
	return f.startController(params, f.resolveExistingFabric)
}

// StartControllerOnNewFabric provisions a brand-new fabric and starts
// a controller on it. Provisioning fails if a fabric with the same
// identity already exists.
func (f *Factory) StartControllerOnNewFabric(params *fabric.StartupParameters) (*Controller, error) {
	return f.startController(params, f.resolveNewFabric)
}

// controllerShuttingDown is invoked by a controller as part of its own
// teardown and drives the registry bookkeeping.
func (f *Factory) controllerShuttingDown(c *Controller) error {
	return f.registry.Unregister(c)
}

// startController runs the common start path: copy the parameters,
// register the controller (possibly activating the event loop),
// resolve the fabric inside the serialized work context, and complete
// the controller's own startup. Any failure after registration routes
// through the normal shutdown path.
func (f *Factory) startController(
	callerParams *fabric.StartupParameters,
	resolve func(*Controller, *fabric.StartupParameters) error,
) (*Controller, error) {

	if factoryState(f.state.Load()) != factoryRunning {
		return nil, ErrNotRunning
	}
	err := callerParams.Validate()
	if err != nil {
		return nil, err
	}

	// never mutate the caller's parameters
	params := callerParams.Copy()

	c := newController(f.log, f)
	err = f.registry.Register(c)
	if err != nil {
		return nil, fmt.Errorf("could not register controller: %w", err)
	}

	err = f.loop.Sync(func() error {
		return resolve(c, params)
	})
	if err == nil {
		err = c.start(params)
	}
	if err != nil {
		shutdownErr := c.Shutdown()
		if shutdownErr != nil {
			f.log.Err(shutdownErr).Msg("teardown of failed controller incomplete")
		}
		return nil, err
	}

	return c, nil
}

// resolveExistingFabric locates the fabric the parameters refer to and
// reconciles the identity material. Runs inside the serialized work
// context.
func (f *Factory) resolveExistingFabric(c *Controller, params *fabric.StartupParameters) error {
	table := f.opts.newFabricTable(f.db)

	fab, err := f.matcher.Match(table, params)
	if err != nil {
		return err
	}
	if fab == nil {
		return ErrFabricNotFound
	}

	// at most one controller may be active per fabric
	if f.registry.AnyOtherActiveOnFabric(fab.Index, c) {
		return ErrFabricInUse
	}

	err = f.reconciler.Reconcile(fab, params)
	if err != nil {
		return err
	}

	c.bind(fab.Index)
	return nil
}

// resolveNewFabric provisions a new fabric from the parameters and
// persists it. Runs inside the serialized work context.
func (f *Factory) resolveNewFabric(c *Controller, params *fabric.StartupParameters) error {

	// caller-input errors are rejected before any fabric-table work
	err := f.provisioner.ValidateInputs(params)
	if err != nil {
		return err
	}

	table := f.opts.newFabricTable(f.db)

	fab, err := f.matcher.Match(table, params)
	if err != nil {
		return err
	}
	if fab != nil {
		return ErrFabricExists
	}

	err = f.provisioner.Provision(params)
	if err != nil {
		return err
	}

	rootKey, err := certificates.ExtractPublicKey(params.RootCertificate)
	if err != nil {
		return fmt.Errorf("could not extract provisioned root key: %w", err)
	}

	// enroll the operational identity: fresh keypair, NOC issued by
	// the caller's signing key
	opSigner, err := crypto.GenerateSigner()
	if err != nil {
		return fmt.Errorf("could not generate operational key: %w", err)
	}
	noc, err := certificates.NewOperationalCertificate(params.Signer, params.FabricID, *params.NodeID, opSigner.PublicKey())
	if err != nil {
		return fmt.Errorf("could not issue operational certificate: %w", err)
	}
	params.OperationalCertificate = noc
	params.OperationalKey, err = opSigner.Serialize()
	if err != nil {
		return fmt.Errorf("could not serialize operational key: %w", err)
	}

	newFab, err := storedFabricFromParams(params, rootKey, opSigner)
	if err != nil {
		return err
	}
	index, err := table.Insert(newFab)
	if err != nil {
		return fmt.Errorf("could not insert new fabric: %w", err)
	}

	c.bind(index)
	f.log.Info().
		Str("fabric_id", params.FabricID.String()).
		Uint8("fabric_index", uint8(index)).
		Msg("provisioned new fabric")
	return nil
}

// storedFabricFromParams converts fully provisioned parameters into
// the fabric entry to persist, with certificates in native form.
func storedFabricFromParams(params *fabric.StartupParameters, rootKey []byte, opSigner crypto.Signer) (*fabric.Fabric, error) {
	rootNative, err := certificates.NativeFromPortable(params.RootCertificate)
	if err != nil {
		return nil, fmt.Errorf("could not convert root certificate: %w", err)
	}
	nocNative, err := certificates.NativeFromPortable(params.OperationalCertificate)
	if err != nil {
		return nil, fmt.Errorf("could not convert operational certificate: %w", err)
	}
	var icaNative []byte
	if params.IntermediateCertificate != nil {
		icaNative, err = certificates.NativeFromPortable(params.IntermediateCertificate)
		if err != nil {
			return nil, fmt.Errorf("could not convert intermediate certificate: %w", err)
		}
	}
	return &fabric.Fabric{
		FabricID:                params.FabricID,
		NodeID:                  *params.NodeID,
		VendorID:                *params.VendorID,
		RootPublicKey:           rootKey,
		RootCertificate:         rootNative,
		IntermediateCertificate: icaNative,
		OperationalCertificate:  nocNative,
		OperationalKey:          opSigner,
	}, nil
}
