package controller

import (
	"errors"
)

var (
	// ErrNotRunning is returned when a controller start is requested
	// while the factory is not running.
	ErrNotRunning = errors.New("controller factory is not running")

	// ErrFactoryDestroyed is returned when the factory is used after
	// its init-time objects have been torn down.
	ErrFactoryDestroyed = errors.New("controller factory has been destroyed")

	// ErrMissingStorage is returned when Startup is called without a
	// storage delegate.
	ErrMissingStorage = errors.New("startup requires a storage delegate")

	// ErrFabricNotFound is returned when starting a controller on an
	// existing fabric and no fabric matches the given parameters.
	ErrFabricNotFound = errors.New("no fabric matches the startup parameters")

	// ErrFabricExists is returned when provisioning a new fabric whose
	// identity already matches a stored fabric.
	ErrFabricExists = errors.New("fabric already exists")

	// ErrFabricInUse is returned when another live controller is
	// active on the candidate fabric.
	ErrFabricInUse = errors.New("another controller is active on this fabric")

	// ErrRootCertificateMismatch is returned when the caller supplies
	// a root certificate that differs from the fabric's stored root.
	// Root identity can never be silently changed.
	ErrRootCertificateMismatch = errors.New("root certificate differs from the fabric's stored root")

	// ErrMissingOperationalKey is returned when a restart needs to
	// reuse stored operational key material and none exists.
	ErrMissingOperationalKey = errors.New("fabric has no stored operational key material")

	// ErrMissingVendorID is returned when a new fabric is requested
	// without a vendor id.
	ErrMissingVendorID = errors.New("new fabric requires a vendor id")

	// ErrIntermediateWithoutRoot is returned when an intermediate
	// certificate is supplied for a new fabric without an explicit
	// root to anchor it.
	ErrIntermediateWithoutRoot = errors.New("intermediate certificate requires an explicit root certificate")
)
