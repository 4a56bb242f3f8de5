package controller

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
)

// Reconciler merges caller-supplied startup parameters with the stored
// identity of an existing fabric on restart. The invariant it
// preserves: an identity (node id, operational keypair, operational
// certificate) is never silently rotated unless the chain of trust
// above it changed.
type Reconciler struct {
	log zerolog.Logger
}

func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{
		log: log.With().Str("component", "certificate_reconciler").Logger(),
	}
}

// Reconcile fills the missing fields of params from the matched
// fabric, in place. params must be an internal copy; the stored fabric
// is never mutated.
//
// A nil OperationalCertificate after a successful reconciliation means
// the certificate chain above the NOC changed and a new one must be
// issued by the caller's enrollment flow.
func (r *Reconciler) Reconcile(fab *fabric.Fabric, params *fabric.StartupParameters) error {

	// adopt stored scalar identity for fields the caller left empty
	if params.VendorID == nil {
		vendorID := fab.VendorID
		params.VendorID = &vendorID
	}
	if params.NodeID == nil {
		nodeID := fab.NodeID
		params.NodeID = &nodeID

		// the caller is resuming the stored identity, so the stored
		// NOC and operational key must be reused
		if fab.OperationalKey == nil {
			return ErrMissingOperationalKey
		}
		noc, err := certificates.PortableFromNative(fab.OperationalCertificate)
		if err != nil {
			return fmt.Errorf("could not convert stored operational certificate: %w", err)
		}
		params.OperationalCertificate = noc
		material, err := fab.OperationalKey.Serialize()
		if err != nil {
			return fmt.Errorf("could not serialize stored operational key: %w", err)
		}
		params.OperationalKey = material
	}

	// determine the previously used intermediate certificate, if any
	var prevICA []byte
	if fab.HasIntermediate() {
		converted, err := certificates.PortableFromNative(fab.IntermediateCertificate)
		if err != nil {
			return fmt.Errorf("could not convert stored intermediate certificate: %w", err)
		}
		prevICA = converted
	}

	// the caller supplied no intermediate but one existed before: keep
	// it only if the caller is still signing with the same intermediate
	// authority, otherwise the caller now signs directly under the root
	if params.IntermediateCertificate == nil && prevICA != nil {
		sameAuthority, err := certificates.SignedWithKey(prevICA, params.Signer.PublicKey())
		if err != nil {
			return fmt.Errorf("could not compare signing key against stored intermediate: %w", err)
		}
		if sameAuthority {
			params.IntermediateCertificate = prevICA
		}
	}

	// if intermediate presence or identity changed, the chain above
	// the NOC is no longer valid and the reused NOC must be discarded
	hadICA := prevICA != nil
	hasICA := params.IntermediateCertificate != nil
	icaChanged := hadICA != hasICA ||
		(hadICA && hasICA && !bytes.Equal(params.IntermediateCertificate, prevICA))
	if icaChanged {
		r.log.Info().
			Uint8("fabric_index", uint8(fab.Index)).
			Bool("had_intermediate", hadICA).
			Bool("has_intermediate", hasICA).
			Msg("intermediate authority changed, operational certificate must be reissued")
		params.OperationalCertificate = nil
	}

	// the fabric's root identity can never be silently changed
	existingRoot, err := certificates.PortableFromNative(fab.RootCertificate)
	if err != nil {
		return fmt.Errorf("could not convert stored root certificate: %w", err)
	}
	if params.RootCertificate == nil {
		params.RootCertificate = existingRoot
	} else if !bytes.Equal(params.RootCertificate, existingRoot) {
		return ErrRootCertificateMismatch
	}

	return nil
}
