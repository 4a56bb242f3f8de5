package controller

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
)

// Provisioner fills in the identity material for a brand-new fabric.
type Provisioner struct {
	log zerolog.Logger
}

func NewProvisioner(log zerolog.Logger) *Provisioner {
	return &Provisioner{
		log: log.With().Str("component", "fabric_provisioner").Logger(),
	}
}

// ValidateInputs checks the caller-input requirements specific to new
// fabrics. It runs before any fabric-table work begins.
func (p *Provisioner) ValidateInputs(params *fabric.StartupParameters) error {
	if params.VendorID == nil {
		return ErrMissingVendorID
	}
	if params.IntermediateCertificate != nil && params.RootCertificate == nil {
		return ErrIntermediateWithoutRoot
	}
	return nil
}

// Provision fills in a node id and a self-signed root certificate for
// the fields the caller left empty. The caller must already have
// confirmed, via the matcher, that no existing fabric matches the
// parameters.
func (p *Provisioner) Provision(params *fabric.StartupParameters) error {
	if params.NodeID == nil {
		nodeID, err := fabric.GenerateNodeID()
		if err != nil {
			return fmt.Errorf("could not generate node id: %w", err)
		}
		params.NodeID = &nodeID
		p.log.Debug().Str("node_id", nodeID.String()).Msg("generated operational node id")
	}
	if params.RootCertificate == nil {
		root, err := certificates.NewRootCertificate(params.Signer, params.FabricID)
		if err != nil {
			return fmt.Errorf("could not generate root certificate: %w", err)
		}
		params.RootCertificate = root
	}
	return nil
}
