package controller

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meshweave/fabric-go/crypto/certificates"
	"github.com/meshweave/fabric-go/model/fabric"
	"github.com/meshweave/fabric-go/storage"
)

// Matcher locates the fabric, if any, that a set of startup parameters
// refers to.
type Matcher struct {
	log zerolog.Logger
}

func NewMatcher(log zerolog.Logger) *Matcher {
	return &Matcher{
		log: log.With().Str("component", "fabric_matcher").Logger(),
	}
}

// Match searches the fabric table for a fabric with the same root
// public key and fabric id as the parameters. The comparison key is
// taken from the caller's root certificate if one was supplied;
// otherwise the caller's signing key itself is the intended root of
// trust.
//
// A missing fabric is not an error: Match returns (nil, nil). An error
// is returned only when key extraction or the table lookup itself
// fails.
func (m *Matcher) Match(table storage.FabricTable, params *fabric.StartupParameters) (*fabric.Fabric, error) {
	var rootKey []byte
	var err error
	if params.RootCertificate != nil {
		rootKey, err = certificates.ExtractPublicKey(params.RootCertificate)
		if err != nil {
			return nil, fmt.Errorf("could not extract root public key: %w", err)
		}
	} else {
		rootKey = params.Signer.PublicKey()
	}

	fab, err := table.Lookup(rootKey, params.FabricID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not look up fabric: %w", err)
	}

	m.log.Debug().
		Str("fabric_id", params.FabricID.String()).
		Uint8("fabric_index", uint8(fab.Index)).
		Msg("matched existing fabric")
	return fab, nil
}
