package attestation

import (
	"errors"
	"fmt"

	"github.com/meshweave/fabric-go/crypto/certificates"
)

var ErrUntrustedRoot = errors.New("attestation root is not trusted")

// Verifier checks attestation material against a trust store. It is
// constructed once per factory startup and installed on the factory;
// the full trust-chain verification algorithm is consumed externally.
type Verifier struct {
	store *TrustStore
}

func NewVerifier(store *TrustStore) *Verifier {
	return &Verifier{store: store}
}

// TrustStore returns the store the verifier was built from.
func (v *Verifier) TrustStore() *TrustStore {
	return v.store
}

// VerifyRoot checks that the given certificate (portable form) is
// anchored in the trust store.
func (v *Verifier) VerifyRoot(portable []byte) error {
	key, err := certificates.ExtractPublicKey(portable)
	if err != nil {
		return fmt.Errorf("could not extract root key: %w", err)
	}
	if !v.store.Trusts(key) {
		return ErrUntrustedRoot
	}
	return nil
}
