// Package attestation holds the trust anchors accepted when verifying
// device attestation chains. Only anchor management and identity
// membership live here; the chain verification algorithm itself is an
// external collaborator.
package attestation

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/crypto/certificates"
)

var ErrNotCA = errors.New("trust anchor is not a CA certificate")

// TrustStore is an immutable set of accepted attestation root
// certificates (portable form).
type TrustStore struct {
	anchors [][]byte
	keys    [][]byte
}

// NewTrustStore builds a trust store from the given anchor
// certificates. Every anchor must decode and carry the CA flag.
func NewTrustStore(anchors [][]byte) (*TrustStore, error) {
	store := &TrustStore{}
	for i, anchor := range anchors {
		cert, err := certificates.Decode(anchor)
		if err != nil {
			return nil, fmt.Errorf("could not decode trust anchor %d: %w", i, err)
		}
		if !cert.IsCA {
			return nil, fmt.Errorf("trust anchor %d: %w", i, ErrNotCA)
		}
		store.anchors = append(store.anchors, anchor)
		store.keys = append(store.keys, cert.PublicKey)
	}
	return store, nil
}

// Anchors returns the anchor certificates.
func (s *TrustStore) Anchors() [][]byte {
	return s.anchors
}

// Trusts reports whether the given root public key belongs to one of
// the accepted anchors.
func (s *TrustStore) Trusts(rootPublicKey []byte) bool {
	for _, key := range s.keys {
		if bytes.Equal(key, rootPublicKey) {
			return true
		}
	}
	return false
}

// Private scalars of the well-known test attestation authorities. Not
// for production use.
var testAnchorScalars = []string{
	"2f5b0f0e0a1c4d6e8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7",
	"113355779900aabbccddeeff102030405060708090a0b0c0d0e0f01112131415",
}

// DefaultTestAnchors synthesizes the well-known test anchor set used
// when the caller supplies no trust anchors of its own.
func DefaultTestAnchors() ([][]byte, error) {
	anchors := make([][]byte, 0, len(testAnchorScalars))
	for _, scalar := range testAnchorScalars {
		material, err := hex.DecodeString(scalar)
		if err != nil {
			return nil, fmt.Errorf("could not decode test anchor key: %w", err)
		}
		signer, err := crypto.DeserializeSigner(material)
		if err != nil {
			return nil, fmt.Errorf("could not rebuild test anchor key: %w", err)
		}
		anchor, err := certificates.NewRootCertificate(signer, 0)
		if err != nil {
			return nil, fmt.Errorf("could not build test anchor: %w", err)
		}
		anchors = append(anchors, anchor)
	}
	return anchors, nil
}
