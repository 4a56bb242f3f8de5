// Package crypto provides the signing key handles used for fabric
// identity material. Keys are P-256 ECDSA; the serialized form is the
// raw 32-byte private scalar, so stored key material round-trips to a
// byte-identical handle.
package crypto

// Signer is a handle to a signing keypair. Implementations must be
// safe for concurrent use.
type Signer interface {

	// PublicKey returns the uncompressed public key bytes.
	PublicKey() []byte

	// Sign signs the given message and returns the signature.
	Sign(message []byte) ([]byte, error)

	// Serialize returns the private key material in the stored form.
	Serialize() ([]byte, error)
}
