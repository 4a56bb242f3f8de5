package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

// ScalarLength is the byte length of a serialized private key scalar.
const ScalarLength = 32

var (
	ErrInvalidKeyMaterial = errors.New("invalid private key material")
	ErrInvalidPublicKey   = errors.New("invalid public key")
)

// ecdsaSigner wraps a P-256 private key.
type ecdsaSigner struct {
	priv *ecdsa.PrivateKey
}

var _ Signer = (*ecdsaSigner)(nil)

// GenerateSigner draws a fresh P-256 keypair.
func GenerateSigner() (Signer, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate keypair: %w", err)
	}
	return &ecdsaSigner{priv: priv}, nil
}

// DeserializeSigner rebuilds a signer from a serialized private scalar.
// The scalar must be 32 bytes big-endian and fall in [1, N-1] for the
// P-256 group order N.
func DeserializeSigner(material []byte) (Signer, error) {
	if len(material) != ScalarLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyMaterial, ScalarLength, len(material))
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(material)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKeyMaterial)
	}
	priv := &ecdsa.PrivateKey{D: d}
	priv.Curve = curve
	priv.X, priv.Y = curve.ScalarBaseMult(d.Bytes())
	return &ecdsaSigner{priv: priv}, nil
}

func (s *ecdsaSigner) PublicKey() []byte {
	return elliptic.Marshal(s.priv.Curve, s.priv.X, s.priv.Y)
}

func (s *ecdsaSigner) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, s.priv, hash[:])
	if err != nil {
		return nil, fmt.Errorf("could not sign message: %w", err)
	}
	return sig, nil
}

func (s *ecdsaSigner) Serialize() ([]byte, error) {
	material := make([]byte, ScalarLength)
	s.priv.D.FillBytes(material)
	return material, nil
}

// VerifySignature checks an ASN.1 signature over the SHA-256 digest of
// the message against an uncompressed public key.
func VerifySignature(publicKey []byte, message []byte, sig []byte) (bool, error) {
	curve := elliptic.P256()
	x, y := elliptic.Unmarshal(curve, publicKey)
	if x == nil {
		return false, ErrInvalidPublicKey
	}
	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	hash := sha256.Sum256(message)
	return ecdsa.VerifyASN1(pub, hash[:], sig), nil
}
