// Package certificates implements the certificate encodings the
// controller core exchanges with the fabric table and its callers.
//
// Certificates exist in two byte-level forms. The native form is the
// compact integer-keyed encoding the fabric table stores. The portable
// form is the named-key encoding exposed to callers. Both carry the
// same payload; converting between them is lossless, and re-encoding
// is deterministic, so byte comparison of two certificates in the same
// form is an identity comparison.
//
// Certificate validity (expiry, chain verification) is deliberately
// not checked here.
package certificates

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/model/fabric"
)

var (
	ErrMalformedCertificate = errors.New("malformed certificate")
	ErrMissingPublicKey     = errors.New("certificate carries no public key")
)

// Certificate is the decoded payload common to both encodings.
type Certificate struct {
	SerialNumber uint64
	IssuerID     uint64 // 0 when the certificate names no explicit issuer
	FabricID     fabric.FabricID
	NodeID       fabric.NodeID // 0 for CA certificates
	PublicKey    []byte
	IsCA         bool
	Signature    []byte
}

// portableCertificate is the named-key CBOR envelope handed to callers.
type portableCertificate struct {
	SerialNumber uint64 `cbor:"serial"`
	IssuerID     uint64 `cbor:"issuer,omitempty"`
	FabricID     uint64 `cbor:"fabric"`
	NodeID       uint64 `cbor:"node,omitempty"`
	PublicKey    []byte `cbor:"public_key"`
	IsCA         bool   `cbor:"ca,omitempty"`
	Signature    []byte `cbor:"signature,omitempty"`
}

// nativeCertificate is the integer-keyed CBOR envelope the fabric
// table stores.
type nativeCertificate struct {
	SerialNumber uint64 `cbor:"1,keyasint"`
	IssuerID     uint64 `cbor:"2,keyasint,omitempty"`
	FabricID     uint64 `cbor:"3,keyasint"`
	NodeID       uint64 `cbor:"4,keyasint,omitempty"`
	PublicKey    []byte `cbor:"5,keyasint"`
	IsCA         bool   `cbor:"6,keyasint,omitempty"`
	Signature    []byte `cbor:"7,keyasint,omitempty"`
}

// Encode serializes a certificate into its portable form.
func Encode(cert *Certificate) ([]byte, error) {
	val, err := cbor.Marshal(portableCertificate{
		SerialNumber: cert.SerialNumber,
		IssuerID:     cert.IssuerID,
		FabricID:     uint64(cert.FabricID),
		NodeID:       uint64(cert.NodeID),
		PublicKey:    cert.PublicKey,
		IsCA:         cert.IsCA,
		Signature:    cert.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode certificate: %w", err)
	}
	return val, nil
}

// Decode parses a certificate from its portable form.
func Decode(portable []byte) (*Certificate, error) {
	var env portableCertificate
	if err := cbor.Unmarshal(portable, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCertificate, err)
	}
	return &Certificate{
		SerialNumber: env.SerialNumber,
		IssuerID:     env.IssuerID,
		FabricID:     fabric.FabricID(env.FabricID),
		NodeID:       fabric.NodeID(env.NodeID),
		PublicKey:    env.PublicKey,
		IsCA:         env.IsCA,
		Signature:    env.Signature,
	}, nil
}

// NativeFromPortable converts a portable certificate into the native
// form stored by the fabric table.
func NativeFromPortable(portable []byte) ([]byte, error) {
	cert, err := Decode(portable)
	if err != nil {
		return nil, err
	}
	val, err := cbor.Marshal(nativeCertificate{
		SerialNumber: cert.SerialNumber,
		IssuerID:     cert.IssuerID,
		FabricID:     uint64(cert.FabricID),
		NodeID:       uint64(cert.NodeID),
		PublicKey:    cert.PublicKey,
		IsCA:         cert.IsCA,
		Signature:    cert.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode native certificate: %w", err)
	}
	return val, nil
}

// PortableFromNative converts a stored native certificate back into
// the portable form exposed to callers.
func PortableFromNative(native []byte) ([]byte, error) {
	var env nativeCertificate
	if err := cbor.Unmarshal(native, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCertificate, err)
	}
	return Encode(&Certificate{
		SerialNumber: env.SerialNumber,
		IssuerID:     env.IssuerID,
		FabricID:     fabric.FabricID(env.FabricID),
		NodeID:       fabric.NodeID(env.NodeID),
		PublicKey:    env.PublicKey,
		IsCA:         env.IsCA,
		Signature:    env.Signature,
	})
}

// ExtractPublicKey returns the subject public key embedded in a
// portable certificate.
func ExtractPublicKey(portable []byte) ([]byte, error) {
	cert, err := Decode(portable)
	if err != nil {
		return nil, err
	}
	if len(cert.PublicKey) == 0 {
		return nil, ErrMissingPublicKey
	}
	return cert.PublicKey, nil
}

// SignedWithKey reports whether the portable certificate's subject
// public key equals the given public key. It is used to decide whether
// a caller is continuing to sign under a previously stored authority.
func SignedWithKey(portable []byte, publicKey []byte) (bool, error) {
	embedded, err := ExtractPublicKey(portable)
	if err != nil {
		return false, err
	}
	return bytes.Equal(embedded, publicKey), nil
}

// NewRootCertificate synthesizes a self-signed root certificate in
// portable form, binding the signer's public key and the fabric id.
// No explicit issuer id is set.
func NewRootCertificate(signer crypto.Signer, fabricID fabric.FabricID) ([]byte, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	cert := &Certificate{
		SerialNumber: serial,
		FabricID:     fabricID,
		PublicKey:    signer.PublicKey(),
		IsCA:         true,
	}
	return sign(cert, signer)
}

// NewIntermediateCertificate synthesizes an ICA certificate in
// portable form: a CA certificate for the subject key, signed by the
// root signer.
func NewIntermediateCertificate(rootSigner crypto.Signer, fabricID fabric.FabricID, subjectPublicKey []byte) ([]byte, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	cert := &Certificate{
		SerialNumber: serial,
		IssuerID:     serial >> 32,
		FabricID:     fabricID,
		PublicKey:    subjectPublicKey,
		IsCA:         true,
	}
	return sign(cert, rootSigner)
}

// NewOperationalCertificate issues a NOC in portable form for the
// given node, signed by the enrolling authority (root or ICA signer).
func NewOperationalCertificate(issuer crypto.Signer, fabricID fabric.FabricID, nodeID fabric.NodeID, subjectPublicKey []byte) ([]byte, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	cert := &Certificate{
		SerialNumber: serial,
		FabricID:     fabricID,
		NodeID:       nodeID,
		PublicKey:    subjectPublicKey,
	}
	return sign(cert, issuer)
}

// sign fills in the signature over the unsigned portable encoding and
// returns the final portable bytes.
func sign(cert *Certificate, signer crypto.Signer) ([]byte, error) {
	unsigned := *cert
	unsigned.Signature = nil
	tbs, err := Encode(&unsigned)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(tbs)
	if err != nil {
		return nil, fmt.Errorf("could not sign certificate: %w", err)
	}
	cert.Signature = sig
	return Encode(cert)
}

func randomSerial() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("could not draw serial number: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
